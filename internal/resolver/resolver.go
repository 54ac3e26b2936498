package resolver

import (
	"context"

	"github.com/abbank/notification-gateway/internal/model"
)

// Resolver looks up the contact details for an account.
//
// A nil profile with a nil error means the customer was not found, which is a
// permanent skip for the event being processed. Transport problems are also
// reported as not-found at this boundary; the gateway does not retry
// resolution.
type Resolver interface {
	Resolve(ctx context.Context, accountID int64) (*model.CustomerProfile, error)
}
