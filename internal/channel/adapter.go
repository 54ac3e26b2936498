package channel

import (
	"context"

	"github.com/abbank/notification-gateway/internal/model"
)

// Adapter delivers a notification to one external provider.
//
// Implementations are shared across the consumer loop and must be safe for
// concurrent use. Send never returns an error: every outcome, including
// transport failures, is expressed as a DeliveryResult. The retry policy is
// applied above this layer.
type Adapter interface {
	// ProviderName is the stable identifier used in logs and results
	// (e.g. "sendgrid", "twilio").
	ProviderName() string

	// ChannelType is the transport category this adapter serves:
	// model.ChannelEmail or model.ChannelSMS.
	ChannelType() model.Channel

	// Configured reports whether the adapter holds the credentials it needs.
	// Called at startup to filter out half-configured providers.
	Configured() bool

	// Send delivers the event to the customer. The returned result carries
	// SKIPPED when the profile lacks this channel's contact detail.
	Send(ctx context.Context, event *model.NotificationEvent, profile *model.CustomerProfile) model.DeliveryResult

	// Close releases held resources. Safe to call more than once.
	Close()
}
