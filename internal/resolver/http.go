package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abbank/notification-gateway/internal/model"
)

// HTTPOption configures an HTTP resolver.
type HTTPOption func(*HTTP)

// HTTP resolves profiles from the customer profile service:
// GET {base}/customers/by-account/{accountId}. A 404, a non-2xx status, or a
// transport error all surface as not-found; the caller skips the event.
type HTTP struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ Resolver = (*HTTP)(nil)

// NewHTTP creates an HTTP customer resolver with the given request timeout.
func NewHTTP(baseURL string, timeout time.Duration, opts ...HTTPOption) *HTTP {
	r := &HTTP{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithHTTPClient sets the HTTP client used by the resolver.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(r *HTTP) { r.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(r *HTTP) { r.logger = l }
}

// Resolve looks up the profile for accountID.
func (r *HTTP) Resolve(ctx context.Context, accountID int64) (*model.CustomerProfile, error) {
	if accountID <= 0 {
		return nil, nil
	}

	url := r.baseURL + "/customers/by-account/" + strconv.FormatInt(accountID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("customer service unreachable", "accountId", accountID, "error", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		r.logger.Warn("customer not found", "accountId", accountID)
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Error("customer service error", "accountId", accountID, "http", resp.StatusCode)
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var profile model.CustomerProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		r.logger.Error("malformed customer profile response", "accountId", accountID, "error", err)
		return nil, nil
	}
	return &profile, nil
}
