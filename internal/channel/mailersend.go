package channel

import (
	"bytes"
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

const mailerSendDefaultEndpoint = "https://api.mailersend.com/v1/email"

// MailerSendOption configures a MailerSendAdapter.
type MailerSendOption func(*MailerSendAdapter)

// MailerSendAdapter delivers email via the MailerSend v1 Email API.
// MailerSend answers 202 Accepted on success with the message ID in the
// X-Message-Id response header.
type MailerSendAdapter struct {
	apiKey   string
	from     string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

var _ Adapter = (*MailerSendAdapter)(nil)

// NewMailerSendAdapter creates a MailerSend email adapter.
func NewMailerSendAdapter(apiKey, from string, opts ...MailerSendOption) *MailerSendAdapter {
	a := &MailerSendAdapter{
		apiKey:   apiKey,
		from:     from,
		endpoint: mailerSendDefaultEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithMailerSendEndpoint overrides the API endpoint. Used in tests.
func WithMailerSendEndpoint(url string) MailerSendOption {
	return func(a *MailerSendAdapter) { a.endpoint = url }
}

// WithMailerSendHTTPClient sets the HTTP client.
func WithMailerSendHTTPClient(c *http.Client) MailerSendOption {
	return func(a *MailerSendAdapter) { a.client = c }
}

func (a *MailerSendAdapter) ProviderName() string       { return "mailersend" }
func (a *MailerSendAdapter) ChannelType() model.Channel { return model.ChannelEmail }

// Configured reports whether an API key is present.
func (a *MailerSendAdapter) Configured() bool {
	return strings.TrimSpace(a.apiKey) != ""
}

// Send posts the event to the MailerSend email endpoint.
func (a *MailerSendAdapter) Send(ctx context.Context, event *model.NotificationEvent, profile *model.CustomerProfile) model.DeliveryResult {
	if !profile.HasEmail() {
		return model.Skipped(a.ProviderName(), a.ChannelType(),
			fmt.Sprintf("Customer %d has no email address", profile.CustomerID))
	}

	payload, err := json.Marshal(map[string]any{
		"from": map[string]string{"email": a.from, "name": "AB Bank"},
		"to": []map[string]string{{
			"email": profile.Email,
			"name":  profile.FullName(),
		}},
		"subject": event.Subject,
		"text":    event.Body,
		"html":    buildHTMLBody(event, profile),
		"tags":    []string{string(event.NotificationType)},
	})
	if err != nil {
		return model.Failure(a.ProviderName(), a.ChannelType(), "marshal payload: "+err.Error(), 0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return model.Failure(a.ProviderName(), a.ChannelType(), "create request: "+err.Error(), 0)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return model.Failure(a.ProviderName(), a.ChannelType(), err.Error(), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		msgID := resp.Header.Get("X-Message-Id")
		if msgID == "" {
			msgID = "unknown"
		}
		a.logger.Info("MailerSend email sent",
			"notificationId", event.NotificationID,
			"to", model.MaskEmail(profile.Email),
			"msgId", msgID,
		)
		return model.Success(a.ProviderName(), a.ChannelType(), msgID, resp.StatusCode)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	a.logger.Warn("MailerSend rejected email",
		"notificationId", event.NotificationID,
		"http", resp.StatusCode,
	)
	return model.Failure(a.ProviderName(), a.ChannelType(),
		"HTTP "+strconv.Itoa(resp.StatusCode)+": "+string(body), resp.StatusCode)
}

// Close releases the adapter's idle connections. Idempotent.
func (a *MailerSendAdapter) Close() {
	a.client.CloseIdleConnections()
}
