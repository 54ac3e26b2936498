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

const sendGridDefaultEndpoint = "https://api.sendgrid.com/v3/mail/send"

// SendGridOption configures a SendGridAdapter.
type SendGridOption func(*SendGridAdapter)

// SendGridAdapter delivers email via the SendGrid v3 Mail Send API.
// SendGrid answers 202 Accepted on success with the message ID in the
// X-Message-Id response header.
type SendGridAdapter struct {
	apiKey   string
	from     string
	replyTo  string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

var _ Adapter = (*SendGridAdapter)(nil)

// NewSendGridAdapter creates a SendGrid email adapter.
func NewSendGridAdapter(apiKey, from, replyTo string, opts ...SendGridOption) *SendGridAdapter {
	a := &SendGridAdapter{
		apiKey:   apiKey,
		from:     from,
		replyTo:  replyTo,
		endpoint: sendGridDefaultEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithSendGridEndpoint overrides the API endpoint. Used in tests.
func WithSendGridEndpoint(url string) SendGridOption {
	return func(a *SendGridAdapter) { a.endpoint = url }
}

// WithSendGridHTTPClient sets the HTTP client.
func WithSendGridHTTPClient(c *http.Client) SendGridOption {
	return func(a *SendGridAdapter) { a.client = c }
}

func (a *SendGridAdapter) ProviderName() string       { return "sendgrid" }
func (a *SendGridAdapter) ChannelType() model.Channel { return model.ChannelEmail }

// Configured reports whether an API key is present.
func (a *SendGridAdapter) Configured() bool {
	return strings.TrimSpace(a.apiKey) != ""
}

// Send posts the event as a SendGrid v3 mail-send request.
func (a *SendGridAdapter) Send(ctx context.Context, event *model.NotificationEvent, profile *model.CustomerProfile) model.DeliveryResult {
	if !profile.HasEmail() {
		return model.Skipped(a.ProviderName(), a.ChannelType(),
			fmt.Sprintf("Customer %d has no email address", profile.CustomerID))
	}

	payload, err := json.Marshal(a.buildPayload(event, profile))
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
		a.logger.Info("SendGrid email sent",
			"notificationId", event.NotificationID,
			"to", model.MaskEmail(profile.Email),
			"msgId", msgID,
		)
		return model.Success(a.ProviderName(), a.ChannelType(), msgID, resp.StatusCode)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	a.logger.Warn("SendGrid rejected email",
		"notificationId", event.NotificationID,
		"http", resp.StatusCode,
	)
	return model.Failure(a.ProviderName(), a.ChannelType(),
		"HTTP "+strconv.Itoa(resp.StatusCode)+": "+string(body), resp.StatusCode)
}

// buildPayload produces the SendGrid v3 JSON structure, including custom_args
// carrying the notification identity for the audit trail.
func (a *SendGridAdapter) buildPayload(event *model.NotificationEvent, profile *model.CustomerProfile) map[string]any {
	payload := map[string]any{
		"personalizations": []map[string]any{{
			"to": []map[string]string{{
				"email": profile.Email,
				"name":  profile.FullName(),
			}},
		}},
		"from": map[string]string{
			"email": a.from,
			"name":  "AB Bank",
		},
		"subject": event.Subject,
		"content": []map[string]string{
			{"type": "text/plain", "value": event.Body},
			{"type": "text/html", "value": buildHTMLBody(event, profile)},
		},
		"custom_args": map[string]string{
			"notificationId":   event.NotificationID,
			"notificationType": string(event.NotificationType),
			"accountId":        strconv.FormatInt(event.AccountID, 10),
		},
	}
	if strings.TrimSpace(a.replyTo) != "" {
		payload["reply_to"] = map[string]string{"email": a.replyTo}
	}
	return payload
}

// Close releases the adapter's idle connections. Idempotent.
func (a *SendGridAdapter) Close() {
	a.client.CloseIdleConnections()
}
