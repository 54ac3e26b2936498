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

const postmarkDefaultEndpoint = "https://api.postmarkapp.com/email"

// PostmarkOption configures a PostmarkAdapter.
type PostmarkOption func(*PostmarkAdapter)

// PostmarkAdapter delivers email via the Postmark Email API. Postmark answers
// 200 OK on success with the MessageID in the JSON response body.
type PostmarkAdapter struct {
	serverToken   string
	from          string
	messageStream string
	endpoint      string
	client        *http.Client
	logger        *slog.Logger
}

var _ Adapter = (*PostmarkAdapter)(nil)

// NewPostmarkAdapter creates a Postmark email adapter. messageStream may be
// empty, in which case Postmark's default transactional stream is used.
func NewPostmarkAdapter(serverToken, from, messageStream string, opts ...PostmarkOption) *PostmarkAdapter {
	a := &PostmarkAdapter{
		serverToken:   serverToken,
		from:          from,
		messageStream: messageStream,
		endpoint:      postmarkDefaultEndpoint,
		client:        &http.Client{Timeout: 15 * time.Second},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithPostmarkEndpoint overrides the API endpoint. Used in tests.
func WithPostmarkEndpoint(url string) PostmarkOption {
	return func(a *PostmarkAdapter) { a.endpoint = url }
}

// WithPostmarkHTTPClient sets the HTTP client.
func WithPostmarkHTTPClient(c *http.Client) PostmarkOption {
	return func(a *PostmarkAdapter) { a.client = c }
}

func (a *PostmarkAdapter) ProviderName() string       { return "postmark" }
func (a *PostmarkAdapter) ChannelType() model.Channel { return model.ChannelEmail }

// Configured reports whether a server token is present.
func (a *PostmarkAdapter) Configured() bool {
	return strings.TrimSpace(a.serverToken) != ""
}

// Send posts the event to the Postmark email endpoint.
func (a *PostmarkAdapter) Send(ctx context.Context, event *model.NotificationEvent, profile *model.CustomerProfile) model.DeliveryResult {
	if !profile.HasEmail() {
		return model.Skipped(a.ProviderName(), a.ChannelType(),
			fmt.Sprintf("Customer %d has no email address", profile.CustomerID))
	}

	body := map[string]any{
		"From":     a.from,
		"To":       profile.Email,
		"Subject":  event.Subject,
		"TextBody": event.Body,
		"HtmlBody": buildHTMLBody(event, profile),
		"Tag":      string(event.NotificationType),
		"Metadata": map[string]string{
			"notificationId": event.NotificationID,
			"accountId":      strconv.FormatInt(event.AccountID, 10),
		},
	}
	if strings.TrimSpace(a.messageStream) != "" {
		body["MessageStream"] = a.messageStream
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return model.Failure(a.ProviderName(), a.ChannelType(), "marshal payload: "+err.Error(), 0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return model.Failure(a.ProviderName(), a.ChannelType(), "create request: "+err.Error(), 0)
	}
	req.Header.Set("X-Postmark-Server-Token", a.serverToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return model.Failure(a.ProviderName(), a.ChannelType(), err.Error(), 0)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusOK {
		var parsed struct {
			MessageID string `json:"MessageID"`
		}
		msgID := "unknown"
		if err := json.Unmarshal(respBody, &parsed); err == nil && parsed.MessageID != "" {
			msgID = parsed.MessageID
		}
		a.logger.Info("Postmark email sent",
			"notificationId", event.NotificationID,
			"to", model.MaskEmail(profile.Email),
			"msgId", msgID,
		)
		return model.Success(a.ProviderName(), a.ChannelType(), msgID, resp.StatusCode)
	}

	a.logger.Warn("Postmark rejected email",
		"notificationId", event.NotificationID,
		"http", resp.StatusCode,
	)
	return model.Failure(a.ProviderName(), a.ChannelType(),
		"HTTP "+strconv.Itoa(resp.StatusCode)+": "+string(respBody), resp.StatusCode)
}

// Close releases the adapter's idle connections. Idempotent.
func (a *PostmarkAdapter) Close() {
	a.client.CloseIdleConnections()
}
