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

const termiiDefaultEndpoint = "https://v3.api.termii.com/api/sms/send"

// TermiiOption configures a TermiiAdapter.
type TermiiOption func(*TermiiAdapter)

// TermiiAdapter delivers SMS via the Termii messaging API, a Nigerian
// provider with strong local delivery rates. Termii answers 200 OK on
// success with a message_id in the JSON body.
type TermiiAdapter struct {
	apiKey   string
	senderID string
	channel  string // Termii route: "generic", "dnd", or "whatsapp"
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

var _ Adapter = (*TermiiAdapter)(nil)

// NewTermiiAdapter creates a Termii SMS adapter. channel defaults to
// "generic" when empty.
func NewTermiiAdapter(apiKey, senderID, channel string, opts ...TermiiOption) *TermiiAdapter {
	if strings.TrimSpace(channel) == "" {
		channel = "generic"
	}
	a := &TermiiAdapter{
		apiKey:   apiKey,
		senderID: senderID,
		channel:  channel,
		endpoint: termiiDefaultEndpoint,
		client:   &http.Client{Timeout: 20 * time.Second},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithTermiiEndpoint overrides the API endpoint. Used in tests.
func WithTermiiEndpoint(url string) TermiiOption {
	return func(a *TermiiAdapter) { a.endpoint = url }
}

// WithTermiiHTTPClient sets the HTTP client.
func WithTermiiHTTPClient(c *http.Client) TermiiOption {
	return func(a *TermiiAdapter) { a.client = c }
}

func (a *TermiiAdapter) ProviderName() string       { return "termii" }
func (a *TermiiAdapter) ChannelType() model.Channel { return model.ChannelSMS }

// Configured reports whether the API key and sender ID are set.
func (a *TermiiAdapter) Configured() bool {
	return strings.TrimSpace(a.apiKey) != "" && strings.TrimSpace(a.senderID) != ""
}

// Send posts the event to the Termii SMS endpoint.
func (a *TermiiAdapter) Send(ctx context.Context, event *model.NotificationEvent, profile *model.CustomerProfile) model.DeliveryResult {
	if !profile.HasPhone() {
		return model.Skipped(a.ProviderName(), a.ChannelType(),
			fmt.Sprintf("Customer %d has no phone number", profile.CustomerID))
	}

	payload, err := json.Marshal(map[string]any{
		"api_key": a.apiKey,
		"to":      profile.Phone,
		"from":    a.senderID,
		"sms":     buildSMSText(event),
		"type":    "plain",
		"channel": a.channel,
	})
	if err != nil {
		return model.Failure(a.ProviderName(), a.ChannelType(), "marshal payload: "+err.Error(), 0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return model.Failure(a.ProviderName(), a.ChannelType(), "create request: "+err.Error(), 0)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return model.Failure(a.ProviderName(), a.ChannelType(), err.Error(), 0)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusOK {
		var parsed struct {
			MessageID string `json:"message_id"`
		}
		msgID := "unknown"
		if err := json.Unmarshal(respBody, &parsed); err == nil && parsed.MessageID != "" {
			msgID = parsed.MessageID
		}
		a.logger.Info("Termii SMS sent",
			"notificationId", event.NotificationID,
			"to", model.MaskPhone(profile.Phone),
			"msgId", msgID,
		)
		return model.Success(a.ProviderName(), a.ChannelType(), msgID, resp.StatusCode)
	}

	a.logger.Warn("Termii rejected SMS",
		"notificationId", event.NotificationID,
		"http", resp.StatusCode,
	)
	return model.Failure(a.ProviderName(), a.ChannelType(),
		"HTTP "+strconv.Itoa(resp.StatusCode)+": "+string(respBody), resp.StatusCode)
}

// Close releases the adapter's idle connections. Idempotent.
func (a *TermiiAdapter) Close() {
	a.client.CloseIdleConnections()
}
