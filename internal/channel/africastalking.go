package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/abbank/notification-gateway/internal/model"
)

const (
	africasTalkingLiveURL    = "https://api.africastalking.com/version1/messaging"
	africasTalkingSandboxURL = "https://api.sandbox.africastalking.com/version1/messaging"
)

// AfricasTalkingOption configures an AfricasTalkingAdapter.
type AfricasTalkingOption func(*AfricasTalkingAdapter)

// AfricasTalkingAdapter delivers SMS via the Africa's Talking messaging API.
// The endpoint takes a form POST and answers 201 Created; the per-recipient
// status inside SMSMessageData decides the actual outcome.
type AfricasTalkingAdapter struct {
	apiKey   string
	username string
	senderID string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

var _ Adapter = (*AfricasTalkingAdapter)(nil)

// NewAfricasTalkingAdapter creates an Africa's Talking SMS adapter. sandbox
// routes traffic to the sandbox environment.
func NewAfricasTalkingAdapter(apiKey, username, senderID string, sandbox bool, opts ...AfricasTalkingOption) *AfricasTalkingAdapter {
	endpoint := africasTalkingLiveURL
	if sandbox {
		endpoint = africasTalkingSandboxURL
	}
	a := &AfricasTalkingAdapter{
		apiKey:   apiKey,
		username: username,
		senderID: senderID,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 20 * time.Second},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithAfricasTalkingEndpoint overrides the API endpoint. Used in tests.
func WithAfricasTalkingEndpoint(url string) AfricasTalkingOption {
	return func(a *AfricasTalkingAdapter) { a.endpoint = url }
}

// WithAfricasTalkingHTTPClient sets the HTTP client.
func WithAfricasTalkingHTTPClient(c *http.Client) AfricasTalkingOption {
	return func(a *AfricasTalkingAdapter) { a.client = c }
}

func (a *AfricasTalkingAdapter) ProviderName() string       { return "africas-talking" }
func (a *AfricasTalkingAdapter) ChannelType() model.Channel { return model.ChannelSMS }

// Configured reports whether the API key, username, and sender ID are set.
func (a *AfricasTalkingAdapter) Configured() bool {
	return strings.TrimSpace(a.apiKey) != "" &&
		strings.TrimSpace(a.username) != "" &&
		strings.TrimSpace(a.senderID) != ""
}

// Send posts the event to the Africa's Talking messaging endpoint.
func (a *AfricasTalkingAdapter) Send(ctx context.Context, event *model.NotificationEvent, profile *model.CustomerProfile) model.DeliveryResult {
	if !profile.HasPhone() {
		return model.Skipped(a.ProviderName(), a.ChannelType(),
			fmt.Sprintf("Customer %d has no phone number", profile.CustomerID))
	}

	form := url.Values{
		"username": {a.username},
		"to":       {profile.Phone},
		"from":     {a.senderID},
		"message":  {buildSMSText(event)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return model.Failure(a.ProviderName(), a.ChannelType(), "create request: "+err.Error(), 0)
	}
	req.Header.Set("apiKey", a.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return model.Failure(a.ProviderName(), a.ChannelType(), err.Error(), 0)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusCreated {
		a.logger.Warn("Africa's Talking rejected SMS",
			"notificationId", event.NotificationID,
			"http", resp.StatusCode,
		)
		return model.Failure(a.ProviderName(), a.ChannelType(),
			"HTTP "+strconv.Itoa(resp.StatusCode)+": "+string(respBody), resp.StatusCode)
	}

	var parsed struct {
		SMSMessageData struct {
			Recipients []struct {
				Status    string `json:"status"`
				MessageID string `json:"messageId"`
			} `json:"Recipients"`
		} `json:"SMSMessageData"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil || len(parsed.SMSMessageData.Recipients) == 0 {
		return model.Failure(a.ProviderName(), a.ChannelType(),
			"unexpected response: "+string(respBody), resp.StatusCode)
	}

	recipient := parsed.SMSMessageData.Recipients[0]
	if recipient.Status != "Success" {
		a.logger.Warn("Africa's Talking recipient rejected",
			"notificationId", event.NotificationID,
			"status", recipient.Status,
		)
		return model.Failure(a.ProviderName(), a.ChannelType(),
			"recipient status: "+recipient.Status, resp.StatusCode)
	}

	msgID := recipient.MessageID
	if msgID == "" {
		msgID = "unknown"
	}
	a.logger.Info("Africa's Talking SMS sent",
		"notificationId", event.NotificationID,
		"to", model.MaskPhone(profile.Phone),
		"msgId", msgID,
	)
	return model.Success(a.ProviderName(), a.ChannelType(), msgID, resp.StatusCode)
}

// Close releases the adapter's idle connections. Idempotent.
func (a *AfricasTalkingAdapter) Close() {
	a.client.CloseIdleConnections()
}
