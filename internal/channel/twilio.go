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

const twilioDefaultBaseURL = "https://api.twilio.com"

// TwilioOption configures a TwilioAdapter.
type TwilioOption func(*TwilioAdapter)

// TwilioAdapter delivers SMS via Twilio Programmable SMS. The Messages
// endpoint takes a form POST with basic auth and answers 201 Created with
// the message SID in the JSON body.
type TwilioAdapter struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	client     *http.Client
	logger     *slog.Logger
}

var _ Adapter = (*TwilioAdapter)(nil)

// NewTwilioAdapter creates a Twilio SMS adapter. fromNumber is an E.164
// number or a registered alphanumeric sender ID.
func NewTwilioAdapter(accountSID, authToken, fromNumber string, opts ...TwilioOption) *TwilioAdapter {
	a := &TwilioAdapter{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    twilioDefaultBaseURL,
		client:     &http.Client{Timeout: 20 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithTwilioBaseURL overrides the API base URL. Used in tests.
func WithTwilioBaseURL(url string) TwilioOption {
	return func(a *TwilioAdapter) { a.baseURL = url }
}

// WithTwilioHTTPClient sets the HTTP client.
func WithTwilioHTTPClient(c *http.Client) TwilioOption {
	return func(a *TwilioAdapter) { a.client = c }
}

func (a *TwilioAdapter) ProviderName() string       { return "twilio" }
func (a *TwilioAdapter) ChannelType() model.Channel { return model.ChannelSMS }

// Configured reports whether the account SID, auth token, and sender are set.
func (a *TwilioAdapter) Configured() bool {
	return strings.TrimSpace(a.accountSID) != "" &&
		strings.TrimSpace(a.authToken) != "" &&
		strings.TrimSpace(a.fromNumber) != ""
}

// Send posts the event to the Twilio Messages resource.
func (a *TwilioAdapter) Send(ctx context.Context, event *model.NotificationEvent, profile *model.CustomerProfile) model.DeliveryResult {
	if !profile.HasPhone() {
		return model.Skipped(a.ProviderName(), a.ChannelType(),
			fmt.Sprintf("Customer %d has no phone number", profile.CustomerID))
	}

	endpoint := a.baseURL + "/2010-04-01/Accounts/" + a.accountSID + "/Messages.json"
	form := url.Values{
		"To":   {profile.Phone},
		"From": {a.fromNumber},
		"Body": {buildSMSText(event)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return model.Failure(a.ProviderName(), a.ChannelType(), "create request: "+err.Error(), 0)
	}
	req.SetBasicAuth(a.accountSID, a.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return model.Failure(a.ProviderName(), a.ChannelType(), err.Error(), 0)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusCreated {
		var parsed struct {
			SID string `json:"sid"`
		}
		sid := "unknown"
		if err := json.Unmarshal(respBody, &parsed); err == nil && parsed.SID != "" {
			sid = parsed.SID
		}
		a.logger.Info("Twilio SMS sent",
			"notificationId", event.NotificationID,
			"to", model.MaskPhone(profile.Phone),
			"sid", sid,
		)
		return model.Success(a.ProviderName(), a.ChannelType(), sid, resp.StatusCode)
	}

	a.logger.Warn("Twilio rejected SMS",
		"notificationId", event.NotificationID,
		"http", resp.StatusCode,
	)
	return model.Failure(a.ProviderName(), a.ChannelType(),
		"HTTP "+strconv.Itoa(resp.StatusCode)+": "+string(respBody), resp.StatusCode)
}

// Close releases the adapter's idle connections. Idempotent.
func (a *TwilioAdapter) Close() {
	a.client.CloseIdleConnections()
}
