package model

import (
	"fmt"
	"time"
)

// DeliveryStatus is the outcome class of one provider attempt.
type DeliveryStatus string

const (
	// StatusSuccess means the provider accepted the message.
	StatusSuccess DeliveryStatus = "SUCCESS"
	// StatusFailure means a transient or unknown error; eligible for retry.
	StatusFailure DeliveryStatus = "FAILURE"
	// StatusSkipped means a permanent condition (no contact on the profile,
	// or no adapter configured); never retried.
	StatusSkipped DeliveryStatus = "SKIPPED"
)

// DeliveryResult is the immutable outcome of a single dispatch attempt.
// ProviderMessageID is the external reference returned by the provider
// (SendGrid message ID, Twilio SID, ...).
type DeliveryResult struct {
	Status            DeliveryStatus
	Provider          string
	Channel           Channel
	ProviderMessageID string // empty on failure/skip
	ErrorMessage      string // empty on success
	HTTPStatusCode    int    // 0 if not applicable
	DeliveredAt       time.Time
}

// Success builds a SUCCESS result.
func Success(provider string, channel Channel, messageID string, httpCode int) DeliveryResult {
	return DeliveryResult{
		Status:            StatusSuccess,
		Provider:          provider,
		Channel:           channel,
		ProviderMessageID: messageID,
		HTTPStatusCode:    httpCode,
		DeliveredAt:       time.Now(),
	}
}

// Failure builds a FAILURE result. httpCode is 0 when the error happened
// below the HTTP layer.
func Failure(provider string, channel Channel, errMsg string, httpCode int) DeliveryResult {
	return DeliveryResult{
		Status:         StatusFailure,
		Provider:       provider,
		Channel:        channel,
		ErrorMessage:   errMsg,
		HTTPStatusCode: httpCode,
		DeliveredAt:    time.Now(),
	}
}

// Skipped builds a SKIPPED result with the permanent-condition reason.
func Skipped(provider string, channel Channel, reason string) DeliveryResult {
	return DeliveryResult{
		Status:       StatusSkipped,
		Provider:     provider,
		Channel:      channel,
		ErrorMessage: reason,
		DeliveredAt:  time.Now(),
	}
}

// IsSuccess reports whether the provider accepted the message.
func (r DeliveryResult) IsSuccess() bool { return r.Status == StatusSuccess }

func (r DeliveryResult) String() string {
	s := fmt.Sprintf("DeliveryResult{provider=%s, channel=%s, status=%s", r.Provider, r.Channel, r.Status)
	if r.ProviderMessageID != "" {
		s += ", msgId=" + r.ProviderMessageID
	}
	if r.ErrorMessage != "" {
		s += ", error=" + r.ErrorMessage
	}
	if r.HTTPStatusCode > 0 {
		s += fmt.Sprintf(", http=%d", r.HTTPStatusCode)
	}
	return s + "}"
}
