package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// NotificationType classifies the business meaning of an event.
type NotificationType string

const (
	TypeFraudAlert        NotificationType = "FRAUD_ALERT"
	TypeHighValueAlert    NotificationType = "HIGH_VALUE_ALERT"
	TypeBalanceUpdate     NotificationType = "BALANCE_UPDATE"
	TypeDormancyAlert     NotificationType = "DORMANCY_ALERT"
	TypeDailySpendSummary NotificationType = "DAILY_SPEND_SUMMARY"
)

// Severity is the urgency of an event. The empty string means the
// producer did not set one.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Channel is the transport hint carried on an event, or the transport
// category of an adapter.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
	ChannelBoth  Channel = "BOTH"
)

// NotificationEvent is the canonical event consumed from the notification
// topics. It mirrors the producer's JSON schema field for field; unknown
// fields are ignored on decode.
type NotificationEvent struct {
	NotificationID   string           `json:"notificationId"`
	NotificationType NotificationType `json:"notificationType,omitempty"`
	Severity         Severity         `json:"severity,omitempty"`
	Channel          Channel          `json:"channel,omitempty"`
	AccountID        int64            `json:"accountId"`
	CustomerID       int64            `json:"customerId,omitempty"`
	AccountNumber    string           `json:"accountNumber,omitempty"`
	Subject          string           `json:"subject"`
	Body             string           `json:"body"`
	EventTime        *time.Time       `json:"eventTime,omitempty"`
	GeneratedAt      *time.Time       `json:"generatedAt,omitempty"`
	Metadata         map[string]any   `json:"metadata,omitempty"`
}

// DecodeEvent parses a notification event from its JSON wire form.
// A missing or empty notificationId is a decode failure; unknown enum
// values for severity, channel, or type are decode failures too, since
// downstream routing depends on them.
func DecodeEvent(data []byte) (*NotificationEvent, error) {
	var ev NotificationEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("parse notification event: %w", err)
	}
	if strings.TrimSpace(ev.NotificationID) == "" {
		return nil, fmt.Errorf("notification event missing notificationId")
	}
	if ev.NotificationType != "" && !validType(ev.NotificationType) {
		return nil, fmt.Errorf("unknown notificationType %q", ev.NotificationType)
	}
	if ev.Severity != "" && !validSeverity(ev.Severity) {
		return nil, fmt.Errorf("unknown severity %q", ev.Severity)
	}
	if ev.Channel != "" && ev.Channel != ChannelEmail && ev.Channel != ChannelSMS && ev.Channel != ChannelBoth {
		return nil, fmt.Errorf("unknown channel %q", ev.Channel)
	}
	return &ev, nil
}

// Encode serialises the event back to its JSON wire form.
func (e *NotificationEvent) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode notification event: %w", err)
	}
	return data, nil
}

func validType(t NotificationType) bool {
	switch t {
	case TypeFraudAlert, TypeHighValueAlert, TypeBalanceUpdate, TypeDormancyAlert, TypeDailySpendSummary:
		return true
	}
	return false
}

func validSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

func (e *NotificationEvent) String() string {
	return fmt.Sprintf("NotificationEvent{id=%s, type=%s, severity=%s, accountId=%d}",
		e.NotificationID, e.NotificationType, e.Severity, e.AccountID)
}
