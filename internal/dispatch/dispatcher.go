package dispatch

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/abbank/notification-gateway/internal/channel"
	"github.com/abbank/notification-gateway/internal/model"
)

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// Dispatcher routes one event to its required channels and walks each
// channel's ordered adapter list until a terminal outcome.
//
// Channel selection: an event whose severity is in the force-both set goes to
// both EMAIL and SMS regardless of its channel hint; otherwise the hint
// decides. Within a channel the first adapter returning SUCCESS wins and a
// SKIPPED result halts the walk, since the missing contact detail is a
// property of the profile, not of the provider. A FAILURE (after retries)
// falls through to the next adapter.
//
// Dispatch runs everything sequentially on the caller's goroutine: EMAIL
// strictly before SMS, adapters in configured order, no concurrency.
type Dispatcher struct {
	emailAdapters []channel.Adapter
	smsAdapters   []channel.Adapter
	retry         *RetryExecutor
	forceBoth     atomic.Pointer[map[model.Severity]struct{}]
	logger        *slog.Logger
}

// NewDispatcher creates a dispatcher over the given ordered adapter lists.
// forceBothSeverities names the severities that upgrade an event to both
// channels; an empty list means the channel hint alone decides.
func NewDispatcher(emailAdapters, smsAdapters []channel.Adapter, retry *RetryExecutor, forceBothSeverities []string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		emailAdapters: emailAdapters,
		smsAdapters:   smsAdapters,
		retry:         retry,
		logger:        slog.Default(),
	}
	d.SetForceBoth(forceBothSeverities)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WithLogger sets the logger for the dispatcher.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// SetForceBoth atomically replaces the force-both severity set. Safe to call
// from the config reload goroutine while dispatch is running.
func (d *Dispatcher) SetForceBoth(severities []string) {
	set := make(map[model.Severity]struct{}, len(severities))
	for _, s := range severities {
		set[model.Severity(s)] = struct{}{}
	}
	d.forceBoth.Store(&set)
}

// Dispatch sends event to every required channel and returns one result per
// required channel, EMAIL first. When no channel is required it warns and
// returns an empty slice.
func (d *Dispatcher) Dispatch(ctx context.Context, event *model.NotificationEvent, profile *model.CustomerProfile) []model.DeliveryResult {
	sendEmail := d.shouldSend(event, model.ChannelEmail)
	sendSMS := d.shouldSend(event, model.ChannelSMS)

	if !sendEmail && !sendSMS {
		d.logger.Warn("no channel selected for event",
			"notificationId", event.NotificationID,
			"channel", event.Channel,
			"severity", event.Severity,
		)
		return nil
	}

	var results []model.DeliveryResult
	if sendEmail {
		results = append(results, d.dispatchToChannel(ctx, event, profile, d.emailAdapters, model.ChannelEmail))
	}
	if sendSMS {
		results = append(results, d.dispatchToChannel(ctx, event, profile, d.smsAdapters, model.ChannelSMS))
	}
	return results
}

// dispatchToChannel walks the adapter list for one channel: first SUCCESS
// wins, SKIPPED is terminal, FAILURE advances to the next adapter. With no
// adapters configured it returns a single SKIPPED result.
func (d *Dispatcher) dispatchToChannel(ctx context.Context, event *model.NotificationEvent, profile *model.CustomerProfile, adapters []channel.Adapter, ch model.Channel) model.DeliveryResult {
	if len(adapters) == 0 {
		d.logger.Warn("no adapters configured for channel",
			"channel", ch,
			"notificationId", event.NotificationID,
		)
		return model.Skipped("none", ch, "No "+string(ch)+" adapters configured")
	}

	var last model.DeliveryResult
	for _, adapter := range adapters {
		desc := adapter.ProviderName() + "/" + string(adapter.ChannelType()) +
			" notificationId=" + event.NotificationID

		last = d.retry.Execute(ctx, func() model.DeliveryResult {
			return adapter.Send(ctx, event, profile)
		}, desc)

		if last.Status == model.StatusSuccess || last.Status == model.StatusSkipped {
			return last
		}

		d.logger.Warn("adapter failed after retries, trying next",
			"provider", adapter.ProviderName(),
			"notificationId", event.NotificationID,
		)
	}

	d.logger.Error("all adapters failed for channel",
		"channel", ch,
		"notificationId", event.NotificationID,
	)
	return last
}

func (d *Dispatcher) shouldSend(event *model.NotificationEvent, ch model.Channel) bool {
	if d.isForceBoth(event) {
		return true
	}
	return event.Channel == ch || event.Channel == model.ChannelBoth
}

// isForceBoth is false for events without a severity.
func (d *Dispatcher) isForceBoth(event *model.NotificationEvent) bool {
	if event.Severity == "" {
		return false
	}
	set := d.forceBoth.Load()
	_, ok := (*set)[event.Severity]
	return ok
}
