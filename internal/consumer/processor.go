package consumer

import (
	"context"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/abbank/notification-gateway/internal/model"
	"github.com/abbank/notification-gateway/internal/resolver"
)

// Dispatcher is the routing surface the processor drives. Implemented by
// dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, event *model.NotificationEvent, profile *model.CustomerProfile) []model.DeliveryResult
}

// ProcessorOption configures the Processor.
type ProcessorOption func(*Processor)

// Processor turns one bus record into a dispatch and classifies the outcome.
//
// Every failure mode is contained to the record being processed: a decode
// error, a missing profile, a panicking adapter. Nothing the processor does
// stops the consume loop, and the record's offset is always eligible for
// commit afterwards.
type Processor struct {
	resolver    resolver.Resolver
	dispatcher  Dispatcher
	dlq         DLQPublisher
	onExhausted string
	stats       *Stats
	logger      *slog.Logger
}

// NewProcessor creates a record processor. dlq may be nil, in which case the
// "kafka" exhausted policy degrades to logging only.
func NewProcessor(res resolver.Resolver, disp Dispatcher, stats *Stats, opts ...ProcessorOption) *Processor {
	p := &Processor{
		resolver:    res,
		dispatcher:  disp,
		onExhausted: "log",
		stats:       stats,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithExhaustedPolicy sets the exhausted-delivery policy ("log" or "kafka")
// and the dead-letter publisher backing the kafka policy.
func WithExhaustedPolicy(policy string, dlq DLQPublisher) ProcessorOption {
	return func(p *Processor) {
		p.onExhausted = policy
		p.dlq = dlq
	}
}

// WithProcessorLogger sets the logger for the processor.
func WithProcessorLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = l }
}

// Process handles one record end to end. It never panics and never returns
// an error; the outcome is recorded in the stats counters.
func (p *Processor) Process(ctx context.Context, msg *sarama.ConsumerMessage) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic while processing record",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"panic", r,
			)
			p.stats.failed.Add(1)
		}
	}()

	p.stats.received.Add(1)

	event, err := model.DecodeEvent(msg.Value)
	if err != nil {
		p.logger.Error("undecodable record",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		p.stats.failed.Add(1)
		return
	}

	profile, err := p.resolver.Resolve(ctx, event.AccountID)
	if err != nil {
		p.logger.Error("customer resolution failed",
			"notificationId", event.NotificationID,
			"accountId", event.AccountID,
			"error", err,
		)
		p.stats.skipped.Add(1)
		return
	}
	if profile == nil {
		p.logger.Warn("no customer profile, skipping",
			"notificationId", event.NotificationID,
			"accountId", event.AccountID,
		)
		p.stats.skipped.Add(1)
		return
	}

	results := p.dispatcher.Dispatch(ctx, event, profile)
	anySuccess := false
	for _, r := range results {
		p.logger.Info("delivery result",
			"notificationId", event.NotificationID,
			"provider", r.Provider,
			"channel", r.Channel,
			"status", r.Status,
			"messageId", r.ProviderMessageID,
			"error", r.ErrorMessage,
		)
		if r.Status == model.StatusSuccess {
			anySuccess = true
		}
	}

	if anySuccess {
		p.stats.delivered.Add(1)
		return
	}

	p.stats.failed.Add(1)
	p.exhausted(event, msg.Value)
}

// exhausted applies the configured policy for an event no channel delivered.
// The offset is committed regardless; a failing dead-letter publish is logged
// and dropped so a poison record cannot loop forever.
func (p *Processor) exhausted(event *model.NotificationEvent, payload []byte) {
	p.logger.Error("notification could not be delivered",
		"notificationId", event.NotificationID,
		"notificationType", event.NotificationType,
		"accountId", event.AccountID,
	)

	if p.onExhausted != "kafka" || p.dlq == nil {
		return
	}
	if err := p.dlq.Publish(event.NotificationID, payload); err != nil {
		p.logger.Error("dead-letter publish failed",
			"notificationId", event.NotificationID,
			"error", err,
		)
	}
}
