package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/abbank/notification-gateway/internal/config"
)

// Option configures the Consumer.
type Option func(*Consumer)

// Consumer owns the consume-commit loop. It joins a consumer group on the
// configured topics, drains records in batches of up to maxPollRecords,
// processes each record with full error isolation, and commits offsets
// synchronously once the whole batch has been dispatched.
//
// Offsets are never committed ahead of processing, so a crash mid-batch
// re-delivers the batch on restart. Delivery is at-least-once; adapters are
// expected to be idempotent on notificationId.
type Consumer struct {
	group     sarama.ConsumerGroup
	topics    []string
	processor *Processor
	stats     *Stats
	maxPoll   int
	logger    *slog.Logger
	onReady   func()
}

// New creates a consumer group client from the bus configuration. Offset
// auto-commit is disabled; the loop commits explicitly after each batch.
func New(cfg config.KafkaConfig, processor *Processor, stats *Stats, opts ...Option) (*Consumer, error) {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.GroupID
	sc.Consumer.Group.Session.Timeout = time.Duration(cfg.SessionTimeoutMs) * time.Millisecond
	sc.Consumer.Group.Heartbeat.Interval = time.Duration(cfg.HeartbeatIntervalMs) * time.Millisecond
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.AutoCommit.Enable = false
	if cfg.AutoOffsetReset == "earliest" {
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	group, err := sarama.NewConsumerGroup(cfg.Bootstrap, cfg.GroupID, sc)
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	c := &Consumer{
		group:     group,
		topics:    cfg.Topics,
		processor: processor,
		stats:     stats,
		maxPoll:   cfg.MaxPollRecords,
		logger:    slog.Default(),
	}
	if c.maxPoll < 1 {
		c.maxPoll = 500
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithConsumerLogger sets the logger for the consume loop.
func WithConsumerLogger(l *slog.Logger) Option {
	return func(c *Consumer) { c.logger = l }
}

// WithReadyFunc registers a callback invoked each time a group session is set
// up and the loop is about to start claiming records.
func WithReadyFunc(fn func()) Option {
	return func(c *Consumer) { c.onReady = fn }
}

// Run blocks consuming records until ctx is cancelled or the group client
// fails, then logs the final counters. Consume returns nil between
// rebalances, so it is called in a loop; a non-nil error from Consume that
// is not the shutdown path means the client could not recover (brokers
// unreachable, authentication rejected) and is fatal for the process.
func (c *Consumer) Run(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.logger.Error("consumer group error", "error", err)
		}
	}()

	c.logger.Info("consume loop starting", "topics", c.topics)
	handler := &groupHandler{consumer: c}

	defer func() {
		snap := c.stats.Snapshot()
		c.logger.Info("consume loop stopped",
			"received", snap.Received,
			"delivered", snap.Delivered,
			"skipped", snap.Skipped,
			"failed", snap.Failed,
		)
	}()

	for {
		err := c.group.Consume(ctx, c.topics, handler)
		switch {
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			return nil
		case ctx.Err() != nil:
			return nil
		case err != nil:
			c.logger.Error("fatal consumer group error", "error", err)
			return fmt.Errorf("consume: %w", err)
		}
	}
}

// Close shuts down the consumer group client.
func (c *Consumer) Close() error {
	return c.group.Close()
}

// groupHandler adapts the batch loop onto sarama's consumer group callbacks.
type groupHandler struct {
	consumer *Consumer
}

var _ sarama.ConsumerGroupHandler = (*groupHandler)(nil)

func (h *groupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.consumer.logger.Info("consumer group session started",
		"memberId", session.MemberID(),
		"claims", session.Claims(),
	)
	if h.consumer.onReady != nil {
		h.consumer.onReady()
	}
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.consumer.logger.Info("consumer group session ended")
	return nil
}

// ConsumeClaim blocks for the first record of a batch, then greedily drains
// whatever is already buffered (up to maxPollRecords), processes the batch in
// order, marks every record, and commits synchronously.
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		var batch []*sarama.ConsumerMessage

		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			batch = append(batch, msg)
		case <-session.Context().Done():
			return nil
		}

	drain:
		for len(batch) < h.consumer.maxPoll {
			select {
			case msg, ok := <-claim.Messages():
				if !ok {
					break drain
				}
				batch = append(batch, msg)
			default:
				break drain
			}
		}

		for _, msg := range batch {
			h.consumer.processor.Process(session.Context(), msg)
			session.MarkMessage(msg, "")
		}
		session.Commit()
	}
}
