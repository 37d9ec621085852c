package publisher

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/bakery-pos/internal/ledger"
	"github.com/fjod/go_cart/bakery-pos/internal/metrics"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	DefaultTopic     = "sales-completed"
	defaultBatchSize = 100
)

// messageWriter is satisfied by *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller publishes the sale.completed events written by checkouts.
type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	batchSize int
	outbox    ledger.Outbox
	writer    messageWriter
	breaker   *gobreaker.CircuitBreaker[struct{}]
	logger    *zap.Logger
}

func NewOutboxPoller(outbox ledger.Outbox, logger *zap.Logger, topic string, brokers ...string) *OutboxPoller {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newOutboxPoller(outbox, w, logger, time.Second)
}

func newOutboxPoller(outbox ledger.Outbox, writer messageWriter, logger *zap.Logger, tick time.Duration) *OutboxPoller {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &OutboxPoller{
		timeout:   5 * time.Second,
		eventTick: tick,
		batchSize: defaultBatchSize,
		outbox:    outbox,
		writer:    writer,
		logger:    logger,
	}
	p.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka-publisher",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return p
}

// Run polls until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.outbox.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			metrics.OutboxPublished.WithLabelValues("failed").Inc()
			p.logger.Error("failed to publish outbox event", zap.Int64("event_id", event.ID), zap.Error(err))
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return
			}
			continue
		}

		if err := p.outbox.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.logger.Error("failed to mark outbox event as processed", zap.Int64("event_id", event.ID), zap.Error(err))
			continue
		}
		metrics.OutboxPublished.WithLabelValues("published").Inc()
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *ledger.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.CheckoutID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	_, err := p.breaker.Execute(func() (struct{}, error) {
		writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return struct{}{}, p.writer.WriteMessages(writeCtx, msg)
	})
	return err
}
