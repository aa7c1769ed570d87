// Package consumer runs a franz-go group consumer and hands each record to a
// Handler on a bounded worker pool.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"filer/internal/platform/metrics"
)

// Message is a consumed record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes one message. A returned error stops the consumer
// without committing the batch, so the batch is redelivered.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// Config selects the group, topics and pool size.
type Config struct {
	Brokers     []string
	Group       string
	Topics      []string
	Concurrency int
}

// Consumer polls batches and commits them once every message is handled.
type Consumer struct {
	client      *kgo.Client
	handler     Handler
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option configures a Consumer.
type Option func(*Consumer)

func WithLogger(l *slog.Logger) Option {
	return func(c *Consumer) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Consumer) { c.metrics = m }
}

// New connects a group consumer.
func New(cfg Config, handler Handler, opts ...Option) (*Consumer, error) {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	c := &Consumer{
		client:      client,
		handler:     handler,
		concurrency: cfg.Concurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run consumes until ctx is cancelled or a handler fails.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("fetch failed", "topic", topic, "partition", partition, "error", err)
		})

		records := fetches.Records()
		if err := c.handleBatch(ctx, records); err != nil {
			c.client.AllowRebalance()
			return err
		}
		if len(records) > 0 {
			if err := c.client.CommitRecords(ctx, records...); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("commit failed", "records", len(records), "error", err)
			}
		}
		c.client.AllowRebalance()
	}
}

func (c *Consumer) handleBatch(ctx context.Context, records []*kgo.Record) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, rec := range records {
		msg := toMessage(rec)
		g.Go(func() error {
			start := time.Now()
			err := c.handler.Handle(gctx, msg)
			c.metrics.ObserveMessage(msg.Topic, err, time.Since(start))
			if err != nil {
				return fmt.Errorf("handle %s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Ping checks that a broker is reachable.
func (c *Consumer) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() {
	c.client.Close()
}

func toMessage(rec *kgo.Record) *Message {
	headers := make(map[string]string, len(rec.Headers))
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Key:       rec.Key,
		Value:     rec.Value,
		Headers:   headers,
		Timestamp: rec.Timestamp,
	}
}
