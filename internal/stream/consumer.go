// Package stream reads catalog lifecycle events back off their Redis stream.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrMalformedMessage = errors.New("malformed stream message")

// Event is the envelope the outbox relay writes into the "data" field.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     string          `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`

	MessageID string `json:"-"`
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Client is the part of the redis client the consumer needs.
type Client interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XAutoClaimJustID(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimJustIDCmd
}

type Config struct {
	Stream   string
	Group    string
	Consumer string
	Block    time.Duration
	Count    int64

	// ReclaimInterval is how often pending messages are read again.
	ReclaimInterval time.Duration
	// ClaimMinIdle is how long another consumer's message must sit
	// unacknowledged before this consumer takes it over.
	ClaimMinIdle time.Duration
}

// Consumer reads a stream through a consumer group. A message is
// acknowledged only after the handler accepted it; handler failures stay
// pending and are redelivered at startup and every ReclaimInterval.
type Consumer struct {
	client  Client
	cfg     Config
	handler Handler
	logger  *slog.Logger
	backoff time.Duration
}

func NewConsumer(client Client, cfg Config, handler Handler, logger *slog.Logger) *Consumer {
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.Count <= 0 {
		cfg.Count = 10
	}
	if cfg.ReclaimInterval <= 0 {
		cfg.ReclaimInterval = 30 * time.Second
	}
	if cfg.ClaimMinIdle <= 0 {
		cfg.ClaimMinIdle = time.Minute
	}
	return &Consumer{
		client:  client,
		cfg:     cfg,
		handler: handler,
		logger:  logger.With("component", "stream_consumer", "stream", cfg.Stream, "group", cfg.Group),
		backoff: time.Second,
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("starting consumer", "consumer", c.cfg.Consumer)

	var nextReclaim time.Time
	for {
		if ctx.Err() != nil {
			c.logger.Info("consumer stopped")
			return ctx.Err()
		}

		if now := time.Now(); !now.Before(nextReclaim) {
			if err := c.reclaim(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error("failed to reclaim pending messages", "error", err)
			}
			nextReclaim = now.Add(c.cfg.ReclaimInterval)
		}

		if err := c.poll(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("failed to read from stream", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(c.backoff):
			}
		}
	}
}

func (c *Consumer) poll(ctx context.Context) error {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.Count,
		Block:    c.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, s := range streams {
		for _, msg := range s.Messages {
			c.process(ctx, msg)
		}
	}
	return nil
}

// reclaim takes over messages other consumers left idle and then replays
// everything pending for this consumer.
func (c *Consumer) reclaim(ctx context.Context) error {
	if err := c.claimIdle(ctx); err != nil {
		return err
	}
	return c.drainPending(ctx)
}

func (c *Consumer) claimIdle(ctx context.Context) error {
	start := "0-0"
	for {
		ids, next, err := c.client.XAutoClaimJustID(ctx, &redis.XAutoClaimArgs{
			Stream:   c.cfg.Stream,
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			MinIdle:  c.cfg.ClaimMinIdle,
			Start:    start,
			Count:    c.cfg.Count,
		}).Result()
		if err != nil {
			return fmt.Errorf("failed to claim idle messages: %w", err)
		}
		if len(ids) > 0 {
			c.logger.Info("claimed idle messages", "count", len(ids))
		}
		if next == "" || next == "0-0" {
			return nil
		}
		start = next
	}
}

// drainPending reads this consumer's pending entries from the start of its
// history. The cursor moves past each entry, so one that fails again stays
// pending until the next reclaim.
func (c *Consumer) drainPending(ctx context.Context) error {
	cursor := "0"
	for {
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			Streams:  []string{c.cfg.Stream, cursor},
			Count:    c.cfg.Count,
			Block:    -1,
		}).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read pending messages: %w", err)
		}

		read := 0
		for _, s := range streams {
			for _, msg := range s.Messages {
				c.process(ctx, msg)
				cursor = msg.ID
				read++
			}
		}
		if read == 0 {
			return nil
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	event, err := Decode(msg)
	if err != nil {
		// Redelivering a message that cannot be decoded never succeeds.
		c.logger.Error("dropping message", "id", msg.ID, "error", err)
		c.ack(ctx, msg.ID)
		return
	}

	if err := c.handler.Handle(ctx, event); err != nil {
		c.logger.Error("failed to handle event", "id", msg.ID, "type", event.Type, "error", err)
		return
	}
	c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		c.logger.Error("failed to acknowledge message", "id", id, "error", err)
	}
}

// Decode parses the relay envelope of one stream message.
func Decode(msg redis.XMessage) (Event, error) {
	raw, ok := msg.Values["data"].(string)
	if !ok {
		return Event{}, fmt.Errorf("%w: %s has no data field", ErrMalformedMessage, msg.ID)
	}

	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return Event{}, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, msg.ID, err)
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("%w: %s has no type", ErrMalformedMessage, msg.ID)
	}
	event.MessageID = msg.ID
	return event, nil
}
