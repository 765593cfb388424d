// Package events consumes ban-state notifications published by user management and runs the ban cascade.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

// BanMessage is the JSON payload of a ban-state transition.
type BanMessage struct {
	UserID    string     `json:"userId"`
	IsBanned  bool       `json:"isBanned"`
	BanReason string     `json:"banReason,omitempty"`
	BanDate   *time.Time `json:"banDate,omitempty"`
}

// BanHandler reacts to a user being banned. *service.AuthService implements it.
type BanHandler interface {
	OnUserBanned(ctx context.Context, userID string) error
}

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// BanConsumer reads ban notifications from Kafka and invokes the cascade for transitions to banned.
// An offset is committed only after the cascade succeeded or the message was skipped, so a crash
// mid-cascade redelivers the message; the cascade is idempotent.
type BanConsumer struct {
	reader  messageReader
	handler BanHandler
	topic   string
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewKafkaBanConsumer returns a consumer on topic in consumer group groupID.
// Returns nil when brokers or topic is empty. Call Close when shutting down.
func NewKafkaBanConsumer(brokers []string, topic, groupID string, handler BanHandler) *BanConsumer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  1 * time.Second,
	})
	return newBanConsumer(reader, handler, topic)
}

func newBanConsumer(reader messageReader, handler BanHandler, topic string) *BanConsumer {
	return &BanConsumer{reader: reader, handler: handler, topic: topic, sleep: sleepCtx}
}

// Run consumes until ctx is cancelled. Returns nil on cancellation.
func (c *BanConsumer) Run(ctx context.Context) error {
	log.Printf("events: consuming ban notifications from %s", c.topic)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("events: kafka fetch error: %v", err)
			if c.sleep(ctx, initialBackoff) != nil {
				return nil
			}
			continue
		}
		if err := c.handle(ctx, msg); err != nil {
			// Only cancellation aborts handling; leave the offset uncommitted.
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Printf("events: commit offset %d failed: %v", msg.Offset, err)
		}
	}
}

// handle decodes msg and runs the cascade, retrying with backoff until it succeeds.
// Returns an error only when ctx is cancelled first.
func (c *BanConsumer) handle(ctx context.Context, msg kafka.Message) error {
	var ban BanMessage
	if err := json.Unmarshal(msg.Value, &ban); err != nil {
		log.Printf("events: skipping malformed ban message at offset %d: %v", msg.Offset, err)
		return nil
	}
	if ban.UserID == "" || !ban.IsBanned {
		return nil
	}
	backoff := initialBackoff
	for {
		err := c.handler.OnUserBanned(ctx, ban.UserID)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("events: ban cascade for user %s failed, retrying in %s: %v", ban.UserID, backoff, err)
		if err := c.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// Close closes the Kafka reader. Safe to call on a nil consumer.
func (c *BanConsumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
