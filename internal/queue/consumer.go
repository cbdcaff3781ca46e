package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/faceaccess/internal/models"
)

// AccessHandler receives each access-log entry read from the ACCESS stream.
type AccessHandler func(ctx context.Context, e *models.AccessLogEntry) error

type Consumer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewConsumer(natsURL string) (*Consumer, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Consumer{nc: nc, js: js}, nil
}

// ConsumeAccess delivers new access-log entries to handler until ctx is done.
// Each replica must use its own consumerName so every replica sees every entry.
func (c *Consumer) ConsumeAccess(ctx context.Context, consumerName string, handler AccessHandler) error {
	stream, err := c.js.Stream(ctx, AccessStreamName)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", AccessStreamName, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:              consumerName,
		Durable:           consumerName,
		AckPolicy:         jetstream.AckExplicitPolicy,
		AckWait:           10 * time.Second,
		MaxDeliver:        3,
		FilterSubject:     AccessSubjectBase + ".>",
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		InactiveThreshold: time.Hour,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			batch, err := cons.Fetch(10, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				time.Sleep(time.Second)
				continue
			}

			for msg := range batch.Messages() {
				if err := handleAccess(ctx, msg.Data(), handler); err != nil {
					slog.Error("process access entry", "subject", msg.Subject(), "error", err)
					_ = msg.Nak()
				} else {
					_ = msg.Ack()
				}
			}
		}
	}()

	slog.Info("access consumer started", "consumer", consumerName)
	return nil
}

func handleAccess(ctx context.Context, data []byte, handler AccessHandler) error {
	var e models.AccessLogEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("unmarshal access entry: %w", err)
	}
	return handler(ctx, &e)
}

// SubscribeInvalidations calls onInvalidate for every registry change broadcast,
// including this replica's own.
func (c *Consumer) SubscribeInvalidations(onInvalidate func()) (*nats.Subscription, error) {
	sub, err := c.nc.Subscribe(InvalidateSubject, func(*nats.Msg) {
		onInvalidate()
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", InvalidateSubject, err)
	}
	return sub, nil
}

func (c *Consumer) Close() {
	c.nc.Close()
}
