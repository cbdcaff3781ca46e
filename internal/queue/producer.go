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

const (
	AccessStreamName  = "ACCESS"
	AccessSubjectBase = "access"

	// InvalidateSubject carries registry invalidations between replicas over core NATS.
	InvalidateSubject = "registry.invalidate"
)

// AccessSubject returns the subject an access-log entry is published on.
func AccessSubject(e *models.AccessLogEntry) string {
	if e.Recognized {
		return AccessSubjectBase + ".recognized"
	}
	return AccessSubjectBase + ".unknown"
}

type Producer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func connect(natsURL string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}
	return nc, js, nil
}

func NewProducer(natsURL string) (*Producer, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Producer{nc: nc, js: js}, nil
}

// EnsureStreams creates the ACCESS stream if it doesn't exist.
// Retries up to 30 times (1s apart) to ride out NATS startup.
func (p *Producer) EnsureStreams(ctx context.Context) error {
	cfg := jetstream.StreamConfig{
		Name:        AccessStreamName,
		Subjects:    []string{AccessSubjectBase + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      24 * time.Hour,
		MaxMsgs:     1000000,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		Description: "Access log entries",
	}

	const maxAttempts = 30
	for attempt := 1; ; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := p.js.CreateOrUpdateStream(opCtx, cfg)
		cancel()
		if err == nil {
			slog.Info("ensured NATS stream", "name", cfg.Name)
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
		}
		slog.Warn("ensure NATS stream (retrying...)", "name", cfg.Name, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// PublishAccess publishes a stored access-log entry.
func (p *Producer) PublishAccess(ctx context.Context, e *models.AccessLogEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal access entry: %w", err)
	}

	// The entry id doubles as the dedup key.
	if _, err := p.js.Publish(ctx, AccessSubject(e), payload, jetstream.WithMsgID(e.ID.String())); err != nil {
		return fmt.Errorf("publish access entry: %w", err)
	}
	return nil
}

// RegistryChanged tells every replica to reload its registry before the next match.
func (p *Producer) RegistryChanged(ctx context.Context) error {
	if err := p.nc.Publish(InvalidateSubject, nil); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

func (p *Producer) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Producer) Close() {
	p.nc.Close()
}
