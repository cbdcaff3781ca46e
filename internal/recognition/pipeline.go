package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/faceaccess/internal/matching"
	"github.com/your-org/faceaccess/internal/models"
	"github.com/your-org/faceaccess/internal/observability"
	"github.com/your-org/faceaccess/internal/registry"
)

// Outcome is the result for one detected face, or the single unknown
// outcome of an image without faces.
type Outcome struct {
	Name       string
	Recognized bool
	Distance   *float64   // nil when there was nothing to compare against
	PersonID   *uuid.UUID // nil when unrecognized or when the name could not be resolved
	LogID      uuid.UUID
	LogErr     error // set when the access-log write for this outcome failed
}

// Identification is the result of one Identify call.
type Identification struct {
	Timestamp       time.Time
	SnapshotVersion uint64
	FacesDetected   int
	Outcomes        []Outcome
}

type Option func(*Pipeline)

// WithTolerance overrides matching.DefaultTolerance.
func WithTolerance(tol float64) Option {
	return func(p *Pipeline) { p.tolerance = tol }
}

// DefaultPublishTimeout bounds each best-effort event publish.
const DefaultPublishTimeout = 2 * time.Second

func WithEventPublisher(pub EventPublisher) Option {
	return func(p *Pipeline) { p.events = pub }
}

// WithPublishTimeout overrides DefaultPublishTimeout.
func WithPublishTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.publishTimeout = d }
}

// WithClock replaces time.Now for the call timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline identifies the faces in an image and records every outcome in the access log.
type Pipeline struct {
	extractor Extractor
	store     Store
	registry  *registry.Registry
	tolerance float64
	events    EventPublisher
	now       func() time.Time

	publishTimeout time.Duration
}

func NewPipeline(extractor Extractor, store Store, reg *registry.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		store:     store,
		registry:  reg,
		tolerance: matching.DefaultTolerance,
		now:       time.Now,

		publishTimeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Identify extracts every face in image and matches each against the registry.
//
// Extraction and registry failures are returned before anything is written.
// After that, exactly one access-log entry is appended per face, or a single
// unknown entry when no face was found; all entries share one timestamp.
// A failed write is reported on its Outcome and does not stop the others.
func (p *Pipeline) Identify(ctx context.Context, image []byte) (*Identification, error) {
	start := time.Now()
	embs, err := p.extractor.Extract(ctx, image)
	if err != nil {
		observability.Identifications.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("extract embeddings: %w", err)
	}
	observability.StageDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())

	snap, err := p.registry.Acquire(ctx)
	if err != nil {
		observability.Identifications.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("acquire registry: %w", err)
	}

	// Postgres keeps microseconds; truncating keeps returned and stored timestamps equal.
	ts := p.now().UTC().Truncate(time.Microsecond)
	ident := &Identification{
		Timestamp:       ts,
		SnapshotVersion: snap.Version,
		FacesDetected:   len(embs),
	}

	if len(embs) == 0 {
		out := Outcome{Name: models.UnknownName}
		p.record(ctx, &out, ts)
		ident.Outcomes = append(ident.Outcomes, out)
		return ident, nil
	}

	for _, emb := range embs {
		matchStart := time.Now()
		res := matching.Match(emb, snap, p.tolerance)
		observability.StageDuration.WithLabelValues("match").Observe(time.Since(matchStart).Seconds())

		out := Outcome{Name: res.Name, Recognized: res.Recognized}
		if !math.IsInf(res.Distance, 1) {
			d := res.Distance
			out.Distance = &d
		}
		if res.Recognized {
			out.PersonID = p.resolve(ctx, res.Name)
		}
		p.record(ctx, &out, ts)
		ident.Outcomes = append(ident.Outcomes, out)
	}

	return ident, nil
}

// resolve looks up the person id for the access-log reference.
// A missing person or a failed lookup leaves the reference empty.
func (p *Pipeline) resolve(ctx context.Context, name string) *uuid.UUID {
	person, err := p.store.GetPersonByName(ctx, name)
	if err != nil {
		slog.Warn("resolve person for access log", "name", name, "error", err)
		return nil
	}
	if person == nil {
		return nil
	}
	id := person.ID
	return &id
}

func (p *Pipeline) record(ctx context.Context, out *Outcome, ts time.Time) {
	result := "unknown"
	if out.Recognized {
		result = "recognized"
	}
	observability.Identifications.WithLabelValues(result).Inc()

	entry := &models.AccessLogEntry{
		ID:         uuid.New(),
		PersonID:   out.PersonID,
		Name:       out.Name,
		Recognized: out.Recognized,
		Distance:   out.Distance,
		Timestamp:  ts,
	}

	start := time.Now()
	if err := p.store.AppendAccessLog(ctx, entry); err != nil {
		observability.AccessLogWriteFailures.Inc()
		slog.Error("append access log", "name", out.Name, "error", err)
		out.LogErr = fmt.Errorf("append access log: %w", err)
		return
	}
	observability.StageDuration.WithLabelValues("log").Observe(time.Since(start).Seconds())
	out.LogID = entry.ID

	if p.events != nil {
		pubCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
		defer cancel()
		if err := p.events.PublishAccess(pubCtx, entry); err != nil {
			slog.Warn("publish access event", "id", entry.ID, "error", err)
		}
	}
}
