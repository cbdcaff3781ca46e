// Package registry keeps an in-memory index of enrolled face embeddings
// mirroring the persistent store.
//
// The index is published as an immutable Snapshot behind an atomic pointer.
// Readers take the current snapshot without locking and may keep using it
// while a refresh builds and publishes its successor.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/faceaccess/internal/models"
	"github.com/your-org/faceaccess/internal/observability"
)

// Policy decides when Acquire reloads from the store.
type Policy string

const (
	// PolicyAlways reloads on every Acquire.
	PolicyAlways Policy = "always"
	// PolicyOnChange reloads only after Invalidate or before the first load.
	PolicyOnChange Policy = "on_change"
)

// Source lists every enrolled person with their embeddings.
type Source interface {
	ListPersons(ctx context.Context) ([]models.Person, error)
}

// Entry is one (person, embedding) pair. A person with k embeddings yields k entries.
type Entry struct {
	PersonID  uuid.UUID
	Name      string
	Embedding models.Embedding
}

// Snapshot is a point-in-time materialization of the registry.
// It must not be modified after it has been published.
type Snapshot struct {
	Version  uint64
	Entries  []Entry
	LoadedAt time.Time
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// Registry owns the published snapshot.
type Registry struct {
	src    Source
	policy Policy

	current atomic.Pointer[Snapshot]
	stale   atomic.Bool

	refreshMu sync.Mutex // serializes read-then-publish
	version   uint64     // guarded by refreshMu
}

// New returns a registry with an empty version-0 snapshot.
func New(src Source, policy Policy) *Registry {
	if policy == "" {
		policy = PolicyAlways
	}
	r := &Registry{src: src, policy: policy}
	r.current.Store(&Snapshot{})
	r.stale.Store(true)
	return r
}

// Policy returns the configured refresh policy.
func (r *Registry) Policy() Policy {
	return r.policy
}

// Current returns the most recently published snapshot. It never blocks and never returns nil.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Invalidate marks the published snapshot as outdated so the next Acquire
// under PolicyOnChange reloads it.
func (r *Registry) Invalidate() {
	r.stale.Store(true)
}

// Acquire returns a snapshot suitable for matching according to the policy.
func (r *Registry) Acquire(ctx context.Context) (*Snapshot, error) {
	if r.policy == PolicyOnChange && !r.stale.Load() {
		return r.Current(), nil
	}
	return r.Refresh(ctx)
}

// Refresh reloads every person from the source and publishes a new snapshot.
// On failure the previously published snapshot stays current and the returned
// error matches models.ErrStoreUnavailable.
func (r *Registry) Refresh(ctx context.Context) (*Snapshot, error) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	// Clear before reading so an Invalidate racing with this read is not lost.
	r.stale.Store(false)

	start := time.Now()
	persons, err := r.src.ListPersons(ctx)
	if err != nil {
		r.stale.Store(true)
		observability.RegistryRefreshes.WithLabelValues("error").Inc()
		if !errors.Is(err, models.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
		}
		return nil, fmt.Errorf("refresh registry: %w", err)
	}

	r.version++
	snap := &Snapshot{
		Version:  r.version,
		Entries:  flatten(persons),
		LoadedAt: time.Now(),
	}
	r.current.Store(snap)

	observability.RegistryRefreshes.WithLabelValues("ok").Inc()
	observability.RegistryEntries.Set(float64(len(snap.Entries)))
	observability.RegistryVersion.Set(float64(snap.Version))
	observability.StageDuration.WithLabelValues("refresh").Observe(time.Since(start).Seconds())
	slog.Debug("registry refreshed", "version", snap.Version, "persons", len(persons), "entries", len(snap.Entries))

	return snap, nil
}

// flatten expands persons into entries, keeping person order and embedding order.
// Embeddings are copied so later changes to the source slices cannot leak into the snapshot.
func flatten(persons []models.Person) []Entry {
	n := 0
	for _, p := range persons {
		n += len(p.Embeddings)
	}

	entries := make([]Entry, 0, n)
	for _, p := range persons {
		for _, emb := range p.Embeddings {
			if len(emb) == 0 {
				continue
			}
			cp := make(models.Embedding, len(emb))
			copy(cp, emb)
			entries = append(entries, Entry{PersonID: p.ID, Name: p.Name, Embedding: cp})
		}
	}
	return entries
}
