// Package mock provides an in-memory store for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/faceaccess/internal/models"
)

// Store is an in-memory implementation of the person and access-log store.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	persons []*models.Person // enrollment order
	log     []models.AccessLogEntry

	// Error injection
	ListPersonsError   error
	GetPersonError     error
	UpsertError        error
	AppendError        error
	ListAccessLogError error
	PingError          error

	// AppendHook, when set, is called before each append and its error is returned.
	// It lets a test fail individual writes.
	AppendHook func(e *models.AccessLogEntry) error

	// Now supplies person timestamps. Defaults to time.Now.
	Now func() time.Time
}

func NewStore() *Store {
	return &Store{Now: time.Now}
}

func (m *Store) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func clonePerson(p *models.Person) models.Person {
	cp := *p
	cp.Embeddings = make([]models.Embedding, len(p.Embeddings))
	for i, e := range p.Embeddings {
		cp.Embeddings[i] = append(models.Embedding(nil), e...)
	}
	return cp
}

// ListPersons returns persons with at least one embedding, in enrollment order.
func (m *Store) ListPersons(ctx context.Context) ([]models.Person, error) {
	if m.ListPersonsError != nil {
		return nil, m.ListPersonsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Person, 0, len(m.persons))
	for _, p := range m.persons {
		if len(p.Embeddings) == 0 {
			continue
		}
		out = append(out, clonePerson(p))
	}
	return out, nil
}

func (m *Store) GetPersonByName(ctx context.Context, name string) (*models.Person, error) {
	if m.GetPersonError != nil {
		return nil, m.GetPersonError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.persons {
		if p.Name == name {
			cp := clonePerson(p)
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Store) UpsertPerson(ctx context.Context, p *models.Person) (bool, error) {
	if m.UpsertError != nil {
		return false, m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	stored := clonePerson(p)
	for _, existing := range m.persons {
		if existing.Name != p.Name {
			continue
		}
		existing.Embeddings = stored.Embeddings
		existing.UpdatedAt = now
		if p.SourceKey != "" {
			existing.SourceKey = p.SourceKey
		}
		p.ID, p.SourceKey, p.CreatedAt, p.UpdatedAt = existing.ID, existing.SourceKey, existing.CreatedAt, existing.UpdatedAt
		return false, nil
	}

	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	stored.CreatedAt, stored.UpdatedAt = now, now
	m.persons = append(m.persons, &stored)
	p.ID, p.CreatedAt, p.UpdatedAt = stored.ID, now, now
	return true, nil
}

func (m *Store) AppendAccessLog(ctx context.Context, e *models.AccessLogEntry) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	if m.AppendHook != nil {
		if err := m.AppendHook(e); err != nil {
			return err
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, *e)
	return nil
}

// ListAccessLog filters and pages entries newest first. Entries with equal
// timestamps keep insertion order.
func (m *Store) ListAccessLog(ctx context.Context, q models.AccessLogQuery) ([]models.AccessLogEntry, int, error) {
	if m.ListAccessLogError != nil {
		return nil, 0, m.ListAccessLogError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []models.AccessLogEntry
	for _, e := range m.log {
		if q.Recognized != nil && e.Recognized != *q.Recognized {
			continue
		}
		if q.PersonID != nil && (e.PersonID == nil || *e.PersonID != *q.PersonID) {
			continue
		}
		if q.From != nil && e.Timestamp.Before(*q.From) {
			continue
		}
		if q.To != nil && e.Timestamp.After(*q.To) {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := len(matched)
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	start := min(max(q.Offset, 0), total)
	end := min(start+limit, total)
	return matched[start:end], total, nil
}

func (m *Store) Ping(ctx context.Context) error {
	return m.PingError
}

// AccessLog returns every appended entry in insertion order.
func (m *Store) AccessLog() []models.AccessLogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.AccessLogEntry(nil), m.log...)
}

// PersonCount returns the number of stored persons.
func (m *Store) PersonCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.persons)
}
