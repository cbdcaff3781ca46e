package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/faceaccess/internal/models"
	"github.com/your-org/faceaccess/internal/observability"
	"github.com/your-org/faceaccess/internal/registry"
)

type EnrollResult string

const (
	EnrollCreated EnrollResult = "created"
	EnrollUpdated EnrollResult = "updated"
)

// archiveCleanupTimeout bounds deletes of archived images, which run even
// when the request context is already done.
const archiveCleanupTimeout = 10 * time.Second

// Enrollment describes a completed enrollment.
type Enrollment struct {
	Person          *models.Person
	Result          EnrollResult
	FacesDetected   int // only the first face is enrolled
	SnapshotVersion uint64
}

// Enroller registers or replaces a person's face.
type Enroller struct {
	extractor Extractor
	store     Store
	registry  *registry.Registry
	archive   ImageArchive
	notifier  Notifier
}

// NewEnroller builds an enroller. archive and notifier may be nil.
func NewEnroller(extractor Extractor, store Store, reg *registry.Registry, archive ImageArchive, notifier Notifier) *Enroller {
	return &Enroller{
		extractor: extractor,
		store:     store,
		registry:  reg,
		archive:   archive,
		notifier:  notifier,
	}
}

// Enroll stores the first face found in image under name, replacing any
// embeddings previously stored for that name, and refreshes the registry
// before returning so the next identification sees the new face.
func (e *Enroller) Enroll(ctx context.Context, name string, image []byte) (*Enrollment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		observability.Enrollments.WithLabelValues("invalid").Inc()
		return nil, models.ErrInvalidName
	}

	embs, err := e.extractor.Extract(ctx, image)
	if err != nil {
		observability.Enrollments.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("extract embeddings: %w", err)
	}
	if len(embs) == 0 {
		observability.Enrollments.WithLabelValues("no_face").Inc()
		return nil, models.ErrNoFaceDetected
	}

	person := &models.Person{
		Name:       name,
		Embeddings: []models.Embedding{embs[0]},
	}
	var prevKey string
	if e.archive != nil {
		prevKey = e.archivedKey(ctx, name)
		key := "enrollments/" + uuid.NewString()
		if err := e.archive.PutObject(ctx, key, image, http.DetectContentType(image)); err != nil {
			slog.Warn("archive enrollment image", "name", name, "error", err)
		} else {
			person.SourceKey = key
		}
	}
	newKey := person.SourceKey

	created, err := e.store.UpsertPerson(ctx, person)
	if err != nil {
		observability.Enrollments.WithLabelValues("error").Inc()
		if newKey != "" {
			e.deleteArchived(ctx, newKey)
		}
		return nil, fmt.Errorf("upsert person: %w", err)
	}
	if prevKey != "" && prevKey != person.SourceKey {
		e.deleteArchived(ctx, prevKey)
	}

	result := EnrollUpdated
	if created {
		result = EnrollCreated
	}
	observability.Enrollments.WithLabelValues(string(result)).Inc()
	slog.Info("person enrolled", "name", name, "id", person.ID, "result", result, "faces", len(embs))

	if e.notifier != nil {
		if err := e.notifier.RegistryChanged(ctx); err != nil {
			slog.Warn("broadcast registry change", "error", err)
		}
	}

	// A failed refresh leaves the registry marked stale, so the next acquire reloads it.
	snap, err := e.registry.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("person %q stored but registry not refreshed: %w", name, err)
	}

	return &Enrollment{
		Person:          person,
		Result:          result,
		FacesDetected:   len(embs),
		SnapshotVersion: snap.Version,
	}, nil
}

// archivedKey returns the image key currently stored for name, or "" when
// there is none or the lookup fails.
func (e *Enroller) archivedKey(ctx context.Context, name string) string {
	prev, err := e.store.GetPersonByName(ctx, name)
	if err != nil {
		slog.Warn("look up previous enrollment image", "name", name, "error", err)
		return ""
	}
	if prev == nil {
		return ""
	}
	return prev.SourceKey
}

func (e *Enroller) deleteArchived(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveCleanupTimeout)
	defer cancel()
	if err := e.archive.DeleteObject(ctx, key); err != nil {
		slog.Warn("delete archived enrollment image", "key", key, "error", err)
	}
}
