// Package recognition identifies faces against the registry and enrolls new persons.
package recognition

import (
	"context"

	"github.com/your-org/faceaccess/internal/models"
)

// Extractor turns an encoded image into one embedding per detected face, in detection order.
// Unreadable input yields an error matching models.ErrUnreadableImage.
type Extractor interface {
	Extract(ctx context.Context, image []byte) ([]models.Embedding, error)
}

// Store is the persistence the pipeline and enroller need.
type Store interface {
	ListPersons(ctx context.Context) ([]models.Person, error)
	GetPersonByName(ctx context.Context, name string) (*models.Person, error)
	UpsertPerson(ctx context.Context, p *models.Person) (created bool, err error)
	AppendAccessLog(ctx context.Context, e *models.AccessLogEntry) error
}

// EventPublisher receives every access-log entry after it has been stored.
type EventPublisher interface {
	PublishAccess(ctx context.Context, e *models.AccessLogEntry) error
}

// ImageArchive keeps the source images of enrollments.
type ImageArchive interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, key string) error
}

// Notifier tells other replicas that the stored registry changed.
type Notifier interface {
	RegistryChanged(ctx context.Context) error
}
