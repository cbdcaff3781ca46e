package models

import (
	"time"

	"github.com/google/uuid"
)

// Embedding is a face descriptor produced by the extraction backend.
// All embeddings from one backend share the same dimensionality.
type Embedding []float32

// Person is an enrolled identity. Name is unique and case-sensitive.
type Person struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	Name       string      `json:"name" db:"name"`
	Embeddings []Embedding `json:"-" db:"-"`
	SourceKey  string      `json:"source_key,omitempty" db:"source_key"` // MinIO key of the enrollment image
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}
