package dto

import "github.com/google/uuid"

type PersonResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	EmbeddingCount int       `json:"embedding_count"`
	HasImage       bool      `json:"has_image"`
	CreatedAt      string    `json:"created_at"`
	UpdatedAt      string    `json:"updated_at"`
}

type PersonListResponse struct {
	Persons []PersonResponse `json:"persons"`
	Total   int              `json:"total"`
}

// EnrollResponse is returned by POST /v1/persons. Result is "created" or "updated".
type EnrollResponse struct {
	Message       string         `json:"message"`
	Result        string         `json:"result"`
	FacesDetected int            `json:"faces_detected"`
	Person        PersonResponse `json:"person"`
}
