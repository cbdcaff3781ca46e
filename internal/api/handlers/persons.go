package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/faceaccess/internal/models"
	"github.com/your-org/faceaccess/internal/recognition"
	"github.com/your-org/faceaccess/pkg/dto"
)

type PersonReader interface {
	ListPersons(ctx context.Context) ([]models.Person, error)
	GetPersonByName(ctx context.Context, name string) (*models.Person, error)
}

type Enroller interface {
	Enroll(ctx context.Context, name string, image []byte) (*recognition.Enrollment, error)
}

// ImageReader serves archived enrollment images.
type ImageReader interface {
	GetObject(ctx context.Context, key string) ([]byte, string, error)
}

type PersonHandler struct {
	db       PersonReader
	enroller Enroller
	images   ImageReader // nil when archiving is disabled
}

func NewPersonHandler(db PersonReader, enroller Enroller, images ImageReader) *PersonHandler {
	return &PersonHandler{db: db, enroller: enroller, images: images}
}

func personResponse(p *models.Person) dto.PersonResponse {
	return dto.PersonResponse{
		ID:             p.ID,
		Name:           p.Name,
		EmbeddingCount: len(p.Embeddings),
		HasImage:       p.SourceKey != "",
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *PersonHandler) List(c *gin.Context) {
	persons, err := h.db.ListPersons(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]dto.PersonResponse, 0, len(persons))
	for i := range persons {
		resp = append(resp, personResponse(&persons[i]))
	}
	c.JSON(http.StatusOK, dto.PersonListResponse{Persons: resp, Total: len(resp)})
}

// Enroll accepts a multipart form with "name" and "image" and registers or
// replaces that person's face.
func (h *PersonHandler) Enroll(c *gin.Context) {
	image, err := readImage(c)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.enroller.Enroll(c.Request.Context(), c.PostForm("name"), image)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	message := fmt.Sprintf("Person '%s' updated", res.Person.Name)
	if res.Result == recognition.EnrollCreated {
		status = http.StatusCreated
		message = fmt.Sprintf("Person '%s' registered", res.Person.Name)
	}
	if res.FacesDetected > 1 {
		message += fmt.Sprintf("; %d faces found, only the first was enrolled", res.FacesDetected)
	}

	c.JSON(status, dto.EnrollResponse{
		Message:       message,
		Result:        string(res.Result),
		FacesDetected: res.FacesDetected,
		Person:        personResponse(res.Person),
	})
}

// Image returns the archived enrollment image of the named person.
func (h *PersonHandler) Image(c *gin.Context) {
	if h.images == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "image archive disabled"})
		return
	}

	person, err := h.db.GetPersonByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	if person == nil {
		respondError(c, models.ErrPersonNotFound)
		return
	}
	if person.SourceKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no image archived for this person"})
		return
	}

	data, contentType, err := h.images.GetObject(c.Request.Context(), person.SourceKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}
