package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/faceaccess/internal/recognition"
	"github.com/your-org/faceaccess/pkg/dto"
)

type Identifier interface {
	Identify(ctx context.Context, image []byte) (*recognition.Identification, error)
}

type RecognizeHandler struct {
	identifier Identifier
}

func NewRecognizeHandler(identifier Identifier) *RecognizeHandler {
	return &RecognizeHandler{identifier: identifier}
}

// Recognize identifies every face in the multipart "image" field.
func (h *RecognizeHandler) Recognize(c *gin.Context) {
	image, err := readImage(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ident, err := h.identifier.Identify(c.Request.Context(), image)
	if err != nil {
		respondError(c, err)
		return
	}

	ts := ident.Timestamp.Local().Format(dto.TimestampLayout)
	results := make([]dto.RecognitionResult, 0, len(ident.Outcomes))
	for _, out := range ident.Outcomes {
		r := dto.RecognitionResult{
			Name:       out.Name,
			Recognized: out.Recognized,
			Distance:   out.Distance,
			PersonID:   out.PersonID,
			Timestamp:  ts,
		}
		if out.LogErr != nil {
			r.LogError = out.LogErr.Error()
		} else if out.LogID != uuid.Nil {
			id := out.LogID
			r.LogID = &id
		}
		results = append(results, r)
	}

	c.JSON(http.StatusOK, dto.RecognizeResponse{
		Timestamp:     ts,
		FacesDetected: ident.FacesDetected,
		Results:       results,
	})
}
