package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/faceaccess/internal/models"
)

// maxImageSize bounds uploaded images.
const maxImageSize = 10 << 20

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnreadableImage), errors.Is(err, models.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNoFaceDetected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrPersonNotFound), errors.Is(err, models.ErrImageNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// readImage returns the bytes of the multipart "image" field.
func readImage(c *gin.Context) ([]byte, error) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("%w: image file required", models.ErrUnreadableImage)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageSize {
		return nil, fmt.Errorf("%w: image larger than %d bytes", models.ErrUnreadableImage, maxImageSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", models.ErrUnreadableImage)
	}
	return data, nil
}
