package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/faceaccess/internal/models"
	"github.com/your-org/faceaccess/pkg/dto"
)

const (
	defaultAccessLogLimit = 50
	maxAccessLogLimit     = 500
)

type AccessLogReader interface {
	ListAccessLog(ctx context.Context, q models.AccessLogQuery) ([]models.AccessLogEntry, int, error)
}

type AccessLogHandler struct {
	db AccessLogReader
}

func NewAccessLogHandler(db AccessLogReader) *AccessLogHandler {
	return &AccessLogHandler{db: db}
}

// AccessEntryResponse converts a stored entry for the API and the websocket feed.
func AccessEntryResponse(e *models.AccessLogEntry) dto.AccessLogEntryResponse {
	return dto.AccessLogEntryResponse{
		ID:         e.ID,
		PersonID:   e.PersonID,
		Name:       e.Name,
		Recognized: e.Recognized,
		Distance:   e.Distance,
		Timestamp:  e.Timestamp.Local().Format(dto.TimestampLayout),
	}
}

func (h *AccessLogHandler) List(c *gin.Context) {
	var q models.AccessLogQuery

	if v := c.Query("recognized"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recognized"})
			return
		}
		q.Recognized = &b
	}
	if v := c.Query("person_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person_id"})
			return
		}
		q.PersonID = &id
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from, want RFC3339"})
			return
		}
		q.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to, want RFC3339"})
			return
		}
		q.To = &t
	}

	var err error
	if q.Limit, err = strconv.Atoi(c.DefaultQuery("limit", "50")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	if q.Offset, err = strconv.Atoi(c.DefaultQuery("offset", "0")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}
	if q.Limit <= 0 {
		q.Limit = defaultAccessLogLimit
	}
	q.Limit = min(q.Limit, maxAccessLogLimit)
	q.Offset = max(q.Offset, 0)

	entries, total, err := h.db.ListAccessLog(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]dto.AccessLogEntryResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, AccessEntryResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, dto.AccessLogListResponse{
		Entries: resp,
		Total:   total,
		Limit:   q.Limit,
		Offset:  q.Offset,
	})
}
