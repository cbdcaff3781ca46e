package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/faceaccess/internal/models"
)

func TestAccessSubject(t *testing.T) {
	tests := []struct {
		recognized bool
		want       string
	}{
		{true, "access.recognized"},
		{false, "access.unknown"},
	}
	for _, tt := range tests {
		if got := AccessSubject(&models.AccessLogEntry{Recognized: tt.recognized}); got != tt.want {
			t.Errorf("AccessSubject(recognized=%v) = %q, want %q", tt.recognized, got, tt.want)
		}
	}
}

func TestHandleAccess(t *testing.T) {
	id := uuid.New()
	personID := uuid.New()
	dist := 0.42
	sent := models.AccessLogEntry{
		ID:         id,
		PersonID:   &personID,
		Name:       "Ana",
		Recognized: true,
		Distance:   &dist,
		Timestamp:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(sent)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var got *models.AccessLogEntry
	err = handleAccess(context.Background(), data, func(ctx context.Context, e *models.AccessLogEntry) error {
		got = e
		return nil
	})
	if err != nil {
		t.Fatalf("handleAccess() error = %v", err)
	}
	if got.ID != id || got.Name != "Ana" || got.PersonID == nil || *got.PersonID != personID {
		t.Errorf("decoded entry = %+v", got)
	}
	if got.Distance == nil || *got.Distance != dist || !got.Timestamp.Equal(sent.Timestamp) {
		t.Errorf("decoded distance/timestamp = %v / %v", got.Distance, got.Timestamp)
	}
}

func TestHandleAccess_Errors(t *testing.T) {
	called := false
	err := handleAccess(context.Background(), []byte("{not json"), func(ctx context.Context, e *models.AccessLogEntry) error {
		called = true
		return nil
	})
	if err == nil || called {
		t.Errorf("handleAccess(bad json) error = %v, handler called = %v", err, called)
	}

	boom := errors.New("boom")
	err = handleAccess(context.Background(), []byte(`{"name":"x"}`), func(ctx context.Context, e *models.AccessLogEntry) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("handleAccess() error = %v, want handler error", err)
	}
}
