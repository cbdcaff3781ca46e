package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/your-org/faceaccess/internal/models"
)

func TestWrapErr(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{"network", errors.New("dial tcp: connection refused"), true},
		{"context", context.DeadlineExceeded, true},
		{"server error", &pgconn.PgError{Code: "23505", Message: "duplicate key"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapErr("upsert person", tt.err)
			if !errors.Is(err, tt.err) {
				t.Errorf("wrapErr() = %v, does not wrap cause", err)
			}
			if got := errors.Is(err, models.ErrStoreUnavailable); got != tt.unavailable {
				t.Errorf("errors.Is(ErrStoreUnavailable) = %v, want %v", got, tt.unavailable)
			}
		})
	}
}

func TestPendingMigrations(t *testing.T) {
	files, err := pendingMigrations(map[string]bool{})
	if err != nil {
		t.Fatalf("pendingMigrations() error = %v", err)
	}
	if len(files) == 0 || files[0] != "001_init.sql" {
		t.Fatalf("pendingMigrations() = %v, want 001_init.sql first", files)
	}

	files, err = pendingMigrations(map[string]bool{"001_init.sql": true})
	if err != nil {
		t.Fatalf("pendingMigrations() error = %v", err)
	}
	for _, f := range files {
		if f == "001_init.sql" {
			t.Error("applied migration reported as pending")
		}
	}
}
