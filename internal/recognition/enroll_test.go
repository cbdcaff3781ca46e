package recognition

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/your-org/faceaccess/internal/models"
	"github.com/your-org/faceaccess/internal/registry"
	"github.com/your-org/faceaccess/internal/storage/mock"
)

func TestEnroll_CreatesThenUpdates(t *testing.T) {
	f := newFixture(t)

	first := f.enroll(t, "Ana", "ana.jpg")
	if first.Result != EnrollCreated {
		t.Errorf("Result = %q, want created", first.Result)
	}

	second := f.enroll(t, "Ana", "ana-again.jpg")
	if second.Result != EnrollUpdated {
		t.Errorf("Result = %q, want updated", second.Result)
	}
	if second.Person.ID != first.Person.ID {
		t.Errorf("update changed id from %v to %v", first.Person.ID, second.Person.ID)
	}
	if second.SnapshotVersion <= first.SnapshotVersion {
		t.Errorf("snapshot version %d not greater than %d", second.SnapshotVersion, first.SnapshotVersion)
	}

	snap := f.reg.Current()
	if snap.Len() != 1 {
		t.Fatalf("registry has %d entries, want exactly one for Ana", snap.Len())
	}
	if snap.Entries[0].Embedding[0] != faceAnaAlt[0] {
		t.Errorf("registry embedding = %v, want the replacement %v", snap.Entries[0].Embedding, faceAnaAlt)
	}
}

func TestEnroll_IsIdempotent(t *testing.T) {
	f := newFixture(t)

	f.enroll(t, "Ana", "ana.jpg")
	f.enroll(t, "Ana", "ana.jpg")

	if n := f.store.PersonCount(); n != 1 {
		t.Errorf("store has %d persons, want 1", n)
	}
	if n := f.reg.Current().Len(); n != 1 {
		t.Errorf("registry has %d entries, want 1", n)
	}
}

func TestEnroll_RoundTripThroughRegistry(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "Bruno", "bruno.jpg")

	entry := f.reg.Current().Entries[0]
	for i := range faceBruno {
		if entry.Embedding[i] != faceBruno[i] {
			t.Fatalf("embedding[%d] = %v, want %v", i, entry.Embedding[i], faceBruno[i])
		}
	}
}

func TestEnroll_UsesFirstFaceOnly(t *testing.T) {
	f := newFixture(t)

	res := f.enroll(t, "Ana", "ana+nobody")
	if res.FacesDetected != 2 {
		t.Errorf("FacesDetected = %d, want 2", res.FacesDetected)
	}
	snap := f.reg.Current()
	if snap.Len() != 1 || snap.Entries[0].Embedding[0] != faceAna[0] {
		t.Errorf("registry = %+v, want only the first face", snap.Entries)
	}
}

func TestEnroll_Errors(t *testing.T) {
	tests := []struct {
		name    string
		person  string
		image   string
		wantErr error
	}{
		{"empty name", "", "ana.jpg", models.ErrInvalidName},
		{"blank name", "  \t", "ana.jpg", models.ErrInvalidName},
		{"no face", "Ana", "empty.jpg", models.ErrNoFaceDetected},
		{"unreadable", "Ana", "garbage", models.ErrUnreadableImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.enroller.Enroll(context.Background(), tt.person, []byte(tt.image))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Enroll() error = %v, want %v", err, tt.wantErr)
			}
			if n := f.store.PersonCount(); n != 0 {
				t.Errorf("store has %d persons after failed enrollment", n)
			}
		})
	}
}

func TestEnroll_TrimsName(t *testing.T) {
	f := newFixture(t)

	res := f.enroll(t, "  Ana Maria ", "ana.jpg")
	if res.Person.Name != "Ana Maria" {
		t.Errorf("Name = %q, want %q", res.Person.Name, "Ana Maria")
	}
}

func TestEnroll_NamesAreCaseSensitive(t *testing.T) {
	f := newFixture(t)

	f.enroll(t, "ana", "ana.jpg")
	res := f.enroll(t, "Ana", "ana.jpg")
	if res.Result != EnrollCreated {
		t.Errorf("Result = %q, want a separate person for a different case", res.Result)
	}
}

func TestEnroll_RefreshFailureAfterWrite(t *testing.T) {
	store := mock.NewStore()
	reg := registry.New(store, registry.PolicyOnChange)
	enroller := NewEnroller(newExtractor(), store, reg, nil, nil)
	ctx := context.Background()

	if _, err := reg.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	store.ListPersonsError = errors.New("connection refused")

	_, err := enroller.Enroll(ctx, "Ana", []byte("ana.jpg"))
	if !errors.Is(err, models.ErrStoreUnavailable) {
		t.Fatalf("Enroll() error = %v, want ErrStoreUnavailable", err)
	}
	if store.PersonCount() != 1 {
		t.Fatal("person was not stored")
	}

	// The stale registry reloads on the next acquire once the store recovers.
	store.ListPersonsError = nil
	snap, err := reg.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if snap.Len() != 1 {
		t.Errorf("registry has %d entries after recovery, want 1", snap.Len())
	}
}

func TestEnroll_UpsertFailure(t *testing.T) {
	store := mock.NewStore()
	store.UpsertError = models.ErrStoreUnavailable
	reg := registry.New(store, registry.PolicyAlways)
	archive := &fakeArchive{}
	enroller := NewEnroller(newExtractor(), store, reg, archive, nil)

	_, err := enroller.Enroll(context.Background(), "Ana", []byte("ana.jpg"))
	if !errors.Is(err, models.ErrStoreUnavailable) {
		t.Fatalf("Enroll() error = %v, want ErrStoreUnavailable", err)
	}
	if reg.Current().Len() != 0 {
		t.Error("registry changed after failed upsert")
	}
	if len(archive.keys) != 0 {
		t.Errorf("archive keeps %v after failed upsert, want nothing", archive.keys)
	}
	if len(archive.deleted) != 1 {
		t.Errorf("deleted %v, want the one uploaded image", archive.deleted)
	}
}

func TestEnroll_ArchiveAndNotify(t *testing.T) {
	store := mock.NewStore()
	reg := registry.New(store, registry.PolicyAlways)
	archive := &fakeArchive{}
	notifier := &countingNotifier{}
	enroller := NewEnroller(newExtractor(), store, reg, archive, notifier)

	first, err := enroller.Enroll(context.Background(), "Ana", []byte("ana.jpg"))
	if err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if len(archive.keys) != 1 || first.Person.SourceKey != archive.keys[0] {
		t.Errorf("SourceKey = %q, archived keys = %v", first.Person.SourceKey, archive.keys)
	}
	if notifier.calls != 1 {
		t.Errorf("notifier called %d times, want 1", notifier.calls)
	}

	second, err := enroller.Enroll(context.Background(), "Ana", []byte("ana-again.jpg"))
	if err != nil {
		t.Fatalf("second Enroll() error = %v", err)
	}
	if len(archive.keys) != 1 || archive.keys[0] != second.Person.SourceKey {
		t.Errorf("archived keys = %v, want only %q", archive.keys, second.Person.SourceKey)
	}
	if !slices.Equal(archive.deleted, []string{first.Person.SourceKey}) {
		t.Errorf("deleted %v, want the replaced image %q", archive.deleted, first.Person.SourceKey)
	}
}

func TestEnroll_KeepsPreviousImageWhenArchiveFails(t *testing.T) {
	store := mock.NewStore()
	reg := registry.New(store, registry.PolicyAlways)
	archive := &fakeArchive{}
	enroller := NewEnroller(newExtractor(), store, reg, archive, nil)

	first, err := enroller.Enroll(context.Background(), "Ana", []byte("ana.jpg"))
	if err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}

	archive.err = errors.New("bucket missing")
	second, err := enroller.Enroll(context.Background(), "Ana", []byte("ana-again.jpg"))
	if err != nil {
		t.Fatalf("second Enroll() error = %v", err)
	}
	if second.Person.SourceKey != first.Person.SourceKey {
		t.Errorf("SourceKey = %q, want previous %q", second.Person.SourceKey, first.Person.SourceKey)
	}
	if len(archive.deleted) != 0 {
		t.Errorf("deleted %v, want nothing", archive.deleted)
	}
}

func TestEnroll_ArchiveFailureDoesNotAbort(t *testing.T) {
	store := mock.NewStore()
	reg := registry.New(store, registry.PolicyAlways)
	archive := &fakeArchive{err: errors.New("bucket missing")}
	enroller := NewEnroller(newExtractor(), store, reg, archive, nil)

	res, err := enroller.Enroll(context.Background(), "Ana", []byte("ana.jpg"))
	if err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if res.Person.SourceKey != "" {
		t.Errorf("SourceKey = %q, want empty when archiving failed", res.Person.SourceKey)
	}
	if store.PersonCount() != 1 {
		t.Error("person not stored")
	}
}
