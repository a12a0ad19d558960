package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

func TestStore_LoadMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	var snap domain.ProgressSnapshot
	if err := store.Load("nope", &snap); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v; want ErrNotFound", err)
	}
}

func TestStore_SyncLedger(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if _, err := store.LastSync("u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LastSync() error = %v; want ErrNotFound", err)
	}

	at := time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)
	remote := domain.NewProgressSnapshot()
	remote.Onboarding.CurrentStep = 2
	if err := store.RecordSync(SyncRecord{UserID: "u1", SyncedAt: at, Remote: remote}); err != nil {
		t.Fatalf("RecordSync() error = %v", err)
	}

	rec, err := store.LastSync("u1")
	if err != nil {
		t.Fatalf("LastSync() error = %v", err)
	}
	if !rec.SyncedAt.Equal(at) {
		t.Errorf("SyncedAt = %v; want %v", rec.SyncedAt, at)
	}
	if rec.Remote == nil || rec.Remote.Onboarding.CurrentStep != 2 {
		t.Errorf("Remote = %+v", rec.Remote)
	}
}
