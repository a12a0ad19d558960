package sqlite

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/personal21/internal/domain"
	"github.com/felixgeelhaar/personal21/internal/progress"
)

func TestProgressStore_SaveLoad(t *testing.T) {
	db := openTestDB(t)
	store := NewProgressStore(db)

	snap := domain.NewProgressSnapshot()
	snap.Mindset.CompletedChapters = domain.NewIntSet(1, 2)
	snap.Hydration.Daily = []domain.DailyHydration{{Date: "2025-01-01", Milliliter: 1200}}

	if err := store.Save(progress.DefaultKey, snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var got domain.ProgressSnapshot
	if err := store.Load(progress.DefaultKey, &got); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Mindset.CompletedChapters.Len() != 2 {
		t.Errorf("CompletedChapters = %v; want [1 2]", got.Mindset.CompletedChapters)
	}
	if got.HydrationOn("2025-01-01") != 1200 {
		t.Errorf("HydrationOn() = %d; want 1200", got.HydrationOn("2025-01-01"))
	}

	// overwrite
	snap.Hydration.Daily[0].Milliliter = 1500
	if err := store.Save(progress.DefaultKey, snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	var again domain.ProgressSnapshot
	if err := store.Load(progress.DefaultKey, &again); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if again.HydrationOn("2025-01-01") != 1500 {
		t.Errorf("HydrationOn() after overwrite = %d; want 1500", again.HydrationOn("2025-01-01"))
	}
}

func TestProgressStore_Load_NotFound(t *testing.T) {
	store := NewProgressStore(openTestDB(t))

	var snap domain.ProgressSnapshot
	err := store.Load("missing", &snap)
	if !errors.Is(err, progress.ErrNotFound) {
		t.Errorf("Load() error = %v; want ErrNotFound", err)
	}
}

func TestProgressStore_WithRepository(t *testing.T) {
	repo := progress.NewRepository(NewProgressStore(openTestDB(t)), "", nil)

	if snap := repo.Load(); !snap.Workouts.UnlockedDays.Contains(1) {
		t.Fatal("empty database should yield defaults")
	}

	_, err := repo.Update(func(cur *domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool) {
		return progress.AddHydration(cur, "2025-01-02", 300)
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := repo.Load().HydrationOn("2025-01-02"); got != 300 {
		t.Errorf("HydrationOn() = %d; want 300", got)
	}
}

func TestProgressStore_SyncLedger(t *testing.T) {
	store := NewProgressStore(openTestDB(t))

	if _, err := store.LastSync("user-1"); !errors.Is(err, progress.ErrNotFound) {
		t.Fatalf("LastSync() error = %v; want ErrNotFound", err)
	}

	first := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	if err := store.RecordSync(progress.SyncRecord{UserID: "user-1", SyncedAt: first}); err != nil {
		t.Fatalf("RecordSync() error = %v", err)
	}

	rec, err := store.LastSync("user-1")
	if err != nil {
		t.Fatalf("LastSync() error = %v", err)
	}
	if !rec.SyncedAt.Equal(first) {
		t.Errorf("SyncedAt = %v; want %v", rec.SyncedAt, first)
	}
	if rec.Remote != nil {
		t.Error("Remote should be nil when no remote document was recorded")
	}

	remote := domain.NewProgressSnapshot()
	remote.Workouts.CompletedDays = domain.NewIntSet(1, 2)
	second := first.Add(time.Hour)
	if err := store.RecordSync(progress.SyncRecord{UserID: "user-1", SyncedAt: second, Remote: remote}); err != nil {
		t.Fatalf("RecordSync() error = %v", err)
	}

	rec, err = store.LastSync("user-1")
	if err != nil {
		t.Fatalf("LastSync() error = %v", err)
	}
	if !rec.SyncedAt.Equal(second) {
		t.Errorf("SyncedAt = %v; want %v", rec.SyncedAt, second)
	}
	if rec.Remote == nil || rec.Remote.Workouts.CompletedDays.Len() != 2 {
		t.Errorf("Remote = %+v; want two completed days", rec.Remote)
	}
}

func TestProgressStore_Load_Corrupt(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Exec(`INSERT INTO snapshots (key, document, updated_at) VALUES (?, ?, ?)`,
		progress.DefaultKey, []byte("{half"), time.Now()); err != nil {
		t.Fatal(err)
	}

	var snap domain.ProgressSnapshot
	if err := NewProgressStore(db).Load(progress.DefaultKey, &snap); !errors.Is(err, progress.ErrCorrupt) {
		t.Errorf("Load() error = %v; want ErrCorrupt", err)
	}
}

func TestProgressStore_Exclusive_AcrossConnections(t *testing.T) {
	file := filepath.Join(t.TempDir(), "p21.db")
	open := func() *progress.Repository {
		db, err := Open(file)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		t.Cleanup(func() { db.Close() })
		if _, err := db.Migrate(t.Context()); err != nil {
			t.Fatalf("Migrate() error = %v", err)
		}
		return progress.NewRepository(NewProgressStore(db), "", nil)
	}
	daemon, cli := open(), open()

	other := make(chan error, 1)
	_, err := daemon.Update(func(cur *domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool) {
		go func() {
			_, err := cli.Update(func(cur *domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool) {
				return progress.AddHydration(cur, "2025-03-14", 500)
			})
			other <- err
		}()
		time.Sleep(50 * time.Millisecond)
		return progress.CompleteWorkoutDay(cur, 1, "2025-03-14", 250, 1200)
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := <-other; err != nil {
		t.Fatalf("concurrent Update() error = %v", err)
	}

	snap := daemon.Load()
	if got := snap.HydrationOn("2025-03-14"); got != 500 {
		t.Errorf("HydrationOn() = %d; want 500", got)
	}
	if !snap.Workouts.CompletedDays.Contains(1) {
		t.Errorf("CompletedDays = %v; want day 1", snap.Workouts.CompletedDays)
	}
}
