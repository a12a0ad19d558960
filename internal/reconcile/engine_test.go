package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/personal21/internal/domain"
	"github.com/felixgeelhaar/personal21/internal/progress"
	"github.com/felixgeelhaar/personal21/internal/remote"
)

type memRemote struct {
	mu       sync.Mutex
	docs     map[string]*domain.ProgressSnapshot
	syncedAt map[string]time.Time
	getErr   error
	putErr   error
	gate     chan struct{}
	gets     atomic.Int32
	puts     atomic.Int32
}

func newMemRemote() *memRemote {
	return &memRemote{
		docs:     make(map[string]*domain.ProgressSnapshot),
		syncedAt: make(map[string]time.Time),
	}
}

func (m *memRemote) GetProgress(ctx context.Context, userID string) (*domain.ProgressSnapshot, error) {
	m.gets.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	doc, ok := m.docs[userID]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return doc.Clone(), nil
}

func (m *memRemote) PutProgress(ctx context.Context, userID string, s *domain.ProgressSnapshot, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.puts.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.docs[userID] = s.Clone()
	m.syncedAt[userID] = at
	return nil
}

func (m *memRemote) doc(userID string) *domain.ProgressSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[userID]
}

var syncTime = time.Date(2025, 3, 14, 20, 0, 0, 0, time.UTC)

func setupEngine(t *testing.T, rem *memRemote, opts ...Option) (*Engine, *progress.Repository, *progress.Store) {
	t.Helper()
	store, err := progress.NewStore(t.TempDir())
	require.NoError(t, err)
	repo := progress.NewRepository(store, "", nil)

	opts = append([]Option{WithLedger(store), WithClock(func() time.Time { return syncTime })}, opts...)
	return NewEngine(repo, rem, opts...), repo, store
}

func TestEngine_Synchronize_AdoptsLocalWhenRemoteAbsent(t *testing.T) {
	rem := newMemRemote()
	dispatcher := domain.NewEventDispatcher()
	engine, repo, store := setupEngine(t, rem, WithDispatcher(dispatcher))

	var synced []domain.ProgressSyncedEvent
	dispatcher.Subscribe(domain.EventProgressSynced, func(e domain.Event) {
		synced = append(synced, e.(domain.ProgressSyncedEvent))
	})

	_, err := repo.Update(func(cur *domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool) {
		return progress.CompleteChapter(cur, domain.MindsetArea(), 1)
	})
	require.NoError(t, err)

	merged, err := engine.Synchronize(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, merged.Mindset.CompletedChapters.Contains(1))

	require.NotNil(t, rem.doc("user-1"))
	assert.True(t, Equal(rem.doc("user-1"), repo.Load()))
	assert.Equal(t, syncTime, rem.syncedAt["user-1"])

	require.Len(t, synced, 1)
	assert.True(t, synced[0].Adopted)

	rec, err := store.LastSync("user-1")
	require.NoError(t, err)
	assert.True(t, rec.SyncedAt.Equal(syncTime))
}

func TestEngine_Synchronize_Merges(t *testing.T) {
	rem := newMemRemote()
	rem.docs["user-1"] = fixtureRemote()
	engine, repo, _ := setupEngine(t, rem)
	require.NoError(t, repo.Save(fixtureLocal()))

	merged, err := engine.Synchronize(context.Background(), "user-1")
	require.NoError(t, err)

	want := Merge(fixtureLocal(), fixtureRemote())
	assert.Equal(t, want, merged)
	assert.True(t, Equal(want, repo.Load()), "merged result persisted locally")
	assert.True(t, Equal(want, rem.doc("user-1")), "merged result pushed")
}

func TestEngine_Synchronize_FetchFailureLeavesLocal(t *testing.T) {
	rem := newMemRemote()
	rem.getErr = errors.New("network down")
	engine, repo, store := setupEngine(t, rem)
	require.NoError(t, repo.Save(fixtureLocal()))

	_, err := engine.Synchronize(context.Background(), "user-1")
	require.Error(t, err)

	assert.True(t, Equal(fixtureLocal(), repo.Load()))
	assert.Equal(t, int32(0), rem.puts.Load())
	_, err = store.LastSync("user-1")
	assert.ErrorIs(t, err, progress.ErrNotFound)
}

func TestEngine_Synchronize_PushFailureKeepsMerge(t *testing.T) {
	rem := newMemRemote()
	rem.docs["user-1"] = fixtureRemote()
	rem.putErr = errors.New("timeout")
	engine, repo, _ := setupEngine(t, rem)
	require.NoError(t, repo.Save(fixtureLocal()))

	_, err := engine.Synchronize(context.Background(), "user-1")
	require.Error(t, err)

	// local already holds the merge; the next push carries it
	assert.True(t, Equal(Merge(fixtureLocal(), fixtureRemote()), repo.Load()))
}

func TestEngine_Synchronize_KeepsMutationsDuringFetch(t *testing.T) {
	rem := newMemRemote()
	rem.docs["user-1"] = fixtureRemote()
	rem.gate = make(chan struct{})
	engine, repo, _ := setupEngine(t, rem)

	done := make(chan error, 1)
	go func() {
		_, err := engine.Synchronize(context.Background(), "user-1")
		done <- err
	}()

	require.Eventually(t, func() bool { return rem.gets.Load() == 1 }, time.Second, time.Millisecond)
	_, err := repo.Update(func(cur *domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool) {
		return progress.AddHydration(cur, "2025-03-15", 400)
	})
	require.NoError(t, err)
	close(rem.gate)

	require.NoError(t, <-done)
	local := repo.Load()
	assert.Equal(t, 400, local.HydrationOn("2025-03-15"))
	assert.Equal(t, 2000, local.HydrationOn("2025-03-13"))
}

func TestEngine_Synchronize_Coalesces(t *testing.T) {
	rem := newMemRemote()
	rem.gate = make(chan struct{})
	engine, _, _ := setupEngine(t, rem)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Synchronize(context.Background(), "user-1")
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return rem.gets.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(rem.gate)
	wg.Wait()

	assert.LessOrEqual(t, rem.gets.Load(), int32(5))
	assert.Equal(t, rem.gets.Load(), rem.puts.Load())
}

func TestEngine_Push(t *testing.T) {
	rem := newMemRemote()
	engine, repo, store := setupEngine(t, rem)
	require.NoError(t, repo.Save(fixtureLocal()))

	engine.Push("user-1")
	engine.Wait()

	assert.True(t, Equal(fixtureLocal(), rem.doc("user-1")))
	rec, err := store.LastSync("user-1")
	require.NoError(t, err)
	assert.True(t, rec.SyncedAt.Equal(syncTime))
}

func TestEngine_Push_FailureIsSilent(t *testing.T) {
	rem := newMemRemote()
	rem.putErr = errors.New("offline")
	engine, repo, store := setupEngine(t, rem)
	require.NoError(t, repo.Save(fixtureLocal()))

	engine.Push("user-1")
	engine.Wait()

	assert.True(t, Equal(fixtureLocal(), repo.Load()))
	_, err := store.LastSync("user-1")
	assert.ErrorIs(t, err, progress.ErrNotFound)
}

// unreadableStore fails every read as a locked database would
type unreadableStore struct{ progress.SnapshotStore }

func (unreadableStore) Load(string, *domain.ProgressSnapshot) error {
	return errors.New("database is locked")
}

func TestEngine_Push_SkipsUnreadableReplica(t *testing.T) {
	rem := newMemRemote()
	rem.docs["user-1"] = fixtureRemote()
	store, err := progress.NewStore(t.TempDir())
	require.NoError(t, err)
	repo := progress.NewRepository(unreadableStore{store}, "", nil)
	engine := NewEngine(repo, rem, WithClock(func() time.Time { return syncTime }))

	engine.Push("user-1")
	engine.Wait()

	assert.Zero(t, rem.puts.Load())
	assert.True(t, Equal(fixtureRemote(), rem.doc("user-1")))
}

func TestEngine_Synchronize_CallerLeavingDoesNotFailOthers(t *testing.T) {
	rem := newMemRemote()
	rem.docs["user-1"] = fixtureRemote()
	rem.gate = make(chan struct{})
	engine, repo, _ := setupEngine(t, rem)
	require.NoError(t, repo.Save(fixtureLocal()))

	impatient, leave := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := engine.Synchronize(impatient, "user-1")
		first <- err
	}()
	require.Eventually(t, func() bool { return rem.gets.Load() == 1 }, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() {
		_, err := engine.Synchronize(context.Background(), "user-1")
		second <- err
	}()
	time.Sleep(20 * time.Millisecond)

	leave()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(rem.gate)
	require.NoError(t, <-second)
	engine.Wait()

	assert.LessOrEqual(t, rem.gets.Load(), int32(2))
	assert.Equal(t, rem.gets.Load(), rem.puts.Load())
	assert.True(t, Equal(Merge(fixtureLocal(), fixtureRemote()), rem.doc("user-1")))
}

func TestEngine_Apply(t *testing.T) {
	engine, repo, _ := setupEngine(t, newMemRemote())
	require.NoError(t, repo.Save(fixtureLocal()))

	first, err := engine.Apply(context.Background(), fixtureRemote())
	require.NoError(t, err)

	// a late duplicate delivery changes nothing
	second, err := engine.Apply(context.Background(), fixtureRemote())
	require.NoError(t, err)
	assert.True(t, Equal(first, second))
	assert.True(t, Equal(Merge(fixtureLocal(), fixtureRemote()), repo.Load()))
}

func TestEngine_Status(t *testing.T) {
	rem := newMemRemote()
	engine, repo, _ := setupEngine(t, rem)
	ctx := context.Background()

	st, err := engine.Status(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, st.LastSyncedAt)
	assert.True(t, st.Pending)

	_, err = engine.Synchronize(ctx, "user-1")
	require.NoError(t, err)

	st, err = engine.Status(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, st.LastSyncedAt)
	assert.True(t, st.LastSyncedAt.Equal(syncTime))
	assert.False(t, st.Pending)

	_, err = repo.Update(func(cur *domain.ProgressSnapshot) (*domain.ProgressSnapshot, bool) {
		return progress.AddHydration(cur, "2025-03-14", 250)
	})
	require.NoError(t, err)

	st, err = engine.Status(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, st.Pending)
}

func TestEngine_Status_WithoutLedger(t *testing.T) {
	store, err := progress.NewStore(t.TempDir())
	require.NoError(t, err)
	engine := NewEngine(progress.NewRepository(store, "", nil), newMemRemote())

	st, err := engine.Status(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, st.Pending)
}
