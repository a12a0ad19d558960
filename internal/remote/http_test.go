package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

func TestHTTPStore_GetProgress(t *testing.T) {
	snap := domain.NewProgressSnapshot()
	snap.Workouts.CompletedDays = domain.NewIntSet(1, 2, 3)
	doc, err := json.Marshal(snap)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/user_progress", r.URL.Path)
		assert.Equal(t, "eq.user-1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "progress_data", r.URL.Query().Get("select"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"progress_data":` + string(doc) + `}]`))
	}))
	defer server.Close()

	store := NewHTTPStore(HTTPConfig{BaseURL: server.URL + "/", APIKey: "anon-key", Token: "user-token"})
	got, err := store.GetProgress(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.NewIntSet(1, 2, 3), got.Workouts.CompletedDays)
	assert.True(t, got.Mindset.UnlockedChapters.Contains(1))
}

func TestHTTPStore_GetProgress_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	store := NewHTTPStore(HTTPConfig{BaseURL: server.URL, APIKey: "k"})
	_, err := store.GetProgress(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPStore_GetProgress_Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	store := NewHTTPStore(HTTPConfig{BaseURL: server.URL, APIKey: "k"})
	_, err := store.GetProgress(context.Background(), "user-1")

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, "boom", se.Body)
}

func TestHTTPStore_PutProgress(t *testing.T) {
	syncedAt := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

	var received progressRow
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "user_id", r.URL.Query().Get("on_conflict"))
		assert.Contains(t, r.Header.Get("Prefer"), "resolution=merge-duplicates")
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	snap := domain.NewProgressSnapshot()
	snap.Onboarding.CurrentStep = 2

	store := NewHTTPStore(HTTPConfig{BaseURL: server.URL, APIKey: "k"})
	require.NoError(t, store.PutProgress(context.Background(), "user-1", snap, syncedAt))

	assert.Equal(t, "user-1", received.UserID)
	require.NotNil(t, received.SyncedAt)
	assert.True(t, received.SyncedAt.Equal(syncedAt))

	var stored domain.ProgressSnapshot
	require.NoError(t, json.Unmarshal(received.ProgressData, &stored))
	assert.Equal(t, 2, stored.Onboarding.CurrentStep)
}
