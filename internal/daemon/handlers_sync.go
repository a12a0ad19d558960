package daemon

import (
	"errors"
	"net/http"

	"github.com/felixgeelhaar/personal21/internal/app"
	"github.com/felixgeelhaar/personal21/internal/domain"
)

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.Synchronize(r.Context())
	switch {
	case errors.Is(err, app.ErrSyncDisabled):
		s.jsonError(w, http.StatusServiceUnavailable, "sync is not configured", nil)
	case err != nil:
		// local state is intact; the client may retry later
		s.jsonError(w, http.StatusBadGateway, "synchronization failed", err)
	default:
		s.jsonResponse(w, http.StatusOK, snap)
	}
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.app.SyncStatus(r.Context())
	switch {
	case errors.Is(err, app.ErrSyncDisabled):
		s.jsonError(w, http.StatusServiceUnavailable, "sync is not configured", nil)
	case err != nil:
		s.jsonError(w, http.StatusInternalServerError, "failed to read sync status", err)
	default:
		s.jsonResponse(w, http.StatusOK, st)
	}
}

// handleSyncApply merges a snapshot pushed by another replica
func (s *Server) handleSyncApply(w http.ResponseWriter, r *http.Request) {
	if s.app.Engine == nil {
		s.jsonError(w, http.StatusServiceUnavailable, "sync is not configured", nil)
		return
	}

	var incoming domain.ProgressSnapshot
	if err := decodeJSON(r, &incoming); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid snapshot", err)
		return
	}
	incoming.Normalize()

	snap, err := s.app.Engine.Apply(r.Context(), &incoming)
	s.mutationResponse(w, snap, err)
}
