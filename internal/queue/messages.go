package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Queue names
const (
	SyncQueueName   = "personal21.sync"
	ResultQueueName = "personal21.sync.results"
	EventQueueName  = "personal21.events"
)

// Sync result statuses
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusTimeout   = "timeout"
)

// SyncJob asks a worker to reconcile one user's progress with the remote store
type SyncJob struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason,omitempty"`
	Timeout   int       `json:"timeout,omitempty"` // seconds
	CreatedAt time.Time `json:"created_at"`
}

// deadline is the job's own timeout, or fallback when it carries none.
func (j *SyncJob) deadline(fallback time.Duration) time.Duration {
	if j.Timeout > 0 {
		return time.Duration(j.Timeout) * time.Second
	}
	return fallback
}

// SyncResult reports the outcome of a SyncJob
type SyncResult struct {
	JobID           uuid.UUID     `json:"job_id"`
	UserID          string        `json:"user_id"`
	Status          string        `json:"status"`
	OverallProgress int           `json:"overall_progress"`
	Error           string        `json:"error,omitempty"`
	Duration        time.Duration `json:"duration"`
	CompletedAt     time.Time     `json:"completed_at"`
}

// ProgressEvent is the wire form of a domain event
type ProgressEvent struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	UserID     string          `json:"user_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// CreateSyncJob creates a new sync job for userID
func CreateSyncJob(userID, reason string) *SyncJob {
	return &SyncJob{
		ID:        uuid.New(),
		UserID:    userID,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
}
