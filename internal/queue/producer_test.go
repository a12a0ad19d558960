package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

func TestPublishSyncJob_FillsDefaults(t *testing.T) {
	pub := newRecordingPublisher()
	p := NewProducer(pub)

	job := &SyncJob{UserID: "user-1"}
	if err := p.PublishSyncJob(context.Background(), job); err != nil {
		t.Fatalf("PublishSyncJob: %v", err)
	}
	if job.ID == uuid.Nil {
		t.Error("ID should be generated")
	}
	if job.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if n := len(pub.messages(SyncQueueName)); n != 1 {
		t.Errorf("published %d jobs; want 1", n)
	}
}

func TestPublishSyncJob_Error(t *testing.T) {
	pub := newRecordingPublisher()
	pub.err = errors.New("channel closed")
	p := NewProducer(pub)

	if err := p.PublishSyncJob(context.Background(), CreateSyncJob("user-1", "")); err == nil {
		t.Fatal("expected error")
	}
}

func TestForward_PublishesDomainEvents(t *testing.T) {
	pub := newRecordingPublisher()
	p := NewProducer(pub)
	d := domain.NewEventDispatcher()
	p.Forward(d, "user-1", 0)

	d.Publish(domain.NewHydrationAddedEvent("2025-03-14", 250, 750))

	msgs := pub.messages(EventQueueName)
	if len(msgs) != 1 {
		t.Fatalf("published %d events; want 1", len(msgs))
	}

	var ev ProgressEvent
	if err := json.Unmarshal(msgs[0], &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != domain.EventHydrationAdded {
		t.Errorf("Type = %q; want %q", ev.Type, domain.EventHydrationAdded)
	}
	if ev.UserID != "user-1" {
		t.Errorf("UserID = %q", ev.UserID)
	}
	if len(ev.Payload) == 0 {
		t.Error("payload should carry the event body")
	}
}

func TestForward_SwallowsPublishErrors(t *testing.T) {
	pub := newRecordingPublisher()
	pub.err = errors.New("broker down")
	p := NewProducer(pub)
	d := domain.NewEventDispatcher()
	p.Forward(d, "user-1", 0)

	d.Publish(domain.NewProgressResetEvent())
}
