package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Event Interface and Base Event
// -----------------------------------------------------------------------------

// Event represents a progress event
type Event interface {
	// EventID returns the unique identifier for this event
	EventID() uuid.UUID
	// EventType returns the type name of this event
	EventType() string
	// OccurredAt returns when this event occurred
	OccurredAt() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent creates a new BaseEvent
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now(),
	}
}

func (e BaseEvent) EventID() uuid.UUID    { return e.ID }
func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// Event type names
const (
	EventChapterCompleted   = "progress.chapter_completed"
	EventRecipeRecorded     = "progress.recipe_recorded"
	EventWorkoutDayFinished = "progress.workout_day_finished"
	EventHydrationAdded     = "progress.hydration_added"
	EventSleepRecorded      = "progress.sleep_recorded"
	EventOnboardingAdvanced = "progress.onboarding_advanced"
	EventProgressReset      = "progress.reset"
	EventProgressSynced     = "progress.synced"
)

// -----------------------------------------------------------------------------
// Event Handler and Dispatcher
// -----------------------------------------------------------------------------

// EventHandler processes progress events
type EventHandler func(event Event)

// EventDispatcher manages event subscriptions and publishing
type EventDispatcher struct {
	mu          sync.RWMutex
	handlers    map[string][]EventHandler
	allHandlers []EventHandler // handlers for all events
}

// NewEventDispatcher creates a new event dispatcher
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[string][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (d *EventDispatcher) Subscribe(eventType string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (d *EventDispatcher) SubscribeAll(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allHandlers = append(d.allHandlers, handler)
}

// Publish dispatches an event to all registered handlers
func (d *EventDispatcher) Publish(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if handlers, ok := d.handlers[event.EventType()]; ok {
		for _, h := range handlers {
			h(event)
		}
	}

	for _, h := range d.allHandlers {
		h(event)
	}
}

// -----------------------------------------------------------------------------
// Progress Events
// -----------------------------------------------------------------------------

// ChapterCompletedEvent is published when a chapter is completed for the first time
type ChapterCompletedEvent struct {
	BaseEvent
	Area    Area `json:"area"`
	Chapter int  `json:"chapter"`
}

// NewChapterCompletedEvent creates a new chapter completed event
func NewChapterCompletedEvent(area Area, chapter int) ChapterCompletedEvent {
	return ChapterCompletedEvent{
		BaseEvent: NewBaseEvent(EventChapterCompleted),
		Area:      area,
		Chapter:   chapter,
	}
}

// RecipeRecordedEvent is published when a recipe completion is recorded
type RecipeRecordedEvent struct {
	BaseEvent
	Diet       DietType         `json:"diet"`
	Completion RecipeCompletion `json:"completion"`
}

// NewRecipeRecordedEvent creates a new recipe recorded event
func NewRecipeRecordedEvent(diet DietType, completion RecipeCompletion) RecipeRecordedEvent {
	return RecipeRecordedEvent{
		BaseEvent:  NewBaseEvent(EventRecipeRecorded),
		Diet:       diet,
		Completion: completion,
	}
}

// WorkoutDayFinishedEvent is published for every recorded workout session
type WorkoutDayFinishedEvent struct {
	BaseEvent
	Session  WorkoutSession `json:"session"`
	FirstRun bool           `json:"first_run"`
}

// NewWorkoutDayFinishedEvent creates a new workout day finished event
func NewWorkoutDayFinishedEvent(session WorkoutSession, firstRun bool) WorkoutDayFinishedEvent {
	return WorkoutDayFinishedEvent{
		BaseEvent: NewBaseEvent(EventWorkoutDayFinished),
		Session:   session,
		FirstRun:  firstRun,
	}
}

// DailyMetricEvent is published when hydration or sleep is logged
type DailyMetricEvent struct {
	BaseEvent
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Total float64 `json:"total"`
}

// NewHydrationAddedEvent creates a new hydration event
func NewHydrationAddedEvent(date string, added, total int) DailyMetricEvent {
	return DailyMetricEvent{
		BaseEvent: NewBaseEvent(EventHydrationAdded),
		Date:      date,
		Value:     float64(added),
		Total:     float64(total),
	}
}

// NewSleepRecordedEvent creates a new sleep event
func NewSleepRecordedEvent(date string, hours float64) DailyMetricEvent {
	return DailyMetricEvent{
		BaseEvent: NewBaseEvent(EventSleepRecorded),
		Date:      date,
		Value:     hours,
		Total:     hours,
	}
}

// OnboardingAdvancedEvent is published when an onboarding step is completed
type OnboardingAdvancedEvent struct {
	BaseEvent
	Step              int  `json:"step"`
	CurrentStep       int  `json:"current_step"`
	FirstDayCompleted bool `json:"first_day_completed"`
}

// NewOnboardingAdvancedEvent creates a new onboarding event
func NewOnboardingAdvancedEvent(step int, o OnboardingProgress) OnboardingAdvancedEvent {
	return OnboardingAdvancedEvent{
		BaseEvent:         NewBaseEvent(EventOnboardingAdvanced),
		Step:              step,
		CurrentStep:       o.CurrentStep,
		FirstDayCompleted: o.FirstDayCompleted,
	}
}

// ProgressResetEvent is published when the snapshot is reset to defaults
type ProgressResetEvent struct {
	BaseEvent
}

// NewProgressResetEvent creates a new reset event
func NewProgressResetEvent() ProgressResetEvent {
	return ProgressResetEvent{BaseEvent: NewBaseEvent(EventProgressReset)}
}

// ProgressSyncedEvent is published after a successful reconciliation
type ProgressSyncedEvent struct {
	BaseEvent
	UserID   string    `json:"user_id"`
	SyncedAt time.Time `json:"synced_at"`
	Adopted  bool      `json:"adopted"` // remote was absent, local adopted as-is
}

// NewProgressSyncedEvent creates a new synced event
func NewProgressSyncedEvent(userID string, syncedAt time.Time, adopted bool) ProgressSyncedEvent {
	return ProgressSyncedEvent{
		BaseEvent: NewBaseEvent(EventProgressSynced),
		UserID:    userID,
		SyncedAt:  syncedAt,
		Adopted:   adopted,
	}
}
