package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"portfolio-assistant/internal/logger"
	"portfolio-assistant/internal/metrics"
	"portfolio-assistant/internal/storage"
)

const (
	eventsKey = "analytics:events"

	// MaxEvents bounds the stored history; the oldest events are dropped first.
	MaxEvents = 5000
)

// Event is one tracked site interaction. Timestamp is in Unix milliseconds,
// the format the widget sends.
type Event struct {
	Event     string `json:"event"`
	Category  string `json:"category"`
	Action    string `json:"action"`
	Label     string `json:"label,omitempty"`
	Value     *int   `json:"value,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Validate checks the fields every event needs.
func (e Event) Validate() error {
	switch {
	case e.Event == "":
		return errors.New("analytics: event name is required")
	case e.Category == "":
		return errors.New("analytics: category is required")
	case e.Action == "":
		return errors.New("analytics: action is required")
	}
	return nil
}

// Tracker keeps the event history in the key-value store.
type Tracker struct {
	mu     sync.Mutex
	kv     storage.KV
	events []Event
	now    func() time.Time
}

// NewTracker loads previously stored events. A missing or unreadable history
// starts empty.
func NewTracker(ctx context.Context, kv storage.KV) *Tracker {
	t := &Tracker{kv: kv, now: time.Now}
	if kv == nil {
		return t
	}
	data, err := kv.Get(ctx, eventsKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		logger.L().Warn("analytics: load events", zap.Error(err))
	default:
		if err := json.Unmarshal(data, &t.events); err != nil {
			logger.L().Warn("analytics: decode events", zap.Error(err))
			t.events = nil
		}
	}
	return t
}

// Track stamps and stores an event.
func (t *Tracker) Track(ctx context.Context, e Event) (Event, error) {
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	if e.Timestamp == 0 {
		e.Timestamp = t.now().UnixMilli()
	}

	t.mu.Lock()
	t.events = append(t.events, e)
	if over := len(t.events) - MaxEvents; over > 0 {
		t.events = append([]Event(nil), t.events[over:]...)
	}
	err := t.saveLocked(ctx)
	t.mu.Unlock()

	metrics.IncAnalyticsEvent(e.Category)
	logger.L().Debug("analytics event", zap.String("event", e.Event), zap.String("label", e.Label))
	return e, err
}

func (t *Tracker) TrackPageView(ctx context.Context, page string) (Event, error) {
	return t.Track(ctx, Event{Event: "page_view", Category: "navigation", Action: "page_view", Label: page})
}

func (t *Tracker) TrackContactForm(ctx context.Context) (Event, error) {
	return t.Track(ctx, Event{Event: "contact_form", Category: "engagement", Action: "contact_form_submit", Label: "contact_form"})
}

func (t *Tracker) TrackProjectView(ctx context.Context, project string) (Event, error) {
	return t.Track(ctx, Event{Event: "project_view", Category: "engagement", Action: "project_view", Label: project})
}

func (t *Tracker) TrackResumeDownload(ctx context.Context) (Event, error) {
	return t.Track(ctx, Event{Event: "resume_download", Category: "engagement", Action: "resume_download", Label: "resume"})
}

func (t *Tracker) TrackGameScore(ctx context.Context, session string, score int) (Event, error) {
	return t.Track(ctx, Event{Event: "game_score", Category: "game", Action: "score_achieved", Value: &score, SessionID: session})
}

func (t *Tracker) TrackAchievement(ctx context.Context, session, achievement string) (Event, error) {
	return t.Track(ctx, Event{Event: "achievement_unlocked", Category: "game", Action: "achievement_unlocked", Label: achievement, SessionID: session})
}

// Events returns a copy of the history, oldest first.
func (t *Tracker) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

// Count returns the number of stored events.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

// Clear drops every event.
func (t *Tracker) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
	if t.kv == nil {
		return nil
	}
	if err := t.kv.Delete(ctx, eventsKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("analytics: clear: %w", err)
	}
	return nil
}

func (t *Tracker) saveLocked(ctx context.Context) error {
	if t.kv == nil {
		return nil
	}
	data, err := json.Marshal(t.events)
	if err != nil {
		return fmt.Errorf("analytics: encode events: %w", err)
	}
	if err := t.kv.Set(ctx, eventsKey, data); err != nil {
		logger.L().Warn("analytics: save events", zap.Error(err))
		return fmt.Errorf("analytics: save events: %w", err)
	}
	return nil
}
