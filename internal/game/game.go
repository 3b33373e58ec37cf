// Package game keeps the portfolio's decorative score, level and achievement
// state per visitor session.
package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"portfolio-assistant/internal/analytics"
	"portfolio-assistant/internal/cache"
	"portfolio-assistant/internal/logger"
	"portfolio-assistant/internal/metrics"
	"portfolio-assistant/internal/storage"
)

const (
	keyPrefix = "game:"

	// PointsPerLevel is how many points separate two levels.
	PointsPerLevel = 100

	// MaxPointsPerAward bounds a single AddScore call.
	MaxPointsPerAward = 10000
	// MaxScore is where the score saturates.
	MaxScore = 1_000_000_000

	DefaultSessionLimit = 10000
	DefaultSessionIdle  = 30 * time.Minute
)

// Achievement names.
const (
	FirstVisit = "First Visit"
	HighScorer = "High Scorer"
	Level5     = "Level 5 Reached"
	Level10    = "Level 10 Reached"
	Level25    = "Level 25 Reached"
)

var levelAchievements = []struct {
	level int
	name  string
}{
	{5, Level5},
	{10, Level10},
	{25, Level25},
}

// ErrInvalidPoints is returned by AddScore for amounts outside
// 1..MaxPointsPerAward.
var ErrInvalidPoints = errors.New("game: invalid points")

// State is a session's game progress.
type State struct {
	Score        int      `json:"score"`
	Level        int      `json:"level"`
	HighScore    int      `json:"high_score"`
	Achievements []string `json:"achievements"`
}

func (s State) clone() State {
	s.Achievements = append([]string{}, s.Achievements...)
	return s
}

// EventKind tells subscribers what happened.
type EventKind string

const (
	LevelUp             EventKind = "level_up"
	AchievementUnlocked EventKind = "achievement_unlocked"
)

// Event is delivered to subscribers after a mutation is stored.
type Event struct {
	Kind        EventKind `json:"kind"`
	Level       int       `json:"level,omitempty"`
	Achievement string    `json:"achievement,omitempty"`
}

// Update is the outcome of a mutation.
type Update struct {
	State  State   `json:"state"`
	Events []Event `json:"events"`
}

// Tracker receives analytics for score changes and unlocks. *analytics.Tracker
// satisfies it.
type Tracker interface {
	TrackGameScore(ctx context.Context, session string, score int) (analytics.Event, error)
	TrackAchievement(ctx context.Context, session, achievement string) (analytics.Event, error)
}

// Store hands out per-session game state.
type Store struct {
	sessions *cache.LRU[*Session]
	kv       storage.KV
	tracker  Tracker
}

type Option func(*storeOptions)

type storeOptions struct {
	limit int
	idle  time.Duration
}

// WithSessionLimit bounds how many sessions stay in memory and how long an
// untouched one is kept.
func WithSessionLimit(limit int, idle time.Duration) Option {
	return func(o *storeOptions) {
		o.limit = limit
		o.idle = idle
	}
}

// NewStore keeps state in memory only when kv is nil; tracker may be nil.
func NewStore(kv storage.KV, tracker Tracker, opts ...Option) *Store {
	o := storeOptions{limit: DefaultSessionLimit, idle: DefaultSessionIdle}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{
		sessions: cache.NewLRU[*Session](o.limit, o.idle),
		kv:       kv,
		tracker:  tracker,
	}
}

// Session returns the game state for id, loading it on first use. A session
// with no achievements is greeted with "First Visit", which is stored and
// tracked with the session's first change; reading a session never writes.
// Subscriptions are dropped when the session leaves the cache.
func (st *Store) Session(ctx context.Context, id string) *Session {
	s, _ := st.sessions.GetOrLoad(id, func() *Session {
		s := &Session{id: id, store: st, subs: make(map[int]func(Event))}
		s.state = st.load(ctx, id)
		if len(s.state.Achievements) == 0 {
			s.state.Achievements = []string{FirstVisit}
			s.firstVisitPending = true
		}
		return s
	})
	return s
}

func (st *Store) load(ctx context.Context, id string) State {
	fresh := State{Level: 1}
	if st.kv == nil {
		return fresh
	}
	data, err := st.kv.Get(ctx, keyPrefix+id)
	if errors.Is(err, storage.ErrNotFound) {
		return fresh
	}
	if err != nil {
		logger.L().Warn("game: load state", zap.String("session", id), zap.Error(err))
		return fresh
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		logger.L().Warn("game: decode state", zap.String("session", id), zap.Error(err))
		return fresh
	}
	if s.Level < 1 {
		s.Level = 1
	}
	return s
}

func (st *Store) save(ctx context.Context, id string, s State) {
	if st.kv == nil {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		logger.L().Error("game: encode state", zap.String("session", id), zap.Error(err))
		return
	}
	if err := st.kv.Set(ctx, keyPrefix+id, data); err != nil {
		logger.L().Warn("game: save state", zap.String("session", id), zap.Error(err))
	}
}

// Session is one visitor's game state. Methods are safe for concurrent use;
// subscribers run synchronously after the state has been saved, outside the
// session lock.
type Session struct {
	id    string
	store *Store

	mu     sync.Mutex
	state  State
	subs   map[int]func(Event)
	nextID int

	firstVisitPending bool
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Achievements returns the unlocked achievements in unlock order.
func (s *Session) Achievements() []string {
	return s.State().Achievements
}

// Subscribe registers fn for level-ups and unlocks. Call the returned
// function to stop receiving events.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// AddScore adds points, raising the high score and level when passed. The
// score saturates at MaxScore.
func (s *Session) AddScore(ctx context.Context, points int) (Update, error) {
	if points <= 0 || points > MaxPointsPerAward {
		return Update{}, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidPoints, points, MaxPointsPerAward)
	}

	s.mu.Lock()
	var events []Event
	if points > MaxScore-s.state.Score {
		s.state.Score = MaxScore
	} else {
		s.state.Score += points
	}
	if s.state.Score > s.state.HighScore {
		s.state.HighScore = s.state.Score
		events = s.unlockLocked(HighScorer, events)
	}
	if level := s.state.Score/PointsPerLevel + 1; level > s.state.Level {
		s.state.Level = level
		for _, la := range levelAchievements {
			if level >= la.level {
				events = s.unlockLocked(la.name, events)
			}
		}
		events = append(events, Event{Kind: LevelUp, Level: level})
	}
	up := s.commitLocked(ctx, events)

	metrics.AddGamePoints(points)
	if t := s.store.tracker; t != nil {
		if _, err := t.TrackGameScore(ctx, s.id, up.State.Score); err != nil {
			logger.L().Warn("game: track score", zap.String("session", s.id), zap.Error(err))
		}
	}
	s.afterCommit(ctx, up)
	return up, nil
}

// ResetScore zeroes the score and level. High score and achievements stay.
func (s *Session) ResetScore(ctx context.Context) Update {
	s.mu.Lock()
	s.state.Score = 0
	s.state.Level = 1
	return s.commitLocked(ctx, nil)
}

// Unlock adds an achievement once. The update carries no events when it was
// already unlocked.
func (s *Session) Unlock(ctx context.Context, name string) Update {
	s.mu.Lock()
	events := s.unlockLocked(name, nil)
	if len(events) == 0 {
		up := Update{State: s.state.clone()}
		s.mu.Unlock()
		return up
	}
	up := s.commitLocked(ctx, events)
	s.afterCommit(ctx, up)
	return up
}

func (s *Session) unlockLocked(name string, events []Event) []Event {
	if name == "" {
		return events
	}
	for _, a := range s.state.Achievements {
		if a == name {
			return events
		}
	}
	s.state.Achievements = append(s.state.Achievements, name)
	return append(events, Event{Kind: AchievementUnlocked, Achievement: name})
}

// commitLocked saves the state and releases the lock.
func (s *Session) commitLocked(ctx context.Context, events []Event) Update {
	up := Update{State: s.state.clone(), Events: events}
	s.store.save(ctx, s.id, up.State)
	firstSave := s.firstVisitPending
	s.firstVisitPending = false
	s.mu.Unlock()

	if firstSave {
		s.trackAchievement(ctx, FirstVisit)
	}
	return up
}

func (s *Session) trackAchievement(ctx context.Context, name string) {
	if t := s.store.tracker; t != nil {
		if _, err := t.TrackAchievement(ctx, s.id, name); err != nil {
			logger.L().Warn("game: track achievement", zap.String("session", s.id), zap.Error(err))
		}
	}
}

func (s *Session) afterCommit(ctx context.Context, up Update) {
	if len(up.Events) == 0 {
		return
	}
	for _, ev := range up.Events {
		if ev.Kind == AchievementUnlocked {
			s.trackAchievement(ctx, ev.Achievement)
		}
	}

	s.mu.Lock()
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, ev := range up.Events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}
