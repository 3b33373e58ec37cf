package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portfolio-assistant/internal/cache"
	"portfolio-assistant/internal/logger"
	"portfolio-assistant/internal/storage"
)

const keyPrefix = "conversation:"

// Defaults for the in-memory session cache. Evicted sessions are reloaded
// from the key-value store on their next access.
const (
	DefaultSessionLimit = 10000
	DefaultSessionIdle  = 30 * time.Minute
)

// ErrUnknownExchange is returned by React for ids not in the session.
var ErrUnknownExchange = errors.New("history: unknown exchange")

// Reply is what the agent side of a turn contributes.
type Reply struct {
	Body      string
	FollowUps []string
}

type session struct {
	mu        sync.Mutex
	Exchanges []Exchange `json:"exchanges"`
	Stats     Stats      `json:"stats"`
}

// Manager owns every visitor's conversation log. Logs are append-only except
// for Reset and reaction toggles, and are written to the key-value store after
// each change.
type Manager struct {
	sessions *cache.LRU[*session]
	kv       storage.KV
	welcome  *Reply
	now      func() time.Time

	limit int
	idle  time.Duration
}

type Option func(*Manager)

// WithWelcome seeds new and reset conversations with an agent greeting.
func WithWelcome(r Reply) Option {
	return func(m *Manager) { m.welcome = &r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSessionLimit bounds how many conversations stay in memory and how long
// an untouched one is kept. A zero idle keeps sessions until evicted by size.
func WithSessionLimit(limit int, idle time.Duration) Option {
	return func(m *Manager) {
		m.limit = limit
		m.idle = idle
	}
}

// NewManager keeps logs in memory only when kv is nil; such logs are lost
// once their session leaves the cache.
func NewManager(kv storage.KV, opts ...Option) *Manager {
	m := &Manager{
		kv:    kv,
		now:   time.Now,
		limit: DefaultSessionLimit,
		idle:  DefaultSessionIdle,
	}
	for _, o := range opts {
		o(m)
	}
	m.sessions = cache.NewLRU[*session](m.limit, m.idle)
	return m
}

// Turn appends the user's exchange and the agent's reply as a single step, so
// every user exchange is followed by exactly one agent exchange. reply sees at
// most n exchanges recorded before the user's.
func (m *Manager) Turn(ctx context.Context, id, text string, n int, reply func(window []Exchange) Reply) (Exchange, Exchange) {
	s := m.session(ctx, id)
	s.mu.Lock()
	defer s.mu.Unlock()

	window := tail(s.Exchanges, n)

	user := m.newExchange(SenderUser, text, nil)
	s.append(user)

	r := reply(window)
	agent := m.newExchange(SenderAgent, r.Body, r.FollowUps)
	s.append(agent)

	m.persist(ctx, id, s)
	return user.clone(), agent.clone()
}

// Window returns copies of the last n exchanges, oldest first.
func (m *Manager) Window(ctx context.Context, id string, n int) []Exchange {
	s := m.session(ctx, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	return tail(s.Exchanges, n)
}

// All returns a copy of the whole log.
func (m *Manager) All(ctx context.Context, id string) []Exchange {
	s := m.session(ctx, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	return tail(s.Exchanges, len(s.Exchanges))
}

func (m *Manager) Stats(ctx context.Context, id string) Stats {
	s := m.session(ctx, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Stats
}

// Reset clears the log back to the welcome exchange.
func (m *Manager) Reset(ctx context.Context, id string) {
	s := m.session(ctx, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	m.seed(s)
	m.persist(ctx, id, s)
}

// React toggles a reaction flag on an exchange.
func (m *Manager) React(ctx context.Context, id, exchangeID string, r Reaction) (Exchange, error) {
	s := m.session(ctx, id)
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Exchanges {
		ex := &s.Exchanges[i]
		if ex.ID != exchangeID {
			continue
		}
		switch r {
		case ReactionLiked:
			ex.Reactions.Liked = !ex.Reactions.Liked
		case ReactionDisliked:
			ex.Reactions.Disliked = !ex.Reactions.Disliked
		default:
			return Exchange{}, fmt.Errorf("unknown reaction %q", r)
		}
		m.persist(ctx, id, s)
		return ex.clone(), nil
	}
	return Exchange{}, ErrUnknownExchange
}

// StoredSessions lists the ids of conversations saved in the store.
func (m *Manager) StoredSessions(ctx context.Context) ([]string, error) {
	if m.kv == nil {
		return nil, nil
	}
	keys, err := m.kv.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = strings.TrimPrefix(k, keyPrefix)
	}
	return ids, nil
}

func (m *Manager) session(ctx context.Context, id string) *session {
	s, _ := m.sessions.GetOrLoad(id, func() *session { return m.load(ctx, id) })
	return s
}

func (m *Manager) load(ctx context.Context, id string) *session {
	s := &session{}
	if m.kv != nil {
		raw, err := m.kv.Get(ctx, keyPrefix+id)
		switch {
		case err == nil:
			decodeErr := json.Unmarshal(raw, s)
			if decodeErr == nil {
				s.recount()
				return s
			}
			logger.L().Warn("conversation_decode_failed", zap.String("session", id), zap.Error(decodeErr))
			s = &session{}
		case !errors.Is(err, storage.ErrNotFound):
			logger.L().Warn("conversation_load_failed", zap.String("session", id), zap.Error(err))
		}
	}
	m.seed(s)
	return s
}

func (m *Manager) seed(s *session) {
	s.Exchanges = nil
	s.Stats = Stats{SessionStart: m.now()}
	if m.welcome != nil {
		s.append(m.newExchange(SenderAgent, m.welcome.Body, m.welcome.FollowUps))
	}
}

func (m *Manager) persist(ctx context.Context, id string, s *session) {
	if m.kv == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		logger.L().Error("conversation_encode_failed", zap.String("session", id), zap.Error(err))
		return
	}
	if err := m.kv.Set(ctx, keyPrefix+id, raw); err != nil {
		logger.L().Warn("conversation_save_failed", zap.String("session", id), zap.Error(err))
	}
}

func (m *Manager) newExchange(sender Sender, body string, followUps []string) Exchange {
	return Exchange{
		ID:        uuid.NewString(),
		Sender:    sender,
		Body:      body,
		Timestamp: m.now(),
		FollowUps: append([]string(nil), followUps...),
	}
}

func (s *session) append(ex Exchange) {
	s.Exchanges = append(s.Exchanges, ex)
	s.Stats.count(ex.Sender)
}

// recount derives the counters from the rehydrated log; only SessionStart is
// taken from storage.
func (s *session) recount() {
	start := s.Stats.SessionStart
	s.Stats = Stats{SessionStart: start}
	for _, ex := range s.Exchanges {
		s.Stats.count(ex.Sender)
	}
}

func tail(exs []Exchange, n int) []Exchange {
	if n <= 0 {
		return nil
	}
	if n > len(exs) {
		n = len(exs)
	}
	out := make([]Exchange, 0, n)
	for _, ex := range exs[len(exs)-n:] {
		out = append(out, ex.clone())
	}
	return out
}
