// Package assistant runs one chat turn: it records the visitor's utterance,
// asks the selector for a reply and logs the exchange.
package assistant

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"portfolio-assistant/internal/history"
	"portfolio-assistant/internal/logger"
	"portfolio-assistant/internal/metrics"
	"portfolio-assistant/internal/responder"
	"portfolio-assistant/internal/storage"
)

// ErrEmptyUtterance is returned by Ask for blank input.
var ErrEmptyUtterance = errors.New("assistant: empty utterance")

// Presentation delay bounds for the typing indicator.
const (
	MinTypingDelay = 800 * time.Millisecond
	MaxTypingDelay = 2000 * time.Millisecond
)

// Transport names.
const (
	TransportWeb      = "web"
	TransportTelegram = "telegram"
	TransportCLI      = "cli"
)

type transportKey struct{}

// WithTransport tags ctx with the transport a turn arrived on.
func WithTransport(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, transportKey{}, name)
}

func transportFrom(ctx context.Context) string {
	if v, ok := ctx.Value(transportKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// Turn is the result of one Ask.
type Turn struct {
	User        history.Exchange `json:"user"`
	Reply       history.Exchange `json:"reply"`
	Topic       string           `json:"topic"`
	TypingDelay time.Duration    `json:"-"`
}

// Service wires the selector to the conversation log.
type Service struct {
	selector *responder.Selector
	log      *history.Manager
	recorder storage.Recorder
	now      func() time.Time
}

// New builds a Service. recorder may be nil.
func New(selector *responder.Selector, log *history.Manager, recorder storage.Recorder) *Service {
	return &Service{
		selector: selector,
		log:      log,
		recorder: recorder,
		now:      time.Now,
	}
}

// WelcomeReply converts the selector's welcome for history.WithWelcome.
func WelcomeReply(sel *responder.Selector) history.Reply {
	w := sel.Welcome()
	return history.Reply{Body: w.Body, FollowUps: w.FollowUps}
}

// ReportFailure is the selector failure hook used by the binaries.
func ReportFailure(f *responder.SelectionFailure) {
	metrics.IncSelectionFailure()
	logger.L().Error("selection_failed", zap.Error(f))
}

// Ask answers text within session. The user exchange and the reply are
// appended together, and the selector sees the exchanges recorded before the
// user's message.
func (s *Service) Ask(ctx context.Context, session, text string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyUtterance
	}
	transport := transportFrom(ctx)
	metrics.IncChatRequest(transport)

	var resp responder.Response
	user, reply := s.log.Turn(ctx, session, text, s.selector.WindowSize(), func(window []history.Exchange) history.Reply {
		start := time.Now()
		resp = s.selector.Select(text, window)
		metrics.ObserveSelection(resp.Topic, start)
		return history.Reply{Body: resp.Body, FollowUps: resp.FollowUps}
	})

	turn := Turn{
		User:        user,
		Reply:       reply,
		Topic:       resp.Topic,
		TypingDelay: TypingDelay(s.now().UnixNano()),
	}
	s.record(session, transport, turn)

	logger.L().Debug("chat_turn",
		zap.String("session", session),
		zap.String("transport", transport),
		zap.String("topic", turn.Topic),
	)
	return turn, nil
}

func (s *Service) record(session, transport string, turn Turn) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.AppendInteraction(storage.Event{
		Timestamp:         turn.Reply.Timestamp,
		SessionID:         session,
		Transport:         transport,
		UserMessage:       turn.User.Body,
		AssistantResponse: turn.Reply.Body,
		Topic:             turn.Topic,
	})
	if err != nil {
		logger.L().Warn("interaction_record_failed", zap.String("session", session), zap.Error(err))
	}
}

// History returns the whole conversation, oldest first.
func (s *Service) History(ctx context.Context, session string) []history.Exchange {
	return s.log.All(ctx, session)
}

func (s *Service) Stats(ctx context.Context, session string) history.Stats {
	return s.log.Stats(ctx, session)
}

// Reset starts the conversation over from the welcome exchange.
func (s *Service) Reset(ctx context.Context, session string) []history.Exchange {
	s.log.Reset(ctx, session)
	logger.L().Info("conversation_reset", zap.String("session", session))
	return s.log.All(ctx, session)
}

func (s *Service) React(ctx context.Context, session, exchangeID string, r history.Reaction) (history.Exchange, error) {
	return s.log.React(ctx, session, exchangeID, r)
}

// StoredSessions lists the conversations kept in the store.
func (s *Service) StoredSessions(ctx context.Context) ([]string, error) {
	return s.log.StoredSessions(ctx)
}

// Interactions returns the recorded interaction log.
func (s *Service) Interactions() ([]storage.Event, error) {
	if s.recorder == nil {
		return nil, nil
	}
	return s.recorder.LoadInteractions()
}

// TypingDelay picks a delay in [MinTypingDelay, MaxTypingDelay) from seed.
func TypingDelay(seed int64) time.Duration {
	span := int64(MaxTypingDelay - MinTypingDelay)
	return MinTypingDelay + time.Duration(rand.New(rand.NewSource(seed)).Int63n(span))
}

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
