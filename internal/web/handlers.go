package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"portfolio-assistant/internal/analytics"
	"portfolio-assistant/internal/assistant"
	"portfolio-assistant/internal/contact"
	"portfolio-assistant/internal/game"
	"portfolio-assistant/internal/history"
	"portfolio-assistant/internal/logger"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Status        string           `json:"status"`
	SessionID     string           `json:"session_id"`
	User          history.Exchange `json:"user"`
	Reply         history.Exchange `json:"reply"`
	Topic         string           `json:"topic"`
	TypingDelayMS int64            `json:"typing_delay_ms"`
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	} else if !validSessionID(req.SessionID) {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	ctx := assistant.WithTransport(r.Context(), assistant.TransportWeb)
	turn, err := s.deps.Assistant.Ask(ctx, req.SessionID, req.Message)
	if errors.Is(err, assistant.ErrEmptyUtterance) {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Status:        "success",
		SessionID:     req.SessionID,
		User:          turn.User,
		Reply:         turn.Reply,
		Topic:         turn.Topic,
		TypingDelayMS: turn.TypingDelay.Milliseconds(),
	})
}

type messagesResponse struct {
	Status    string             `json:"status"`
	SessionID string             `json:"session_id"`
	Messages  []history.Exchange `json:"messages"`
}

func (s *Server) messagesHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse{
		Status:    "success",
		SessionID: id,
		Messages:  s.deps.Assistant.History(r.Context(), id),
	})
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse{
		Status:    "success",
		SessionID: id,
		Messages:  s.deps.Assistant.Reset(r.Context(), id),
	})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"stats":  s.deps.Assistant.Stats(r.Context(), id),
	})
}

type reactionRequest struct {
	Reaction history.Reaction `json:"reaction"`
}

func (s *Server) reactionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req reactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Reaction != history.ReactionLiked && req.Reaction != history.ReactionDisliked {
		writeError(w, http.StatusBadRequest, `reaction must be "liked" or "disliked"`)
		return
	}
	ex, err := s.deps.Assistant.React(r.Context(), id, mux.Vars(r)["msgID"], req.Reaction)
	if errors.Is(err, history.ErrUnknownExchange) {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": ex})
}

func (s *Server) gameHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	st := s.deps.Games.Session(r.Context(), id).State()
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "state": st})
}

type scoreRequest struct {
	Points int `json:"points"`
}

func (s *Server) scoreHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req scoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	up, err := s.deps.Games.Session(r.Context(), id).AddScore(r.Context(), req.Points)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeUpdate(w, up)
}

func (s *Server) gameResetHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	writeUpdate(w, s.deps.Games.Session(r.Context(), id).ResetScore(r.Context()))
}

type achievementRequest struct {
	Achievement string `json:"achievement"`
}

func (s *Server) achievementHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req achievementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Achievement)
	if name == "" || len(name) > 64 {
		writeError(w, http.StatusBadRequest, "achievement name is required")
		return
	}
	writeUpdate(w, s.deps.Games.Session(r.Context(), id).Unlock(r.Context(), name))
}

func writeUpdate(w http.ResponseWriter, up game.Update) {
	if up.Events == nil {
		up.Events = []game.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "state": up.State, "events": up.Events})
}

func (s *Server) trackHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "analytics disabled")
		return
	}
	var ev analytics.Event
	if !decodeJSON(w, r, &ev) {
		return
	}
	if err := ev.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ev, err := s.deps.Tracker.Track(r.Context(), ev)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "success", "event": ev})
}

type shorthandEvent struct {
	Label string `json:"label"`
}

// shorthandEventHandler records the widget's common events without making
// it spell out category and action.
func (s *Server) shorthandEventHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "analytics disabled")
		return
	}
	var req shorthandEvent
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	label := strings.TrimSpace(req.Label)

	var (
		ev  analytics.Event
		err error
	)
	switch kind := mux.Vars(r)["kind"]; kind {
	case "page", "project":
		if label == "" || len(label) > 128 {
			writeError(w, http.StatusBadRequest, "label is required")
			return
		}
		if kind == "page" {
			ev, err = s.deps.Tracker.TrackPageView(r.Context(), label)
		} else {
			ev, err = s.deps.Tracker.TrackProjectView(r.Context(), label)
		}
	case "resume":
		ev, err = s.deps.Tracker.TrackResumeDownload(r.Context())
	default:
		writeError(w, http.StatusNotFound, "unknown event kind")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "success", "event": ev})
}

func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "analytics disabled")
		return
	}
	events := s.deps.Tracker.Events()
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "count": len(events), "events": events})
}

func (s *Server) contactHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Contact == nil {
		writeError(w, http.StatusServiceUnavailable, "contact form disabled")
		return
	}
	var form contact.Form
	if !decodeJSON(w, r, &form) {
		return
	}
	res, err := s.deps.Contact.Submit(r.Context(), clientKey(r, s.deps.TrustProxy), form)
	switch {
	case errors.Is(err, contact.ErrCooldown):
		writeError(w, http.StatusTooManyRequests, "please wait a few seconds before sending another message")
		return
	case errors.Is(err, contact.ErrMissingField), errors.Is(err, contact.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if res.Success && s.deps.Tracker != nil {
		if _, err := s.deps.Tracker.TrackContactForm(r.Context()); err != nil {
			logger.L().Warn("contact: track submission", zap.Error(err))
		}
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}
