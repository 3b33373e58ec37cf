// Package web serves the chat widget's JSON API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"portfolio-assistant/internal/analytics"
	"portfolio-assistant/internal/assistant"
	"portfolio-assistant/internal/contact"
	"portfolio-assistant/internal/game"
	"portfolio-assistant/internal/logger"
	"portfolio-assistant/internal/metrics"
)

const maxBodyBytes = 64 << 10

// Deps are the services behind the API. Tracker and Contact may be nil, in
// which case their routes answer 503.
type Deps struct {
	Assistant      *assistant.Service
	Games          *game.Store
	Tracker        *analytics.Tracker
	Contact        *contact.Service
	AllowedOrigins []string
	// TrustProxy takes the client address from X-Forwarded-For. Enable it
	// only behind a proxy that overwrites the header.
	TrustProxy bool
}

type Server struct {
	router  *mux.Router
	handler http.Handler
	deps    Deps
}

func NewServer(deps Deps) *Server {
	s := &Server{router: mux.NewRouter(), deps: deps}
	s.setupRoutes()

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.handler = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	}).Handler(s.router)
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/chat", s.chatHandler).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/messages", s.messagesHandler).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/messages", s.resetHandler).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/messages/{msgID}/reactions", s.reactionHandler).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/stats", s.statsHandler).Methods(http.MethodGet)

	api.HandleFunc("/sessions/{id}/game", s.gameHandler).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/game/score", s.scoreHandler).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/game/reset", s.gameResetHandler).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/game/achievements", s.achievementHandler).Methods(http.MethodPost)

	api.HandleFunc("/events", s.trackHandler).Methods(http.MethodPost)
	api.HandleFunc("/events", s.eventsHandler).Methods(http.MethodGet)
	api.HandleFunc("/events/{kind}", s.shorthandEventHandler).Methods(http.MethodPost)

	api.HandleFunc("/contact", s.contactHandler).Methods(http.MethodPost)

	s.router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
}

// Handler returns the router wrapped in CORS handling.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("http_listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Warn("http_encode_failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Status: "error", Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// sessionID reads and checks the {id} route variable.
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if !validSessionID(id) {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return "", false
	}
	return id, true
}

func validSessionID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == ':':
		default:
			return false
		}
	}
	return true
}

// clientKey identifies a visitor for rate limiting. X-Forwarded-For is
// caller controlled, so it only counts when trustProxy is set.
func clientKey(r *http.Request, trustProxy bool) string {
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "portfolio-assistant"})
}
