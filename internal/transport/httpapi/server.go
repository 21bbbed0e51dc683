// Package httpapi exposes the event dispatcher over HTTP for local
// development and integration tests. It is not the production ingress; the
// SQS transport is.
package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pitstop/internal/types"
)

// maxEventBodySize bounds a posted event payload (1 MB).
const maxEventBodySize = 1 << 20

// EventHandler is satisfied by *dispatcher.EventDispatcher.
type EventHandler interface {
	HandleEvent(ctx context.Context, eventType string, payload []byte) bool
}

// Server routes HTTP requests to the dispatcher.
type Server struct {
	Events       EventHandler
	Logger       *slog.Logger
	HealthProbes []HealthProbe

	router *chi.Mux
}

// NewServer builds the router. Events and logger are required.
func NewServer(events EventHandler, logger *slog.Logger, probes ...HealthProbe) (*Server, error) {
	if events == nil {
		return nil, errors.New("event handler must not be nil")
	}
	if logger == nil {
		return nil, errors.New("logger must not be nil")
	}

	s := &Server{
		Events:       events,
		Logger:       logger,
		HealthProbes: probes,
		router:       chi.NewRouter(),
	}
	s.mountRoutes()
	return s, nil
}

// Handler returns the router for http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) mountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.Logger))

	s.router.Get("/health", s.HandleHealth)
	s.router.Post("/events/{messageType}", s.HandleEvent)
}

// MountMetrics serves a metrics exposition handler, such as promhttp, at
// path.
func (s *Server) MountMetrics(path string, h http.Handler) {
	s.router.Method(http.MethodGet, path, h)
}

type eventResponse struct {
	Handled bool `json:"handled"`
}

// HandleEvent accepts POST /events/{messageType} with the raw event payload
// as body. The dispatcher never fails, so any readable body gets 202.
func (s *Server) HandleEvent(w http.ResponseWriter, r *http.Request) {
	messageType := chi.URLParam(r, "messageType")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, types.ErrCodeDecodeMalformedPayload, "event payload exceeds 1 MB")
			return
		}
		writeError(w, r, http.StatusBadRequest, types.ErrCodeDecodeMalformedPayload, "failed to read event payload")
		return
	}

	// A client that hangs up must not abort the event halfway.
	handled := s.Events.HandleEvent(context.WithoutCancel(r.Context()), messageType, body)
	writeJSON(w, http.StatusAccepted, eventResponse{Handled: handled})
}
