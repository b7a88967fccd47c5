// Package server exposes the turn engine over HTTP. The surface is
// deliberately small: one message endpoint, one session read, one health
// check. Channel integrations (WhatsApp and friends) sit in front of this.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
	enginex "github.com/lucy-fin/lucy-agent/agent/engine"
	statex "github.com/lucy-fin/lucy-agent/agent/state"
)

const maxRequestBodyBytes = 1 << 20

type Config struct {
	Addr            string        `split_words:"true" default:":8080"`
	ReadTimeout     time.Duration `split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `split_words:"true" default:"60s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

type Server struct {
	engine *enginex.Engine
	store  statex.Store
	cfg    Config
	http   *http.Server
}

func New(cfg Config, engine *enginex.Engine, store statex.Store) (*Server, error) {
	if engine == nil {
		return nil, errors.New("server: engine is required")
	}
	if store == nil {
		return nil, errors.New("server: store is required")
	}

	s := &Server{engine: engine, store: store, cfg: cfg}
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1/customers/{customerID}", func(r chi.Router) {
		r.Post("/messages", s.handleMessage)
		r.Get("/session", s.handleSession)
	})
	return r
}

func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

type messageRequest struct {
	Message     string                 `json:"message"`
	Attachments []contractx.Attachment `json:"attachments,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimSpace(chi.URLParam(r, "customerID"))
	if customerID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "customer id is required"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := s.engine.ProcessTurn(r.Context(), contractx.TurnInput{
		CustomerID:  customerID,
		Message:     req.Message,
		Attachments: req.Attachments,
	})
	if err != nil {
		status := statusForError(err)
		log.Error().
			Err(err).
			Str("customer_id", customerID).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Int("status", status).
			Msg("process turn failed")
		writeJSON(w, status, errorResponse{Error: publicErrorMessage(err, status)})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimSpace(chi.URLParam(r, "customerID"))
	if customerID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "customer id is required"})
		return
	}

	session, err := s.store.Load(r.Context(), customerID)
	if err != nil {
		if errors.Is(err, statex.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
			return
		}
		log.Error().Err(err).Str("customer_id", customerID).Msg("load session failed")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "session store unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, contractx.ErrExternalService), errors.Is(err, contractx.ErrModelInvoke):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func publicErrorMessage(err error, status int) string {
	if status == http.StatusBadRequest {
		return err.Error()
	}
	return http.StatusText(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("write json response failed")
	}
}
