// Package hooks serves the callbacks the record store backend makes when a
// puzzle or round changes outside of chat.
package hooks

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/core/puzzle"
	"github.com/example/puzzbot/internal/ctxutil"
	"github.com/example/puzzbot/internal/ports/primary"
)

// SecretHeader carries the shared secret on every request.
const SecretHeader = "X-Puzzbot-Secret"

// Default request budget across all callers.
const (
	DefaultRate  = rate.Limit(5)
	DefaultBurst = 20
)

// Response is the JSON body of every reply.
type Response struct {
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`
}

// Outcomes beyond primary.Outcome.
const (
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
)

// Server routes hook requests to the services as a privileged system actor.
type Server struct {
	status  primary.StatusService
	rounds  primary.RoundService
	secret  []byte
	actor   ctxutil.Actor
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Server. roles are granted to the system actor so the
// privileged solve path accepts hook calls.
func New(status primary.StatusService, rounds primary.RoundService, secret string, roles []string, logger *slog.Logger) *Server {
	return &Server{
		status:  status,
		rounds:  rounds,
		secret:  []byte(secret),
		actor:   ctxutil.Actor{ID: "hooks", Name: "puzzboss", Roles: roles},
		limiter: rate.NewLimiter(DefaultRate, DefaultBurst),
		logger:  logger,
	}
}

// SetLimit replaces the request budget.
func (s *Server) SetLimit(r rate.Limit, burst int) {
	s.limiter = rate.NewLimiter(r, burst)
}

// Handler returns the routed, authenticated handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /hooks/puzzles/{id}/published", s.handlePublished)
	mux.HandleFunc("POST /hooks/puzzles/{id}/solved", s.handleSolved)
	mux.HandleFunc("POST /hooks/puzzles/{id}/status", s.handleStatus)
	mux.HandleFunc("POST /hooks/rounds/{name}/announced", s.handleRoundAnnounced)
	return s.guard(mux)
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Minute,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("hook server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("hook server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop hook server: %w", err)
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("hook server: %w", err)
		}
		return nil
	}
}

// guard checks the secret and the rate budget, then tags the request.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.secret) == 0 || subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), s.secret) != 1 {
			writeJSON(w, http.StatusUnauthorized, Response{Outcome: OutcomeError, Message: "bad secret"})
			return
		}
		if !s.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, Response{Outcome: OutcomeRateLimited, Message: "slow down"})
			return
		}
		reqID := uuid.NewString()
		w.Header().Set("X-Request-Id", reqID)
		ctx := ctxutil.WithActor(ctxutil.WithRequestID(r.Context(), reqID), s.actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, code int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	msg, ok := apperr.UserMessage(err)
	if !ok {
		s.logger.ErrorContext(r.Context(), "hook failed",
			"request_id", ctxutil.RequestIDFromContext(r.Context()), "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, statusFor(err), Response{Outcome: OutcomeError, Message: msg})
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, resp *primary.TransitionResponse, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Outcome: string(resp.Outcome), Message: resp.Message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v); err != nil {
		return apperr.New(apperr.KindInvalidInput, "decode hook body", "invalid JSON body: %v", err)
	}
	return nil
}

func (s *Server) handlePublished(w http.ResponseWriter, r *http.Request) {
	resp, err := s.status.Publish(r.Context(), primary.PuzzleRef{ID: r.PathValue("id")})
	s.transition(w, r, resp, err)
}

func (s *Server) handleSolved(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Answer string `json:"answer"`
	}
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	resp, err := s.status.Solve(r.Context(), primary.SolveRequest{Puzzle: primary.PuzzleRef{ID: r.PathValue("id")}, Answer: body.Answer})
	s.transition(w, r, resp, err)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	status, ok := puzzle.ParseStatus(body.Status)
	if !ok {
		status, ok = puzzle.ParseMarkAs(body.Status)
	}
	if !ok {
		s.fail(w, r, apperr.New(apperr.KindInvalidInput, "status hook", "unknown status %q", body.Status))
		return
	}
	resp, err := s.status.Mark(r.Context(), primary.MarkRequest{Puzzle: primary.PuzzleRef{ID: r.PathValue("id")}, Status: status})
	s.transition(w, r, resp, err)
}

func (s *Server) handleRoundAnnounced(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if err := s.rounds.AnnounceRound(r.Context(), name); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Outcome: string(primary.OutcomeApplied)})
}
