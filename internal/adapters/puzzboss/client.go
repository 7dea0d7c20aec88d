// Package puzzboss adapts the hunt's Puzzleboss backend to the record store
// ports. Reads go straight to its MySQL views; writes go through its REST
// API so Puzzleboss can run its own side effects.
package puzzboss

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/ports/secondary"
)

// Rest posts field updates to the Puzzleboss REST API.
type Rest struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewRest creates a REST client rooted at baseURL.
func NewRest(baseURL string, timeout time.Duration, logger *slog.Logger) *Rest {
	return &Rest{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Post sends body as JSON to path and returns the response status.
func (r *Rest) Post(ctx context.Context, path string, body any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUpstreamUnavailable, "puzzboss post", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	r.logger.Info("puzzboss post", "path", path, "status", resp.StatusCode)
	return resp.StatusCode, nil
}

// postField writes one field of an entity. Anything but 200 is an upstream
// failure.
func (r *Rest) postField(ctx context.Context, base, id, field string, value any) error {
	path := fmt.Sprintf("/%s/%s/%s", base, url.PathEscape(id), field)
	status, err := r.Post(ctx, path, map[string]any{field: value})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, "puzzboss post",
			fmt.Errorf("%s returned HTTP %d", path, status))
	}
	return nil
}

// Store reads puzzles and rounds from the backend's database and writes them
// through the REST API. Reads are retried on connection failures; writes
// never are.
type Store struct {
	puzzles secondary.PuzzleRepository
	rounds  secondary.RoundRepository
	pinger  secondary.Pinger
	rest    *Rest
	retries int
	logger  *slog.Logger
}

// NewStore combines read repositories over the backend database with a REST
// writer. retries is the number of extra attempts for a failed read.
func NewStore(puzzles secondary.PuzzleRepository, rounds secondary.RoundRepository, pinger secondary.Pinger, rest *Rest, retries int, logger *slog.Logger) *Store {
	return &Store{puzzles: puzzles, rounds: rounds, pinger: pinger, rest: rest, retries: retries, logger: logger}
}

// Puzzles returns the puzzle repository view of the store.
func (s *Store) Puzzles() secondary.PuzzleRepository { return puzzleStore{s} }

// Rounds returns the round repository view of the store.
func (s *Store) Rounds() secondary.RoundRepository { return roundStore{s} }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	return s.pinger.Ping(ctx)
}

// read runs fn, pinging and retrying after failures that are not a clean
// "not found" or "bad input" answer.
func read[T any](ctx context.Context, s *Store, op string, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 0; attempt <= s.retries; attempt++ {
		result, err = fn()
		if err == nil || errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrInvalidInput) {
			return result, err
		}
		if ctx.Err() != nil {
			break
		}
		s.logger.Warn("puzzboss read failed", "op", op, "attempt", attempt+1, "error", err)
		if pingErr := s.Ping(ctx); pingErr != nil {
			s.logger.Warn("puzzboss ping failed", "error", pingErr)
		}
	}
	var zero T
	return zero, apperr.Wrap(apperr.KindUpstreamUnavailable, op, err)
}

type puzzleStore struct{ s *Store }

func (p puzzleStore) GetByID(ctx context.Context, id string) (*secondary.PuzzleRecord, error) {
	return read(ctx, p.s, "get puzzle", func() (*secondary.PuzzleRecord, error) {
		return p.s.puzzles.GetByID(ctx, id)
	})
}

func (p puzzleStore) GetByChannel(ctx context.Context, channelID string) (*secondary.PuzzleRecord, error) {
	return read(ctx, p.s, "get puzzle", func() (*secondary.PuzzleRecord, error) {
		return p.s.puzzles.GetByChannel(ctx, channelID)
	})
}

func (p puzzleStore) List(ctx context.Context, filters secondary.PuzzleFilters) ([]*secondary.PuzzleRecord, error) {
	return read(ctx, p.s, "list puzzles", func() ([]*secondary.PuzzleRecord, error) {
		return p.s.puzzles.List(ctx, filters)
	})
}

func (p puzzleStore) UpdateField(ctx context.Context, id, field, value string) error {
	if !secondary.PuzzleFields[field] {
		return apperr.New(apperr.KindInvalidInput, "update puzzle", "unknown puzzle field %q", field)
	}
	return p.s.rest.postField(ctx, "puzzles", id, field, value)
}

type roundStore struct{ s *Store }

func (r roundStore) GetByName(ctx context.Context, name string) (*secondary.RoundRecord, error) {
	return read(ctx, r.s, "get round", func() (*secondary.RoundRecord, error) {
		return r.s.rounds.GetByName(ctx, name)
	})
}

func (r roundStore) List(ctx context.Context) ([]*secondary.RoundRecord, error) {
	return read(ctx, r.s, "list rounds", func() ([]*secondary.RoundRecord, error) {
		return r.s.rounds.List(ctx)
	})
}

// Create posts a new round. The backend answers 500 when the name is taken.
func (r roundStore) Create(ctx context.Context, name string) error {
	status, err := r.s.rest.Post(ctx, "/rounds/", map[string]string{"name": name})
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusInternalServerError:
		return apperr.New(apperr.KindInvalidInput, "create round",
			"Error. This is likely because the round already exists.")
	default:
		return apperr.Wrap(apperr.KindUpstreamUnavailable, "create round",
			fmt.Errorf("/rounds/ returned HTTP %d", status))
	}
}

func (r roundStore) UpdateField(ctx context.Context, id, field, value string) error {
	if !secondary.RoundFields[field] {
		return apperr.New(apperr.KindInvalidInput, "update round", "unknown round field %q", field)
	}
	return r.s.rest.postField(ctx, "rounds", id, field, value)
}
