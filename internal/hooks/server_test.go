package hooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/core/puzzle"
	"github.com/example/puzzbot/internal/ctxutil"
	"github.com/example/puzzbot/internal/logging"
	"github.com/example/puzzbot/internal/ports/primary"
)

type recordingStatus struct {
	calls  []string
	actors []ctxutil.Actor
	err    error
}

func (r *recordingStatus) record(ctx context.Context, call string) (*primary.TransitionResponse, error) {
	r.calls = append(r.calls, call)
	r.actors = append(r.actors, ctxutil.ActorFromContext(ctx))
	if r.err != nil {
		return nil, r.err
	}
	return &primary.TransitionResponse{Outcome: primary.OutcomeApplied, Message: "ok"}, nil
}

func (r *recordingStatus) Mark(ctx context.Context, req primary.MarkRequest) (*primary.TransitionResponse, error) {
	return r.record(ctx, "mark "+req.Puzzle.ID+" "+string(req.Status))
}

func (r *recordingStatus) Solve(ctx context.Context, req primary.SolveRequest) (*primary.TransitionResponse, error) {
	return r.record(ctx, "solve "+req.Puzzle.ID+" "+req.Answer)
}

func (r *recordingStatus) Unsolve(ctx context.Context, ref primary.PuzzleRef) (*primary.TransitionResponse, error) {
	return r.record(ctx, "unsolve "+ref.ID)
}

func (r *recordingStatus) Publish(ctx context.Context, ref primary.PuzzleRef) (*primary.TransitionResponse, error) {
	return r.record(ctx, "publish "+ref.ID)
}

func (r *recordingStatus) SetNote(ctx context.Context, req primary.NoteRequest) (*primary.NoteResponse, error) {
	return &primary.NoteResponse{}, nil
}

type recordingRounds struct{ announced []string }

func (r *recordingRounds) AnnounceRound(ctx context.Context, round string) error {
	r.announced = append(r.announced, round)
	return nil
}

func (r *recordingRounds) CreateRound(ctx context.Context, round string) error { return nil }

func (r *recordingRounds) SolveRound(ctx context.Context, round string) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *recordingStatus, *recordingRounds) {
	t.Helper()
	status := &recordingStatus{}
	rounds := &recordingRounds{}
	s := New(status, rounds, "hunter2", []string{"Puzzleboss"}, logging.Discard())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, status, rounds
}

func post(t *testing.T, srv *httptest.Server, path, secret, body string) (int, Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	return resp.StatusCode, out
}

func TestHooksRouteToServices(t *testing.T) {
	srv, status, rounds := newTestServer(t)

	cases := []struct {
		path string
		body string
	}{
		{"/hooks/puzzles/7/published", ""},
		{"/hooks/puzzles/7/solved", `{"answer":"owl"}`},
		{"/hooks/puzzles/7/status", `{"status":"Needs eyes"}`},
		{"/hooks/puzzles/8/status", `{"status":"critical"}`},
	}
	for _, c := range cases {
		code, resp := post(t, srv, c.path, "hunter2", c.body)
		if code != http.StatusOK || resp.Outcome != string(primary.OutcomeApplied) {
			t.Errorf("%s: got %d %+v", c.path, code, resp)
		}
	}
	if code, _ := post(t, srv, "/hooks/rounds/The%20Museum/announced", "hunter2", ""); code != http.StatusOK {
		t.Errorf("round announce returned %d", code)
	}

	want := []string{"publish 7", "solve 7 owl", "mark 7 Needs eyes", "mark 8 Critical"}
	if diff := cmp.Diff(want, status.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"The Museum"}, rounds.announced); diff != "" {
		t.Errorf("rounds mismatch (-want +got):\n%s", diff)
	}
	for _, a := range status.actors {
		if !a.HasRole("Puzzleboss") {
			t.Errorf("hook actor lacks privileged role: %+v", a)
		}
	}
}

func TestHooksRejectBadSecret(t *testing.T) {
	srv, status, _ := newTestServer(t)
	for _, secret := range []string{"", "wrong"} {
		if code, _ := post(t, srv, "/hooks/puzzles/7/published", secret, ""); code != http.StatusUnauthorized {
			t.Errorf("secret %q: got %d", secret, code)
		}
	}
	if len(status.calls) != 0 {
		t.Error("rejected requests must not reach the services")
	}
}

func TestHooksErrors(t *testing.T) {
	srv, status, _ := newTestServer(t)

	code, resp := post(t, srv, "/hooks/puzzles/7/status", "hunter2", `{"status":"sideways"}`)
	if code != http.StatusBadRequest || resp.Outcome != OutcomeError {
		t.Errorf("unknown status: got %d %+v", code, resp)
	}

	code, _ = post(t, srv, "/hooks/puzzles/7/solved", "hunter2", `{not json`)
	if code != http.StatusBadRequest {
		t.Errorf("bad json: got %d", code)
	}

	status.err = apperr.NotFound("get puzzle", "puzzle 9 not found")
	code, resp = post(t, srv, "/hooks/puzzles/9/published", "hunter2", "")
	if code != http.StatusNotFound || resp.Message != "puzzle 9 not found" {
		t.Errorf("not found: got %d %+v", code, resp)
	}

	status.err = apperr.Wrap(apperr.KindUpstreamUnavailable, "send", context.DeadlineExceeded)
	code, resp = post(t, srv, "/hooks/puzzles/9/published", "hunter2", "")
	if code != http.StatusBadGateway || resp.Message != "internal error" {
		t.Errorf("upstream: got %d %+v", code, resp)
	}

	status.err = nil
	code, _ = post(t, srv, "/hooks/puzzles/9/status", "hunter2", `{"status":"`+string(puzzle.StatusSolved)+`"}`)
	if code != http.StatusOK {
		t.Errorf("status passes through to the guard, got %d", code)
	}
}

func TestHooksRateLimit(t *testing.T) {
	status := &recordingStatus{}
	s := New(status, &recordingRounds{}, "hunter2", nil, logging.Discard())
	s.SetLimit(0, 2)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	var codes []int
	for i := 0; i < 3; i++ {
		code, _ := post(t, srv, "/hooks/puzzles/1/published", "hunter2", "")
		codes = append(codes, code)
	}
	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	if diff := cmp.Diff(want, codes); diff != "" {
		t.Errorf("codes mismatch (-want +got):\n%s", diff)
	}
}
