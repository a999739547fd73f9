package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lox/crashgame/internal/game"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTestServer starts the game loop and broadcaster on a mock clock. The
// crash target of every round is crashAt.
func newTestServer(t *testing.T, crashAt string) (*Server, *quartz.Mock, context.Context) {
	t.Helper()

	clock := quartz.NewMock(t)
	s := NewServer(DefaultConfig(), testLogger(),
		WithClock(clock),
		WithCrashSource(game.FixedCrash(d(crashAt))),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	return s, clock, ctx
}

// advanceUntil steps the mock clock one tick at a time until cond holds
func advanceUntil(t *testing.T, ctx context.Context, s *Server, clock *quartz.Mock, cond func() bool) {
	t.Helper()
	step := s.cfg.GameConfig().TickInterval
	for i := 0; i < 2000; i++ {
		if cond() {
			return
		}
		clock.Advance(step).MustWait(ctx)
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met while advancing clock")
}

func waitForRunning(t *testing.T, ctx context.Context, s *Server, clock *quartz.Mock) {
	t.Helper()
	advanceUntil(t, ctx, s, clock, func() bool {
		return s.Game().Snapshot().Phase == game.PhaseRunning
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}
