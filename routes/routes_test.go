package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/Dosada05/cue-club/handlers"
	"github.com/Dosada05/cue-club/metrics"
	"github.com/Dosada05/cue-club/models"
	"github.com/Dosada05/cue-club/realtime"
	"github.com/Dosada05/cue-club/repositories"
	"github.com/Dosada05/cue-club/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hash, err := services.HashPassword("rack-em")
	require.NoError(t, err)
	auth := services.NewAuthService(hash, "route-secret")

	hub := realtime.NewHub()
	rec := metrics.NewRecorder()
	svc := services.NewBracketService(repositories.NewMemoryBracketRepository(), hub, logger,
		services.WithMetrics(rec),
		services.WithRandomSource(rand.New(rand.NewSource(3))),
	)
	t.Cleanup(svc.Close)

	router := chi.NewRouter()
	SetupRoutes(router, Dependencies{
		AuthHandler:      handlers.NewAuthHandler(auth),
		BracketHandler:   handlers.NewBracketHandler(svc),
		WebSocketHandler: handlers.NewWebSocketHandler(hub, svc, nil),
		TokenParser:      auth,
		Metrics:          rec.Handler(),
		Logger:           logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	ts := &testServer{Server: srv}
	var out services.TokenOutput
	code := ts.do(t, http.MethodPost, "/auth/token", map[string]string{"password": "rack-em"}, &out)
	require.Equal(t, http.StatusOK, code)
	ts.token = out.Token
	return ts
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, dst interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dst != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp.StatusCode
}

type bracketEnvelope struct {
	Bracket models.BracketView `json:"bracket"`
	Error   string             `json:"error"`
}

func TestRoutes_BracketLifecycle(t *testing.T) {
	s := newTestServer(t)

	var env bracketEnvelope
	code := s.do(t, http.MethodPost, "/tournaments/friday/bracket",
		map[string][]string{"participants": {"Ann", "Bob", "Cid"}}, &env)
	require.Equal(t, http.StatusCreated, code, env.Error)
	require.Len(t, env.Bracket.CurrentMatches, 2)
	assert.Equal(t, "", env.Bracket.CurrentMatches[1].Player2, "bye is the last match")

	for i, m := range env.Bracket.CurrentMatches {
		code = s.do(t, http.MethodPost, "/tournaments/friday/bracket/matches/"+strconv.Itoa(i)+"/winner",
			map[string]string{"player": m.Player1}, &env)
		require.Equal(t, http.StatusOK, code, env.Error)
	}
	assert.Equal(t, models.BracketRoundComplete, env.Bracket.State)

	code = s.do(t, http.MethodPost, "/tournaments/friday/bracket/advance", nil, &env)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, 2, env.Bracket.CurrentRound)
	assert.Equal(t, "Final", env.Bracket.CurrentRoundTitle)

	code = s.do(t, http.MethodPost, "/tournaments/friday/bracket/rollback", nil, &env)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, 1, env.Bracket.CurrentRound)

	s.token = ""
	var public bracketEnvelope
	code = s.do(t, http.MethodGet, "/tournaments/friday/bracket", nil, &public)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, env.Bracket.BracketSnapshot, public.Bracket.BracketSnapshot)
}

func TestRoutes_ErrorStatuses(t *testing.T) {
	s := newTestServer(t)

	var env bracketEnvelope
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/tournaments/nope/bracket", nil, &env))

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/tournaments/cup/bracket",
		map[string][]string{"participants": {"Ann", "Bob"}}, &env))

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/tournaments/cup/bracket",
		map[string][]string{"participants": {"Ann", "Bob"}}, &env))
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/tournaments/cup/bracket/advance", nil, &env))
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/tournaments/cup/bracket/matches/5/winner",
		map[string]string{"player": "Ann"}, &env))
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/tournaments/cup/bracket/matches/x/winner",
		map[string]string{"player": "Ann"}, &env))
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/tournaments/cup/bracket/regenerate",
		map[string]int{"round": 4}, &env))
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodDelete, "/tournaments/cup/bracket/reveal", nil, &env))
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/tournaments/other/bracket",
		map[string][]string{"participants": {"Ann", "Ann"}}, &env))
}

func TestRoutes_MutationsNeedToken(t *testing.T) {
	s := newTestServer(t)
	s.token = ""

	var body map[string]interface{}
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/tournaments/cup/bracket",
		map[string][]string{"participants": {"Ann", "Bob"}}, &body))

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/auth/token",
		map[string]string{"password": "wrong"}, &body))
}

func TestRoutes_DeleteBracket(t *testing.T) {
	s := newTestServer(t)

	var env bracketEnvelope
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/tournaments/cup/bracket",
		map[string][]string{"participants": {"Ann", "Bob"}}, &env))

	token := s.token
	s.token = ""
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodDelete, "/tournaments/cup/bracket", nil, nil))
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/tournaments/cup/bracket", nil, &env))

	s.token = token
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/tournaments/cup/bracket", nil, nil))
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/tournaments/cup/bracket", nil, &env))
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/tournaments/cup/bracket", nil, &env))
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.Client().Get(s.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = s.Client().Get(s.URL + "/metrics")
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "go_goroutines")
}
