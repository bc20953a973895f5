package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"transcriptionapi/internal/transcription/model"
	"transcriptionapi/internal/transcription/service"
	"transcriptionapi/middleware"
	"transcriptionapi/pkg/identity"
	"transcriptionapi/pkg/metrics"
	"transcriptionapi/socket"
	"transcriptionapi/store"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokens = identity.StaticVerifier{"alice-token": "alice", "bob-token": "bob"}

type testServer struct {
	*httptest.Server
	hub *socket.Hub
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := socket.NewHub(nil)
	go hub.Run(ctx)

	svc := service.NewTranscriptionService(store.NewMemoryStore(), hub, service.DefaultOptions())
	limiter, err := middleware.NewRateLimiter("1000-M", nil)
	require.NoError(t, err)

	srv := httptest.NewServer(Setup(Deps{
		Service:        svc,
		Verifier:       tokens,
		Hub:            hub,
		Metrics:        metrics.New(),
		Limiter:        limiter,
		AllowedOrigins: []string{"http://localhost:3000"},
	}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.URL+path, r)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func detail(t *testing.T, data []byte) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	return body.Detail
}

func TestWalkthrough(t *testing.T) {
	s := newServer(t)

	status, data := s.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Transcription API is running"}`, string(data))

	status, data = s.do(t, http.MethodPost, "/transcriptions", "alice-token", `{"text":"hello world","duration":12.5}`)
	require.Equal(t, http.StatusCreated, status, string(data))
	var created model.TranscriptionResponse
	require.NoError(t, json.Unmarshal(data, &created))
	assert.Equal(t, "alice", created.UID)

	status, data = s.do(t, http.MethodGet, "/transcriptions", "alice-token", "")
	require.Equal(t, http.StatusOK, status)
	var list []model.TranscriptionResponse
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	status, data = s.do(t, http.MethodGet, "/transcriptions", "bob-token", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(data))

	status, data = s.do(t, http.MethodGet, "/transcriptions/"+created.ID, "bob-token", "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Access denied", detail(t, data))

	status, data = s.do(t, http.MethodPut, "/transcriptions/"+created.ID, "alice-token", `{"text":"hello again"}`)
	require.Equal(t, http.StatusOK, status)
	var updated model.TranscriptionResponse
	require.NoError(t, json.Unmarshal(data, &updated))
	assert.Equal(t, "hello again", updated.Text)
	assert.Equal(t, 12.5, updated.Duration)

	status, _ = s.do(t, http.MethodDelete, "/transcriptions/"+created.ID, "bob-token", "")
	assert.Equal(t, http.StatusForbidden, status)

	status, data = s.do(t, http.MethodDelete, "/transcriptions/"+created.ID, "alice-token", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Transcription deleted successfully"}`, string(data))

	status, data = s.do(t, http.MethodGet, "/transcriptions/"+created.ID, "alice-token", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Transcription not found", detail(t, data))
}

func TestAuthErrors(t *testing.T) {
	s := newServer(t)

	status, data := s.do(t, http.MethodGet, "/transcriptions", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Missing authorization header", detail(t, data))

	status, data = s.do(t, http.MethodGet, "/transcriptions", "unknown", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.True(t, strings.HasPrefix(detail(t, data), "Invalid token: "))

	req, err := http.NewRequest(http.MethodGet, s.URL+"/transcriptions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Token alice-token")
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid authorization header format", detail(t, data))
}

func TestNotFoundIsJSON(t *testing.T) {
	s := newServer(t)

	status, data := s.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"detail":"Not Found"}`, string(data))
}

func TestWrongMethodOnKnownPath(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		method string
		path   string
		allow  string
	}{
		{http.MethodPut, "/transcriptions", "GET, HEAD, POST"},
		{http.MethodPatch, "/transcriptions/x", "GET, HEAD, PUT, DELETE"},
	}
	for _, tt := range tests {
		req, err := http.NewRequest(tt.method, s.URL+tt.path, strings.NewReader(`{}`))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer alice-token")
		resp, err := s.Client().Do(req)
		require.NoError(t, err)
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, tt.method+" "+tt.path)
		assert.Equal(t, tt.allow, resp.Header.Get("Allow"))
		assert.Equal(t, "Method Not Allowed", detail(t, data))
	}

	status, data := s.do(t, http.MethodGet, "/transcriptions/", "alice-token", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Not Found", detail(t, data))
}

func TestCORSPreflight(t *testing.T) {
	s := newServer(t)

	req, err := http.NewRequest(http.MethodOptions, s.URL+"/transcriptions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t)
	s.do(t, http.MethodGet, "/", "", "")

	status, data := s.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), `route="GET /{$}"`)
}

func TestChangeFeed(t *testing.T) {
	s := newServer(t)
	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws?token=alice-token"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.hub.ClientCount("alice") == 1 }, time.Second, 10*time.Millisecond)

	status, data := s.do(t, http.MethodPost, "/transcriptions", "alice-token", `{"text":"live","duration":1}`)
	require.Equal(t, http.StatusCreated, status, string(data))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var evt socket.Event
	require.NoError(t, json.Unmarshal(msg, &evt))
	assert.Equal(t, socket.CreatedType, evt.Type)
	assert.Equal(t, "alice", evt.UserID)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.URL, "http")+"/ws?token=nope", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
