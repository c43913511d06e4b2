package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilejp/cc-anywhere-windows/internal/events"
	"github.com/smilejp/cc-anywhere-windows/internal/history"
	"github.com/smilejp/cc-anywhere-windows/internal/session"
	"github.com/smilejp/cc-anywhere-windows/internal/termctl"
)

// stubController is an in-memory process-control backend for handler tests.
type stubController struct {
	mu       sync.Mutex
	nextPane int
	screens  map[int]string
	panes    map[int]termctl.PaneInfo
}

func newStubController() *stubController {
	return &stubController{
		nextPane: 1,
		screens:  make(map[int]string),
		panes:    make(map[int]termctl.PaneInfo),
	}
}

func (s *stubController) Spawn(ctx context.Context, workspace, cwd string, argv []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPane++
	s.panes[s.nextPane] = termctl.PaneInfo{PaneID: s.nextPane, Workspace: workspace, CWD: cwd}
	return s.nextPane, nil
}

func (s *stubController) Kill(ctx context.Context, paneID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.panes, paneID)
	return nil
}

func (s *stubController) SendText(ctx context.Context, paneID int, text string) error {
	return nil
}

func (s *stubController) GetText(ctx context.Context, paneID int, maxLines int, withEscapes bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screens[paneID], nil
}

func (s *stubController) List(ctx context.Context) ([]termctl.PaneInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]termctl.PaneInfo, 0, len(s.panes))
	for _, p := range s.panes {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubController) setScreen(paneID int, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screens[paneID] = content
}

type testEnv struct {
	router  *gin.Engine
	manager *session.Manager
	ctrl    *stubController
	bus     *events.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctrl := newStubController()
	hist, err := history.New(t.TempDir(), nil)
	require.NoError(t, err)

	manager := session.NewManager(ctrl, hist, session.Options{
		Command:        "fake-cli",
		DefaultWorkDir: t.TempDir(),
		MaxSessions:    3,
		SettleDelay:    time.Millisecond,
	}, nil)
	bus := events.NewBus(nil)
	handlers := NewHandlers(manager, bus, hist, nil, nil)

	router := gin.New()
	router.GET("/health", handlers.Health)
	router.POST("/sessions", handlers.CreateSession)
	router.GET("/sessions", handlers.ListSessions)
	router.GET("/sessions/:id", handlers.GetSession)
	router.DELETE("/sessions/:id", handlers.DestroySession)
	router.POST("/sessions/:id/input", handlers.SendInput)
	router.POST("/sessions/:id/key", handlers.SendKey)
	router.POST("/sessions/:id/cancel", handlers.Cancel)
	router.GET("/sessions/:id/output", handlers.ReadOutput)
	router.GET("/sessions/:id/summary", handlers.Summary)
	router.GET("/sessions/:id/history", handlers.SessionHistory)
	router.POST("/hooks/:kind", handlers.HookEvent)

	return &testEnv{router: router, manager: manager, ctrl: ctrl, bus: bus}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createSession(t *testing.T, name string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/sessions", `{"name":"`+name+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var s session.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	return s.ID.String()
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestCreateAndGetSession(t *testing.T) {
	env := newTestEnv(t)

	sessionID := env.createSession(t, "alpha")

	w := env.do(t, http.MethodGet, "/sessions/"+sessionID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alpha")
}

func TestCreateDuplicateConflict(t *testing.T) {
	env := newTestEnv(t)

	env.createSession(t, "alpha")
	w := env.do(t, http.MethodPost, "/sessions", `{"name":"alpha"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateCapacityExceeded(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"a", "b", "c"} {
		env.createSession(t, name)
	}
	w := env.do(t, http.MethodPost, "/sessions", `{"name":"d"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestGetMissingSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/sessions/sess_missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDestroySession(t *testing.T) {
	env := newTestEnv(t)

	sessionID := env.createSession(t, "alpha")

	w := env.do(t, http.MethodDelete, "/sessions/"+sessionID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/sessions/"+sessionID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendInputAndHistory(t *testing.T) {
	env := newTestEnv(t)

	sessionID := env.createSession(t, "alpha")

	w := env.do(t, http.MethodPost, "/sessions/"+sessionID+"/input", `{"text":"run tests"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/sessions/"+sessionID+"/history?kind=input", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "run tests")
}

func TestSendInputMissingText(t *testing.T) {
	env := newTestEnv(t)

	sessionID := env.createSession(t, "alpha")

	w := env.do(t, http.MethodPost, "/sessions/"+sessionID+"/input", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendKeyAndCancel(t *testing.T) {
	env := newTestEnv(t)

	sessionID := env.createSession(t, "alpha")

	w := env.do(t, http.MethodPost, "/sessions/"+sessionID+"/key", `{"key":"Enter"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/sessions/"+sessionID+"/cancel", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadOutput(t *testing.T) {
	env := newTestEnv(t)

	sessionID := env.createSession(t, "alpha")
	s := env.manager.GetByName("alpha")
	env.ctrl.setScreen(s.PaneID, "\x1b[32mhello world\x1b[0m\nProceed? [y/N]")

	w := env.do(t, http.MethodGet, "/sessions/"+sessionID+"/output?strip_ansi=true", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Content        string `json:"content"`
		IsWaitingInput bool   `json:"is_waiting_input"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Content, "hello world")
	assert.NotContains(t, resp.Content, "\x1b")
	assert.True(t, resp.IsWaitingInput)
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t)

	sessionID := env.createSession(t, "alpha")
	s := env.manager.GetByName("alpha")
	env.ctrl.setScreen(s.PaneID, "Created main.go\n5 passed\nDone.")

	w := env.do(t, http.MethodGet, "/sessions/"+sessionID+"/summary", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "main.go")
	assert.Contains(t, body, "\"is_completed\":true")
}

func TestHookEventPublished(t *testing.T) {
	env := newTestEnv(t)

	var (
		mu       sync.Mutex
		received []*events.HookEvent
	)
	env.bus.Subscribe(events.Stop, func(e *events.HookEvent) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	})

	w := env.do(t, http.MethodPost, "/hooks/Stop", `{"session_id":"sess_1"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "sess_1", received[0].SessionID)
}

func TestHookEventUnknownKindIgnored(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/hooks/SomethingElse", `{"session_id":"sess_1"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
}

func TestHookEventMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/hooks/Stop", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
