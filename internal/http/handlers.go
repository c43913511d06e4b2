// Package http exposes the supervision core over REST. Handlers are thin:
// they bind requests, call the session manager, and map the error taxonomy
// onto status codes.
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/smilejp/cc-anywhere-windows/internal/ansi"
	"github.com/smilejp/cc-anywhere-windows/internal/events"
	"github.com/smilejp/cc-anywhere-windows/internal/history"
	"github.com/smilejp/cc-anywhere-windows/internal/logging"
	"github.com/smilejp/cc-anywhere-windows/internal/monitoring"
	"github.com/smilejp/cc-anywhere-windows/internal/session"
	"github.com/smilejp/cc-anywhere-windows/internal/shared/id"
	"github.com/smilejp/cc-anywhere-windows/internal/summarizer"
)

// Handlers contains all REST handlers.
type Handlers struct {
	manager    *session.Manager
	bus        *events.Bus
	summarizer *summarizer.Summarizer
	history    *history.Logger
	metrics    *monitoring.Metrics
	logger     *logging.Logger
}

// NewHandlers creates the handler set. history and metrics may be nil.
func NewHandlers(
	manager *session.Manager,
	bus *events.Bus,
	hist *history.Logger,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		manager:    manager,
		bus:        bus,
		summarizer: summarizer.New(),
		history:    hist,
		metrics:    metrics,
		logger:     logger,
	}
}

// Root reports service identity.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "cc-anywhere",
	})
}

// Health reports liveness and registry size.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": h.manager.Count(),
	})
}

type createRequest struct {
	Name           string `json:"name"`
	WorkingDir     string `json:"working_dir"`
	CreateWorktree bool   `json:"create_worktree"`
	WorktreeBranch string `json:"worktree_branch"`
	KeepWorktree   bool   `json:"keep_worktree"`
}

// CreateSession creates a new session.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.manager.Create(c.Request.Context(), session.CreateOptions{
		Name:           req.Name,
		WorkingDir:     req.WorkingDir,
		CreateWorktree: req.CreateWorktree,
		WorktreeBranch: req.WorktreeBranch,
		KeepWorktree:   req.KeepWorktree,
	})
	if err != nil {
		h.sessionError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.SessionsCreated.Inc()
		h.metrics.SessionsActive.Set(float64(h.manager.Count()))
	}
	c.JSON(http.StatusCreated, s)
}

// ListSessions lists all live sessions.
func (h *Handlers) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.manager.List()})
}

// GetSession returns one session.
func (h *Handlers) GetSession(c *gin.Context) {
	s, err := h.manager.Get(id.SessionID(c.Param("id")))
	if err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// DestroySession destroys a session. The cleanup_worktree query parameter
// overrides the session's own setting.
func (h *Handlers) DestroySession(c *gin.Context) {
	var cleanup *bool
	if v := c.Query("cleanup_worktree"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cleanup_worktree"})
			return
		}
		cleanup = &parsed
	}

	sessionID := id.SessionID(c.Param("id"))
	if err := h.manager.Destroy(c.Request.Context(), sessionID, cleanup); err != nil {
		h.sessionError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.SessionsDestroyed.Inc()
		h.metrics.SessionsActive.Set(float64(h.manager.Count()))
	}
	c.JSON(http.StatusOK, gin.H{"destroyed": sessionID})
}

type inputRequest struct {
	Text string `json:"text" binding:"required"`
}

// SendInput sends a line of input to a session.
func (h *Handlers) SendInput(c *gin.Context) {
	var req inputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.manager.SendInput(c.Request.Context(), id.SessionID(c.Param("id")), req.Text); err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

type keyRequest struct {
	Key string `json:"key" binding:"required"`
}

// SendKey sends a named special key to a session.
func (h *Handlers) SendKey(c *gin.Context) {
	var req keyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.manager.SendKey(c.Request.Context(), id.SessionID(c.Param("id")), req.Key); err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

type resizeRequest struct {
	Cols int `json:"cols" binding:"required"`
	Rows int `json:"rows" binding:"required"`
}

// Resize records a client's terminal geometry for a session.
func (h *Handlers) Resize(c *gin.Context) {
	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.manager.Resize(c.Request.Context(), id.SessionID(c.Param("id")), req.Cols, req.Rows); err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resized": true})
}

// Cancel interrupts the running command in a session.
func (h *Handlers) Cancel(c *gin.Context) {
	if err := h.manager.Cancel(c.Request.Context(), id.SessionID(c.Param("id"))); err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// ReadOutput captures a session's current screen. lines bounds the capture;
// strip_ansi returns plain text.
func (h *Handlers) ReadOutput(c *gin.Context) {
	lines, _ := strconv.Atoi(c.DefaultQuery("lines", "0"))
	stripANSI, _ := strconv.ParseBool(c.DefaultQuery("strip_ansi", "false"))

	out, err := h.manager.Read(c.Request.Context(), id.SessionID(c.Param("id")), lines)
	if err != nil {
		h.sessionError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.OutputReads.Inc()
	}

	content := out.Content
	if stripANSI {
		content = ansi.Strip(ansi.NormalizeLineEndings(content))
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":       out.SessionID,
		"content":          content,
		"timestamp":        out.Timestamp,
		"is_waiting_input": out.IsWaitingInput,
	})
}

// Summary analyzes a session's current screen and reports what the agent has
// been doing.
func (h *Handlers) Summary(c *gin.Context) {
	out, err := h.manager.Read(c.Request.Context(), id.SessionID(c.Param("id")), 0)
	if err != nil {
		h.sessionError(c, err)
		return
	}

	analysis := h.summarizer.Analyze(ansi.Strip(ansi.NormalizeLineEndings(out.Content)))
	c.JSON(http.StatusOK, gin.H{
		"session_id": out.SessionID,
		"analysis":   analysis,
		"stats":      analysis.Stats(),
	})
}

// RestartSession destroys and recreates a session in place.
func (h *Handlers) RestartSession(c *gin.Context) {
	s, err := h.manager.Restart(c.Request.Context(), id.SessionID(c.Param("id")))
	if err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type importRequest struct {
	PaneID     int    `json:"pane_id" binding:"required"`
	Name       string `json:"name"`
	WorkingDir string `json:"working_dir"`
}

// ImportSession adopts an existing pane as a managed session.
func (h *Handlers) ImportSession(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.manager.Import(c.Request.Context(), req.PaneID, req.Name, req.WorkingDir)
	if err != nil {
		h.sessionError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.SessionsImported.Inc()
		h.metrics.SessionsActive.Set(float64(h.manager.Count()))
	}
	c.JSON(http.StatusCreated, s)
}

// ImportAllSessions adopts every unmanaged pane in the workspace.
func (h *Handlers) ImportAllSessions(c *gin.Context) {
	imported := h.manager.ImportAll(c.Request.Context())
	if h.metrics != nil {
		h.metrics.SessionsImported.Add(float64(len(imported)))
		h.metrics.SessionsActive.Set(float64(h.manager.Count()))
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported})
}

// ListPanes lists workspace panes on the terminal host, managed or not.
func (h *Handlers) ListPanes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"panes": h.manager.DiscoverPanes(c.Request.Context())})
}

// SessionHistory returns logged traffic for a session.
func (h *Handlers) SessionHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history disabled"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	kind := c.Query("kind")

	entries := h.history.History(c.Param("id"), limit, kind)
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// SessionStats aggregates a session's logged traffic.
func (h *Handlers) SessionStats(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history disabled"})
		return
	}
	c.JSON(http.StatusOK, h.history.Stats(c.Param("id")))
}

// HookEvent ingests a lifecycle event from the monitored process. Unknown
// kinds are acknowledged and ignored so hook configuration changes never
// break the sender.
func (h *Handlers) HookEvent(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := c.Param("kind")
	event, ok := events.FromPayload(kind, payload)
	if !ok {
		h.logger.Debug("ignoring unknown hook kind")
		c.JSON(http.StatusAccepted, gin.H{"status": "ignored", "kind": kind})
		return
	}

	h.bus.Publish(event)
	if h.metrics != nil {
		h.metrics.EventsPublished.WithLabelValues(kind).Inc()
	}
	c.JSON(http.StatusOK, gin.H{"status": "published", "kind": kind})
}

// sessionError maps the lifecycle error taxonomy onto HTTP status codes.
func (h *Handlers) sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrDuplicateName):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrCapacity):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
