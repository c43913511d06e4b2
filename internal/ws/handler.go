// Package ws streams live session output over a websocket. Each connection
// drives one output stream; the client may send {"type":"cancel"} to stop, or
// simply disconnect.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/smilejp/cc-anywhere-windows/internal/ansi"
	"github.com/smilejp/cc-anywhere-windows/internal/logging"
	"github.com/smilejp/cc-anywhere-windows/internal/monitoring"
	"github.com/smilejp/cc-anywhere-windows/internal/session"
	"github.com/smilejp/cc-anywhere-windows/internal/shared/id"
	"github.com/smilejp/cc-anywhere-windows/internal/summarizer"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Remote adapters connect from anywhere; auth sits in front.
		return true
	},
}

// Handler manages websocket stream connections.
type Handler struct {
	manager    *session.Manager
	summarizer *summarizer.Summarizer
	streamOpts session.StreamOptions
	metrics    *monitoring.Metrics
	logger     *logging.Logger
}

// NewHandler creates a websocket handler. metrics may be nil.
func NewHandler(manager *session.Manager, streamOpts session.StreamOptions, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		manager:    manager,
		summarizer: summarizer.New(),
		streamOpts: streamOpts,
		metrics:    metrics,
		logger:     logger,
	}
}

type clientMessage struct {
	Type string `json:"type"`
}

// HandleStream upgrades the connection and forwards output deltas until the
// stream ends or the client goes away.
func (h *Handler) HandleStream(c *gin.Context) {
	sessionID := id.SessionID(c.Param("id"))

	if _, err := h.manager.Get(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
		defer h.metrics.WSConnections.Dec()
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Read pump: a cancel message or a read error (client gone) ends the
	// stream.
	go func() {
		defer cancel()
		for {
			var msg clientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == "cancel" {
				return
			}
		}
	}()

	h.send(conn, gin.H{
		"type":       "connected",
		"session_id": sessionID,
	})

	var lastDelta string
	for delta := range h.manager.Stream(ctx, sessionID, h.streamOpts) {
		lastDelta = delta
		if h.metrics != nil {
			h.metrics.StreamDeltas.Inc()
		}
		if err := h.send(conn, gin.H{
			"type":       "output",
			"session_id": sessionID,
			"content":    delta,
			"timestamp":  time.Now().Unix(),
		}); err != nil {
			return
		}
	}

	// Stream ended: report what the session accomplished.
	if lastDelta != "" {
		analysis := h.summarizer.Analyze(ansi.Strip(lastDelta))
		if analysis.HasChanges() || analysis.IsCompleted || analysis.HasError {
			h.send(conn, gin.H{
				"type":       "summary",
				"session_id": sessionID,
				"analysis":   analysis,
			})
		}
	}

	h.send(conn, gin.H{
		"type":       "complete",
		"session_id": sessionID,
		"timestamp":  time.Now().Unix(),
	})
}

func (h *Handler) send(conn *websocket.Conn, data any) error {
	return conn.WriteJSON(data)
}
