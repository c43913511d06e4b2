// Package server wires the supervision core together and runs the HTTP
// surface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/smilejp/cc-anywhere-windows/internal/config"
	"github.com/smilejp/cc-anywhere-windows/internal/events"
	"github.com/smilejp/cc-anywhere-windows/internal/history"
	apihttp "github.com/smilejp/cc-anywhere-windows/internal/http"
	"github.com/smilejp/cc-anywhere-windows/internal/localterm"
	"github.com/smilejp/cc-anywhere-windows/internal/logging"
	"github.com/smilejp/cc-anywhere-windows/internal/middleware"
	"github.com/smilejp/cc-anywhere-windows/internal/monitoring"
	"github.com/smilejp/cc-anywhere-windows/internal/notify"
	"github.com/smilejp/cc-anywhere-windows/internal/session"
	"github.com/smilejp/cc-anywhere-windows/internal/termctl"
	"github.com/smilejp/cc-anywhere-windows/internal/wezterm"
	"github.com/smilejp/cc-anywhere-windows/internal/ws"
)

// Server owns the HTTP listener and the supervision core's lifecycle.
type Server struct {
	cfg     *config.Config
	logger  *logging.Logger
	manager *session.Manager
	bus     *events.Bus
	httpSrv *http.Server
}

// New builds the full application from configuration.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}

	ctrl, err := newController(cfg.Terminal.Backend, logger)
	if err != nil {
		return nil, err
	}

	var hist *history.Logger
	if cfg.History.Enabled {
		hist, err = history.New(cfg.History.Dir, logger.Logger)
		if err != nil {
			return nil, fmt.Errorf("init history: %w", err)
		}
	}

	manager := session.NewManager(ctrl, hist, session.Options{
		Command:        cfg.Terminal.Command,
		Args:           cfg.Terminal.Args,
		DefaultWorkDir: cfg.Terminal.DefaultWorkDir,
		Workspace:      cfg.Terminal.Workspace,
		MaxSessions:    cfg.Terminal.MaxSessions,
		SettleDelay:    cfg.Terminal.SettleDelay,
		ReadLines:      cfg.Stream.ReadLines,
		TailLines:      cfg.Stream.TailLines,
	}, logger.Logger)

	bus := events.NewBus(logger.Logger)

	if len(cfg.Notify.WebhookURLs) > 0 {
		notifier := notify.New(notify.Options{
			URLs:       cfg.Notify.WebhookURLs,
			Timeout:    cfg.Notify.Timeout,
			RetryCount: cfg.Notify.RetryCount,
		}, logger.Logger)
		notifier.Attach(bus)
		logger.Info("webhook notifier attached",
			zap.Int("urls", len(cfg.Notify.WebhookURLs)))
	}

	metrics := monitoring.NewMetrics()

	streamOpts := session.StreamOptions{
		Interval:    cfg.Stream.PollInterval,
		IdleTimeout: cfg.Stream.IdleTimeout,
		Lines:       cfg.Stream.ReadLines,
		StripANSI:   true,
		OnTick:      metrics.StreamTicks.Inc,
	}

	router := newRouter(cfg, logger, manager, bus, hist, metrics, streamOpts)

	return &Server{
		cfg:     cfg,
		logger:  logger,
		manager: manager,
		bus:     bus,
		httpSrv: &http.Server{
			Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
			Handler: router,
		},
	}, nil
}

func newController(backend string, logger *logging.Logger) (termctl.Controller, error) {
	switch backend {
	case "local":
		return localterm.NewController(logger.Logger), nil
	case "", "wezterm":
		return wezterm.NewClient(logger.Logger)
	default:
		return nil, fmt.Errorf("unknown terminal backend %q", backend)
	}
}

func newRouter(
	cfg *config.Config,
	logger *logging.Logger,
	manager *session.Manager,
	bus *events.Bus,
	hist *history.Logger,
	metrics *monitoring.Metrics,
	streamOpts session.StreamOptions,
) *gin.Engine {
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(cors.Default())
	router.Use(monitoring.Middleware(metrics))
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.GlobalRPS > 0 {
			router.Use(middleware.GlobalRateLimit(middleware.RateLimitConfig{
				RequestsPerSecond: cfg.RateLimit.GlobalRPS,
				Burst:             cfg.RateLimit.GlobalBurst,
			}))
		}
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(manager, bus, hist, metrics, logger)
	wsHandler := ws.NewHandler(manager, streamOpts, metrics, logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/sessions", handlers.CreateSession)
	router.GET("/sessions", handlers.ListSessions)
	router.POST("/sessions/import", handlers.ImportSession)
	router.POST("/sessions/import-all", handlers.ImportAllSessions)
	router.GET("/sessions/:id", handlers.GetSession)
	router.DELETE("/sessions/:id", handlers.DestroySession)
	router.POST("/sessions/:id/input", handlers.SendInput)
	router.POST("/sessions/:id/key", handlers.SendKey)
	router.POST("/sessions/:id/cancel", handlers.Cancel)
	router.POST("/sessions/:id/resize", handlers.Resize)
	router.POST("/sessions/:id/restart", handlers.RestartSession)
	router.GET("/sessions/:id/output", handlers.ReadOutput)
	router.GET("/sessions/:id/summary", handlers.Summary)
	router.GET("/sessions/:id/history", handlers.SessionHistory)
	router.GET("/sessions/:id/stats", handlers.SessionStats)
	router.GET("/sessions/:id/stream", wsHandler.HandleStream)

	router.GET("/panes", handlers.ListPanes)
	router.POST("/hooks/:kind", handlers.HookEvent)

	return router
}

// Run starts the HTTP listener and blocks until it stops.
func (s *Server) Run() error {
	s.logger.Info("starting server", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the listener and releases the session registry. Panes stay
// alive in the terminal host so sessions can be imported after a restart.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := s.httpSrv.Shutdown(shutdownCtx)

	s.manager.Shutdown()
	s.bus.Clear()
	s.logger.Sync()
	return err
}

// Manager exposes the session manager, for tests and embedding.
func (s *Server) Manager() *session.Manager {
	return s.manager
}
