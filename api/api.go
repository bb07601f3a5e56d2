package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papercomputeco/recall/api/mcp"
	"github.com/papercomputeco/recall/pkg/coordinator"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/metrics"
)

// Server is the API server for the recall engine.
type Server struct {
	config   Config
	coord    *coordinator.Coordinator
	logger   *slog.Logger
	app      *fiber.App
	validate *validator.Validate

	// The reconciler is started at most once, by Run. Shutdown consumes
	// the same once so a server that never ran does not wait on it.
	reconcileOnce sync.Once
	reconcileCtx  context.Context
	stopReconcile context.CancelFunc
	reconcileDone chan struct{}
}

// NewServer creates a new API server around an already wired coordinator.
func NewServer(config Config, coord *coordinator.Coordinator, log *slog.Logger) (*Server, error) {
	if coord == nil {
		return nil, errors.New("coordinator is required")
	}
	if log == nil {
		log = logger.Nop()
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Coordinator: coord,
		Noop:        config.DisableMCP,
		Logger:      log,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create MCP server: %w", err)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	reconcileCtx, stopReconcile := context.WithCancel(context.Background())

	s := &Server{
		config:        config,
		coord:         coord,
		logger:        log,
		app:           app,
		validate:      validator.New(),
		reconcileCtx:  reconcileCtx,
		stopReconcile: stopReconcile,
		reconcileDone: make(chan struct{}),
	}

	app.Use(s.countRequests)

	app.Get("/ping", s.handlePing)
	app.Get("/health", s.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/v1")
	v1.Post("/memories/extract", s.handleExtract)
	v1.Post("/memories/search", s.handleSearch)
	v1.Post("/memories/delete", s.handleDelete)
	v1.Get("/memories", s.handleList)
	v1.Get("/memories/stats", s.handleStats)
	v1.Get("/memories/history", s.handleHistory)
	v1.Post("/chat", s.handleChat)
	v1.Post("/reconcile", s.handleReconcile)

	if h := mcpServer.Handler(); h != nil {
		app.All("/mcp", adaptor.HTTPHandler(h))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.reconcileOnce.Do(s.startReconciler)

	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	s.stopReconcile()
	s.reconcileOnce.Do(func() { close(s.reconcileDone) })
	<-s.reconcileDone
	return s.app.Shutdown()
}

// startReconciler repairs the similarity index periodically when an
// interval is configured.
func (s *Server) startReconciler() {
	if s.config.ReconcileInterval <= 0 {
		close(s.reconcileDone)
		return
	}

	ctx := s.reconcileCtx
	go func() {
		defer close(s.reconcileDone)

		ticker := time.NewTicker(s.config.ReconcileInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				summary, err := s.coord.ReconcileAll(ctx, s.config.ReconcileWorkers)
				if err != nil {
					s.logger.Error("periodic reconcile failed", "error", err)
					continue
				}
				s.logger.Debug("periodic reconcile finished",
					"owners", summary.Owners,
					"reindexed", summary.Reindexed,
					"removed", summary.Removed,
				)
			}
		}
	}()
}

// countRequests records every request in the HTTP metrics.
func (s *Server) countRequests(c *fiber.Ctx) error {
	err := c.Next()

	status := c.Response().StatusCode()
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		status = ferr.Code
	}

	metrics.HTTPRequestsTotal.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).Inc()
	return err
}
