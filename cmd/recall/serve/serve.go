// Package servecmder provides the serve command, which runs the recall
// engine behind the HTTP and MCP API.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/api"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/dotdir"
	"github.com/papercomputeco/recall/pkg/engine"
	"github.com/papercomputeco/recall/pkg/logger"
)

type serveCommander struct {
	listen            string
	reconcileInterval string
	noMCP             bool
	skipReconcile     bool
	jsonLogs          bool
	logFile           string

	debug     bool
	configDir string
	cfg       *config.Config
	logger    *slog.Logger
}

const serveLongDesc string = `Run the recall API server.

Builds the structured store, similarity index, embedder, language model and
event publisher from configuration, reconciles every owner once, and serves:

  POST /v1/memories/extract   Ingest a message
  POST /v1/memories/search    Search with a synthesized answer
  POST /v1/memories/delete    Retire the best matching memory
  GET  /v1/memories           List active memories
  GET  /v1/memories/stats     Counts and store sync status
  GET  /v1/memories/history   Retirement log
  POST /v1/chat               Route a message by intent
  POST /v1/reconcile          Repair one owner's similarity index
  GET  /health                Dependency health
  GET  /metrics               Prometheus metrics
  ANY  /mcp                   MCP tools over streamable HTTP

Flags override environment variables (RECALL_*), which override config.toml.

Examples:
  recall serve
  recall serve --listen :9000 --storage-provider postgres --postgres-dsn postgres://...
  recall serve --vector-store-provider qdrant --vector-store-target localhost:6334
  recall serve --reconcile-interval 10m --owner-lock local`

const serveShortDesc string = "Run the recall API server"

var serveFlagKeys = append([]string{
	config.FlagAPIListen,
	config.FlagReconcileEvery,
}, config.DriverFlagKeys...)

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlagKeys)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagReconcileEvery, &cmder.reconcileInterval)
	config.AddDriverFlags(cmd)
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Disable the /mcp endpoint")
	cmd.Flags().BoolVar(&cmder.skipReconcile, "skip-startup-reconcile", false, "Do not reconcile every owner before serving")
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json", false, "Log JSON instead of colorized text")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append logs to this file")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithSource(c.debug),
		logger.WithPretty(!c.jsonLogs),
		logger.WithJSON(c.jsonLogs),
	)

	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()

		c.logger = logger.Multi(c.logger, logger.New(
			logger.WithDebug(c.debug),
			logger.WithJSON(true),
			logger.WithWriter(f),
		))
	}

	interval, err := c.cfg.Engine.ReconcileEvery()
	if err != nil {
		return err
	}

	dataDir, err := dotdir.NewManager().Target(c.configDir)
	if err != nil {
		return fmt.Errorf("resolving data dir: %w", err)
	}

	e, err := engine.Build(ctx, c.cfg, dataDir, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			c.logger.Warn("closing engine", "error", err)
		}
	}()

	if !c.skipReconcile {
		c.startupReconcile(ctx, e)
	}

	server, err := api.NewServer(api.Config{
		ListenAddr:        c.cfg.API.Listen,
		ReconcileInterval: interval,
		ReconcileWorkers:  c.cfg.Engine.ReconcileWorkers,
		DisableMCP:        c.noMCP,
	}, e.Coordinator, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

// startupReconcile repairs drift left by a previous run. Failures are
// logged; the server still starts.
func (c *serveCommander) startupReconcile(ctx context.Context, e *engine.Engine) {
	summary, err := e.Coordinator.ReconcileAll(ctx, c.cfg.Engine.ReconcileWorkers)
	if err != nil {
		c.logger.Warn("startup reconcile failed", "error", err)
		return
	}

	c.logger.Info("startup reconcile finished",
		"owners", summary.Owners,
		"reindexed", summary.Reindexed,
		"removed", summary.Removed,
		"failed", summary.Failed,
	)
}
