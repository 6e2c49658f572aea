// Package main is the Agent Forge supervisor daemon: it loads the
// configuration document, recovers any agents whose tmux sessions survived
// the previous run, and starts the status monitor, the connector router and
// the control-plane HTTP listener in one process.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agentforge/agentforge/internal/agentstore"
	"github.com/agentforge/agentforge/internal/broadcast"
	"github.com/agentforge/agentforge/internal/config"
	"github.com/agentforge/agentforge/internal/extract"
	"github.com/agentforge/agentforge/internal/hooks"
	"github.com/agentforge/agentforge/internal/lifecycle"
	"github.com/agentforge/agentforge/internal/logging"
	"github.com/agentforge/agentforge/internal/media"
	"github.com/agentforge/agentforge/internal/metrics"
	"github.com/agentforge/agentforge/internal/registry"
	"github.com/agentforge/agentforge/internal/router"
	"github.com/agentforge/agentforge/internal/status"
	"github.com/agentforge/agentforge/internal/store"
	"github.com/agentforge/agentforge/internal/terminal"
	"github.com/agentforge/agentforge/internal/worktree"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	log, err := logging.New(logging.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logging.SetDefault(log)

	log.Info("starting agentforged",
		zap.Int("projects", len(cfg.Projects)),
		zap.Int("connectors", len(cfg.Connectors)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.New(cfg)

	// 3. Persistence store
	dbPath := os.Getenv("AGENTFORGE_DB_PATH")
	if dbPath == "" {
		dbPath = "./agentforge.db"
	}
	snaps, err := store.Open(dbPath)
	if err != nil {
		log.Error("failed to open persistence store", zap.Error(err), zap.String("db_path", dbPath))
		os.Exit(1)
	}
	defer snaps.Close()
	log.Info("persistence store opened", zap.String("db_path", dbPath))

	// 4. Lifecycle manager on top of tmux + git drivers
	agents := agentstore.New()
	term := terminal.New(log)
	wt := worktree.New(log)
	hookURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	lc := lifecycle.New(reg, agents, snaps, term, wt, hookURL, log)

	recovered := lc.Recover(ctx)
	log.Info("startup recovery complete", zap.Int("recovered", recovered))

	// 5. Broadcast hub for dashboard/log-stream subscribers
	hub := broadcast.New(log)

	// 6. Router + connectors
	stager := media.New(log)
	rtr := router.New(reg, agents, lc, stager, log)
	running := startConnectors(ctx, reg, rtr, log)
	defer stopConnectors(running, log)

	// 7. Status monitor with extraction, summarization and metrics
	defaults := reg.Defaults()
	extractor := extract.New(extract.Config{
		Enabled:        defaults.ResponseRelay.Enabled,
		APIKey:         defaults.Summary.APIKey,
		Model:          defaults.ResponseRelay.Model,
		MaxTokens:      defaults.ResponseRelay.MaxTokens,
		TimeoutSeconds: defaults.ResponseRelay.TimeoutSeconds,
	})
	summarizer := status.NewSummarizer(status.SummaryConfig{
		Enabled:        defaults.Summary.Enabled,
		APIKey:         defaults.Summary.APIKey,
		Model:          defaults.Summary.Model,
		MaxTokens:      defaults.Summary.MaxTokens,
		TimeoutSeconds: defaults.Summary.TimeoutSeconds,
	})
	var collector status.MetricsCollector
	if defaults.Metrics.Enabled {
		collector = metrics.New(metrics.Config{
			Enabled:        true,
			EnableGPU:      defaults.Metrics.EnableGPU,
			EnablePerAgent: defaults.Metrics.EnablePerAgent,
		})
	}
	mon := status.New(status.Config{
		PollInterval:    time.Duration(defaults.PollIntervalSeconds * float64(time.Second)),
		MetricsInterval: time.Duration(defaults.Metrics.CollectIntervalSeconds * float64(time.Second)),
	}, term, agents, snaps, hub, rtr, extractor, summarizer, collector, log)

	// 8. HTTP listener: the loopback hook endpoint plus a health check. The
	// full control API and dashboard WebSocket live outside this module and
	// mount alongside these routes.
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	hooks.New(agents, log).Routes(engine)
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "agentforged"})
	})
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: engine,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		mon.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("supervisor exited with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("agentforged stopped")
}
