package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/veille/app/aggregator"
	"github.com/lysyi3m/veille/app/api"
	"github.com/lysyi3m/veille/app/cfg"
	"github.com/lysyi3m/veille/app/database"
	"github.com/lysyi3m/veille/app/feed"
	"github.com/lysyi3m/veille/app/snapshot"
	"github.com/lysyi3m/veille/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		if errors.Is(err, cfg.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Veille", "version", appCfg.Version, "once", appCfg.Once)

	configCache := feed.NewConfigCache(appCfg.TabsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load tab configurations", "dir", appCfg.TabsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded tab configurations", "dir", appCfg.TabsDir, "count", configCache.GetConfigCount())

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	stateRepo := database.NewStateRepository(db)
	manualRepo := database.NewManualItemRepository(db)
	runRepo := database.NewRunRepository(db)

	fetcher := feed.NewFetcher(&http.Client{}, appCfg.UserAgent)
	agg := aggregator.NewAggregator(fetcher, appCfg.FetchConcurrency)
	store := snapshot.NewStore(appCfg.OutputDir)

	if appCfg.Once {
		if failed := runOnce(appCfg, configCache, agg, store, runRepo, stateRepo); failed > 0 {
			slog.Error("Aggregation finished with failures", "failed_tabs", failed)
			db.Close()
			os.Exit(1)
		}
		slog.Info("Aggregation finished")
		return
	}

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval", appCfg.GetSchedulerInterval())
	scheduler := tasks.NewScheduler(configCache, agg, store, runRepo, stateRepo,
		appCfg.GetSchedulerInterval(), appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	generator := feed.NewGenerator(appCfg.BaseUrl, appCfg.Port, appCfg.Version)
	apiHandler := api.NewHandler(configCache, store, stateRepo, manualRepo, runRepo, generator, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey, appCfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}

// runOnce aggregates the selected tabs (every enabled tab when none were
// named) and returns how many of them failed to write their snapshot.
func runOnce(appCfg *cfg.Cfg, configCache *feed.ConfigCache, agg *aggregator.Aggregator,
	store *snapshot.Store, runRepo database.RunRepository, stateRepo database.StateRepository) int {
	tabConfigs := configCache.GetEnabledConfigs()
	if len(appCfg.Tabs) > 0 {
		tabConfigs = nil
		for _, name := range appCfg.Tabs {
			tabConfig, err := configCache.GetConfig(name)
			if err != nil {
				slog.Error("Unknown tab", "tab", name, "error", err)
				return len(appCfg.Tabs)
			}
			tabConfigs = append(tabConfigs, tabConfig)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(appCfg.WorkerCount)

	for _, tabConfig := range tabConfigs {
		task := tasks.NewAggregateTabTask(tabConfig, configCache.RosterPath(tabConfig), agg, store, runRepo, stateRepo)
		g.Go(func() error {
			task.Start()
			if err := task.Execute(ctx); err != nil {
				slog.Error("Tab aggregation failed", "tab", tabConfig.Name, "error", err)
				failed.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	return int(failed.Load())
}
