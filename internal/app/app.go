// Package app provides the top-level lifecycle for the tips job. It wires
// together the blob store, result cache, browser agent, retry machinery,
// report publisher, and notifications, then executes exactly one run.
package app

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/supermms/betfair-tips/internal/agent"
	"github.com/supermms/betfair-tips/internal/config"
	"github.com/supermms/betfair-tips/internal/domain"
	"github.com/supermms/betfair-tips/internal/pipeline"
	"github.com/supermms/betfair-tips/internal/report"
	"github.com/supermms/betfair-tips/internal/retry"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and executes one prediction run. It returns
// once the run completes or the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	date := a.cfg.RunDate()
	a.logger.InfoContext(ctx, "starting run",
		slog.String("date", date),
		slog.String("blob_backend", a.cfg.Blob.Backend),
		slog.String("cache_backend", a.cfg.Cache.Backend),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	orch := a.buildOrchestrator(deps, date)
	sum, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "run summary", slog.String("summary", sum.String()))
	return nil
}

// buildOrchestrator assembles the run pipeline over the wired dependencies.
func (a *App) buildOrchestrator(deps *Dependencies, date string) *pipeline.Orchestrator {
	cfg := a.cfg

	load := func(ctx context.Context) ([]domain.WorkItem, error) {
		body, err := deps.BlobReader.Get(ctx, cfg.Input.Key)
		if err != nil {
			return nil, err
		}
		defer body.Close()
		return pipeline.LoadItems(ctx, body, cfg.Cache.Precision, cfg.Input.MaxRows, a.logger)
	}

	outputKey := path.Join(cfg.Output.Prefix, date, cfg.Output.Filename)
	write := func(ctx context.Context, rows []domain.ResultRow) error {
		var buf bytes.Buffer
		if err := pipeline.WriteResults(&buf, rows, cfg.Cache.Precision); err != nil {
			return err
		}
		return deps.BlobWriter.Put(ctx, outputKey, &buf, "text/csv")
	}

	// The browser stack is only assembled when the pre-scan finds misses.
	provision := func(ctx context.Context) (pipeline.Source, error) {
		agentCfg := agent.Defaults()
		agentCfg.LoginURL = cfg.Agent.LoginURL
		agentCfg.BackURL = cfg.Agent.BackURL
		agentCfg.IndicatorsURL = cfg.Agent.IndicatorsURL
		agentCfg.Username = cfg.Agent.Username
		agentCfg.Password = cfg.Agent.Password
		agentCfg.Headless = cfg.Agent.Headless
		agentCfg.UserAgent = cfg.Agent.UserAgent

		factory, err := agent.NewFactory(agentCfg, deps.Registry, cfg.Retry.KillPause.Duration, a.logger)
		if err != nil {
			return nil, err
		}

		supervisor := retry.NewSupervisor(
			cfg.Retry.AttemptTimeout.Duration,
			cfg.Retry.GracePeriod.Duration,
			cfg.Retry.KillPause.Duration,
			deps.Sweeper,
			a.logger,
		)
		return retry.NewRetrier(
			factory,
			supervisor,
			cfg.Retry.MaxAttempts,
			deps.Registry,
			deps.Sweeper,
			cfg.Retry.KillPause.Duration,
			a.logger,
		), nil
	}

	var publish pipeline.PublishFunc
	if cfg.Report.Enabled {
		publisher := report.NewPublisher(deps.BlobWriter, cfg.Report.Prefix, a.logger)
		publish = func(ctx context.Context, rows []domain.ResultRow) error {
			return publisher.Publish(ctx, date, rows)
		}
	}

	return pipeline.NewOrchestrator(
		load, write, deps.Cache, provision, publish, deps.Notifier, date, a.logger,
	)
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
