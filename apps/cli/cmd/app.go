package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abdul-hamid-achik/hitboard/packages/core/config"
	"github.com/abdul-hamid-achik/hitboard/packages/engine"
	"github.com/abdul-hamid-achik/hitboard/packages/history"
	"github.com/abdul-hamid-achik/hitboard/packages/notify"
	"github.com/abdul-hamid-achik/hitboard/packages/orchestrator"
	"github.com/abdul-hamid-achik/hitboard/packages/publish"
	"github.com/abdul-hamid-achik/hitboard/packages/report"
	"github.com/abdul-hamid-achik/hitboard/packages/source"
)

// app holds the components built once from configuration
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	ledger history.Ledger
	orch   *orchestrator.Orchestrator
}

type appOptions struct {
	openBrowser bool
}

// loadConfig reads the config file, overlays the environment and
// validates the result
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return cfg, nil
}

// openLedger opens only the run history, for read-only commands
func openLedger(cfg *config.Config) (history.Ledger, error) {
	ledger, err := history.Open(cfg.Storage, logger)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return ledger, nil
}

// newApp wires resolver, engine, ledger, notifiers and orchestrator
func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	src, err := cfg.ResolveSource()
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	resolver, err := source.New(src,
		source.WithLogger(logger),
		source.WithRemoteOptions(source.WithTimeout(cfg.RemoteTimeout())),
	)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}

	created, err := report.EnsureDir(cfg.Storage.ReportsDir)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	if created {
		logger.Info("created reports directory", "dir", cfg.Storage.ReportsDir)
	}

	ledger, err := openLedger(cfg)
	if err != nil {
		return nil, err
	}

	eng := engine.NewNewman(
		engine.WithCommand(cfg.Engine.Command),
		engine.WithExtraArgs(cfg.Engine.ExtraArgs...),
		engine.WithRunTimeout(cfg.EngineTimeout()),
		engine.WithLogger(logger),
	)

	orchOpts := []orchestrator.Option{
		orchestrator.WithReportConfig(cfg.Report),
		orchestrator.WithLogger(logger),
	}
	notifiers, err := buildNotifiers(ctx, cfg, ledger, opts)
	if err != nil {
		ledger.Close()
		return nil, err
	}
	for _, n := range notifiers {
		orchOpts = append(orchOpts, orchestrator.WithNotifier(n))
	}

	logger.Debug("app ready",
		"source", resolver.Mode(),
		"ledger", cfg.Storage.Ledger,
		"reports", cfg.Storage.ReportsDir,
		"notifiers", len(notifiers),
	)

	return &app{
		cfg:    cfg,
		logger: logger,
		ledger: ledger,
		orch:   orchestrator.New(resolver, eng, ledger, cfg.Storage.ReportsDir, orchOpts...),
	}, nil
}

// buildNotifiers creates the post-run notifiers enabled by configuration.
// Webhooks go through the notify-on policy; opening the report and
// publishing it happen after every run.
func buildNotifiers(ctx context.Context, cfg *config.Config, ledger history.Ledger, opts appOptions) ([]notify.Notifier, error) {
	var notifiers []notify.Notifier

	on, err := notify.ParseNotifyOn(cfg.Notify.On)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	manager := notify.NewManager(on)
	if cfg.Notify.SlackWebhook != "" {
		manager.AddNotifier(notify.NewSlackNotifier(cfg.Notify.SlackWebhook,
			notify.WithSlackChannel(cfg.Notify.SlackChannel),
			notify.WithSlackBaseURL(cfg.Notify.PublicURL),
		))
	}
	if cfg.Notify.TeamsWebhook != "" {
		manager.AddNotifier(notify.NewTeamsNotifier(cfg.Notify.TeamsWebhook,
			notify.WithTeamsBaseURL(cfg.Notify.PublicURL),
		))
	}
	if manager.Len() > 0 {
		if on == notify.NotifyRecovery {
			seedLastState(ctx, manager, ledger)
		}
		notifiers = append(notifiers, manager)
	}

	if opts.openBrowser || cfg.Notify.OpenBrowser {
		notifiers = append(notifiers, notify.NewBrowserNotifier())
	}

	if cfg.Publish.Enabled() {
		pub, err := publish.New(cfg.Publish, publish.WithLogger(logger))
		if err != nil {
			return nil, withExitCode(ExitConfigError, fmt.Errorf("report publishing: %w", err))
		}
		if err := pub.EnsureBucket(ctx); err != nil {
			// Uploads will fail and be logged; the runs themselves still work.
			logger.Warn("report bucket unavailable", "bucket", cfg.Publish.Bucket, "error", err)
		}
		notifiers = append(notifiers, pub)
	}

	return notifiers, nil
}

// seedLastState carries the outcome of the newest recorded run into the
// manager so the first passing run after a failure counts as a recovery
func seedLastState(ctx context.Context, manager *notify.Manager, ledger history.Ledger) {
	records, err := ledger.Load(ctx)
	if err != nil {
		logger.Warn("cannot read run history for recovery notices", "error", err)
		return
	}
	if len(records) > 0 {
		manager.SetLastState(records[0].Failed == 0)
	}
}

// Close drains in-flight runs and notifiers, then closes the ledger. The
// ledger stays open when draining times out, since a run may still append.
func (a *app) Close(ctx context.Context) error {
	if err := a.orch.Wait(ctx); err != nil {
		a.logger.Warn("runs still in flight at shutdown, leaving run history open", "error", err)
		return err
	}
	return a.ledger.Close()
}
