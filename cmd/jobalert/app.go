package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bakkerme/jobalert/internal/config"
	"github.com/bakkerme/jobalert/internal/core"
	"github.com/bakkerme/jobalert/internal/dedupe"
	"github.com/bakkerme/jobalert/internal/observability/otelx"
	"github.com/bakkerme/jobalert/internal/runner"
	"github.com/bakkerme/jobalert/internal/runner/factory"
)

// app holds everything a command needs after startup.
type app struct {
	logger   *slog.Logger
	env      config.EnvConfig
	doc      *config.AlertDocument
	store    dedupe.Store
	shutdown func(context.Context) error
}

// loadConfig reads the environment and the alert document. Nothing here
// touches the network.
func loadConfig() (*slog.Logger, config.EnvConfig, *config.AlertDocument, error) {
	env := config.LoadEnv()
	logger := core.NewLogger(os.Stdout, env.LogLevel, env.LogFormat)
	slog.SetDefault(logger)

	path := configPath
	if path == "" {
		path = env.ConfigPath
	}
	doc, found, err := config.LoadDocumentOrDefault(path)
	if err != nil {
		return nil, env, nil, err
	}
	if !found {
		logger.Info("alert document not found, using defaults", "path", path)
	}
	return logger, env, doc, nil
}

func openStore(ctx context.Context, doc *config.AlertDocument, env config.EnvConfig) (dedupe.Store, error) {
	env = doc.ResolveEnv(env)
	return dedupe.Open(ctx, dedupe.Options{
		Type:  string(doc.Store.Type),
		Path:  doc.Store.Path,
		DSN:   env.StoreDSN,
		Table: doc.Store.Table,
	})
}

// newApp validates credentials before any I/O, then opens tracing and the
// seen store.
func newApp(ctx context.Context) (*app, error) {
	logger, env, doc, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := config.ValidateCredentials(doc, env); err != nil {
		return nil, err
	}

	shutdown, err := otelx.Init(ctx, logger, env.OTel)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	store, err := openStore(ctx, doc, env)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, fmt.Errorf("open seen store: %w", err)
	}
	return &app{logger: logger, env: env, doc: doc, store: store, shutdown: shutdown}, nil
}

func (a *app) pipeline() (*core.Pipeline, error) {
	return a.doc.ParseToPipelineWithFactory(factory.NewFromEnvConfig(a.logger, a.env))
}

func (a *app) runner() (*runner.Runner, error) {
	lock, err := dedupe.NewRunLock(a.doc.Store.LockPath)
	if err != nil {
		return nil, err
	}
	return runner.New(a.logger, a.store, lock, runner.OptionsFromDocument(a.doc, a.env.RunTimeout)), nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close seen store", "error", err)
	}
	if err := a.shutdown(context.Background()); err != nil {
		a.logger.Warn("failed to flush traces", "error", err)
	}
}
