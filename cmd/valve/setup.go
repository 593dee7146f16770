package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"valve-hq/valve/pkg/cli"
	"valve-hq/valve/pkg/config"
	"valve-hq/valve/pkg/secrets"
	"valve-hq/valve/pkg/source"
	"valve-hq/valve/pkg/store"
	"valve-hq/valve/pkg/telemetry/health"
	"valve-hq/valve/pkg/telemetry/logging"
	"valve-hq/valve/pkg/telemetry/metrics"
	"valve-hq/valve/pkg/telemetry/tracing"
	"valve-hq/valve/pkg/valve"
)

// loadConfig initializes the global configuration, applies override to
// it and validates the result.
func loadConfig(override func(cfg *config.Config)) (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError(cfgFile, err.Error())
	}
	// Overrides apply to a copy so repeated commands start from the file.
	loaded := *config.MustGetConfig()
	cfg := &loaded

	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if logFormat != "" {
		cfg.Telemetry.Logging.Format = logFormat
	}
	if override != nil {
		override(cfg)
	}

	if err := config.Validate(cfg); err != nil {
		return nil, cli.NewConfigError("flags", err.Error())
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc := cfg.Telemetry.Logging
	logger, err := logging.New(logging.Config{
		Level:        lc.Level,
		Format:       lc.Format,
		AddSource:    lc.AddSource,
		RedactValues: lc.RedactValues,
		Writer:       os.Stderr,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

// openStore opens the run history when it is enabled, or returns nil.
func openStore(cfg *config.Config, logger *logging.Logger) (*store.Store, error) {
	if !cfg.Store.Enabled {
		return nil, nil
	}
	st, err := store.Open(&cfg.Store, logger.Slog())
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return st, nil
}

// openSource returns the Git table source when one is configured, or nil.
// Secret references in its credentials are resolved first.
func openSource(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*source.Repository, error) {
	if !cfg.Source.Git.Enabled() {
		return nil, nil
	}
	gc := cfg.Source.Git
	err := secrets.FromConfig(&cfg.Secrets).ResolveAll(ctx, &gc.Auth.Token, &gc.Auth.SSHKeyPassphrase)
	if err != nil {
		return nil, cli.NewConfigError("source.git.auth", err.Error())
	}
	repo, err := source.NewRepository(&gc, logger.Slog())
	if err != nil {
		return nil, cli.NewConfigError("source.git", err.Error())
	}
	return repo, nil
}

// requireInputs fails when there is nothing to validate.
func requireInputs(cfg *config.Config) error {
	if len(cfg.Validation.Inputs) == 0 && !cfg.Source.Git.Enabled() {
		return cli.NewConfigError("validation.inputs", "no input paths given")
	}
	return nil
}

// newCollector returns a metrics collector when metrics are enabled.
func newCollector(cfg *config.Config) *metrics.Collector {
	if !cfg.Telemetry.Metrics.Enabled {
		return nil
	}
	return metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
}

// newTracer returns the configured tracer, a noop one when tracing is
// disabled. Callers flush it with shutdownTracer.
func newTracer(cfg *config.Config) (*tracing.Tracer, error) {
	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}
	return tracer, nil
}

func shutdownTracer(tracer *tracing.Tracer, logger *logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracer.Shutdown(ctx); err != nil {
		logger.Warn("failed to flush traces", "error", err)
	}
}

// newHealth returns the readiness checker and the run tracker feeding it
// when health endpoints are enabled, or nils.
func newHealth(cfg *config.Config, st *store.Store) (*health.Checker, *health.RunTracker) {
	hc := cfg.Telemetry.Health
	if !hc.Enabled {
		return nil, nil
	}
	checker := health.New(0)
	tracker := health.NewRunTracker()
	checker.RegisterCheck("last_run", tracker.Check(hc.MaxRunAge))
	if st != nil {
		checker.RegisterCheck("store", st.Ping)
	}
	return checker, tracker
}

// observers combines the enabled observers of a run.
func observers(collector *metrics.Collector, tracker *health.RunTracker) valve.Observer {
	var obs valve.Observers
	if collector != nil {
		obs = append(obs, collector)
	}
	if tracker != nil {
		obs = append(obs, tracker)
	}
	if len(obs) == 0 {
		return nil
	}
	return obs
}

// serveTelemetry exposes metrics and health probes on the configured
// listen address until ctx is cancelled. It does nothing without an
// address or with nothing to serve.
func serveTelemetry(ctx context.Context, cfg *config.Config, collector *metrics.Collector, checker *health.Checker, logger *logging.Logger) {
	addr := cfg.Telemetry.Metrics.ListenAddress
	if addr == "" || (collector == nil && checker == nil) {
		return
	}

	mux := http.NewServeMux()
	if collector != nil {
		collector.Register(mux)
	}
	if checker != nil {
		health.Register(mux, &cfg.Telemetry.Health, checker, health.VersionInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		})
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving telemetry", "address", addr, "metrics", collector != nil, "health", checker != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("telemetry server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
