// Command tbetl cleans the OWID and WHO tuberculosis CSV exports, writes the
// cleaned and merged tables, and optionally stores them in a database and a
// workbook with summary charts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"tbetl/internal/config"
	"tbetl/internal/logging"
	"tbetl/internal/metrics"
	"tbetl/internal/metrics/datadog"
	"tbetl/internal/metrics/prompush"

	// register all backends with the storage factory.
	_ "tbetl/internal/storage/all"
)

func main() { os.Exit(run()) }

func run() int {
	var (
		cfgPath    string
		backendFlg string
		validate   bool
	)
	flag.StringVar(&cfgPath, "config", "", "config file (.json, .yaml or .yml); empty uses defaults and TBETL_* env")
	flag.StringVar(&backendFlg, "metrics-backend", "", "override metrics.backend (none, pushgateway, datadog)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	if backendFlg != "" {
		cfg.Metrics.Backend = backendFlg
	}

	issues := config.Lint(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fmt.Fprintf(os.Stderr, "configuration is invalid: %s\n", cfgPath)
		return 1
	}
	if validate {
		fmt.Fprintf(os.Stderr, "configuration is valid: %s\n", cfgPath)
		return 0
	}

	log, closer, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer closer.Close()

	runID := uuid.NewString()
	log = log.With("job", cfg.Job, "run_id", runID)

	setupMetrics(log, cfg)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := newRunner(cfg, log).Run(ctx); err != nil {
		log.Error("run failed", "error", err, "elapsed", time.Since(start).Truncate(time.Millisecond))
		return 1
	}
	log.Info("run complete", "elapsed", time.Since(start).Truncate(time.Millisecond))
	return 0
}

// setupMetrics installs the configured backend. Failures fall back to the
// nop backend; metrics never fail a run.
func setupMetrics(log *slog.Logger, cfg config.Config) {
	switch cfg.Metrics.Backend {
	case "pushgateway":
		url := cfg.Metrics.PushgatewayURL
		b, err := prompush.NewBackend(cfg.Job, url)
		if err != nil {
			log.Warn("metrics: pushgateway backend unavailable; using nop", "error", err)
			return
		}
		metrics.SetBackend(b)
		log.Info("metrics enabled", "backend", "pushgateway", "url", url)

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       cfg.Metrics.StatsdAddr,
			GlobalTags: []string{"job:" + cfg.Job},
		})
		if err != nil {
			log.Warn("metrics: datadog backend unavailable; using nop", "error", err)
			return
		}
		metrics.SetBackend(b)
		log.Info("metrics enabled", "backend", "datadog", "addr", cfg.Metrics.StatsdAddr)

	case "", "none":
		log.Debug("metrics disabled")

	default:
		log.Warn("metrics: unknown backend; metrics disabled", "backend", cfg.Metrics.Backend)
	}
}
