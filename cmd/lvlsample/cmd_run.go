// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvlsample/config"
	"github.com/katalvlaran/lvlsample/executor"
	"github.com/katalvlaran/lvlsample/logging"
	"github.com/katalvlaran/lvlsample/metrics"
)

type runFlags struct {
	config      string
	logLevel    string
	logFormat   string
	metricsAddr string
	workers     int
	timeout     time.Duration
}

func newRunCmd() *cobra.Command {
	var fl runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a sampling study and report the surrogate",
		Long: `Run loads a study (YAML or TOML), refines it against the configured
in-process model and prints the resulting surrogate statistics.

Interrupting the run (Ctrl-C) stops the sampler, waits for the model runs in
flight and still reports the partial surrogate.

Examples:
  lvlsample run -c ishigami.yaml
  lvlsample run -c tree.yaml --metrics-addr localhost:9090 --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStudy(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), fl)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&fl.config, "config", "c", "", "Study file (.yaml, .yml or .toml)")
	f.StringVar(&fl.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from the study)")
	f.StringVar(&fl.logFormat, "log-format", "", "Log format: text or json (default from the study)")
	f.StringVar(&fl.metricsAddr, "metrics-addr", "", "Serve Prometheus /metrics on this address")
	f.IntVar(&fl.workers, "workers", 0, "Concurrent model runs (default from the study)")
	f.DurationVar(&fl.timeout, "timeout", 0, "Stop the study after this long (0 = no limit)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runStudy(ctx context.Context, out, errOut io.Writer, fl runFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	study, err := config.Load(fl.config)
	if err != nil {
		return err
	}
	if fl.logLevel != "" {
		study.Logging.Level = fl.logLevel
	}
	if fl.logFormat != "" {
		study.Logging.Format = fl.logFormat
	}
	if fl.metricsAddr != "" {
		study.Metrics.Addr = fl.metricsAddr
	}
	if fl.workers > 0 {
		study.Executor.Workers = fl.workers
	}

	level, err := logging.ParseLevel(study.Logging.Level)
	if err != nil {
		return err
	}
	log := logging.New(errOut, level, study.Logging.Format)
	slog.SetDefault(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	rec, err := metrics.New(reg)
	if err != nil {
		return err
	}
	if study.Metrics.Addr != "" {
		stopServer := serveMetrics(study.Metrics.Addr, reg, log)
		defer stopServer()
	}

	strategy, err := study.Strategy(log, rec)
	if err != nil {
		return err
	}
	model, err := study.BuildModel()
	if err != nil {
		return err
	}
	d := executor.NewLocalDispatcher(model,
		executor.WithWorkers(study.Executor.Workers),
		executor.WithDispatcherLogger(log),
		executor.WithDispatcherMetrics(rec))
	defer func() { _ = d.Close() }()

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if fl.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, fl.timeout)
		defer cancel()
	}

	log.Info("study started", "config", fl.config, "sampler", study.Sampler, "model", study.Model.Name,
		"workers", study.Executor.Workers)
	err = executor.NewRunner(strategy, d, executor.WithRunnerLogger(log)).Run(runCtx)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Warn("study interrupted, reporting the partial result", "err", err)
	case err != nil:
		return err
	}

	return report(context.Background(), out, study, strategy, model)
}

// serveMetrics exposes reg on addr until the returned function is called.
func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
	log.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("metrics server shutdown", "err", fmt.Sprint(err))
		}
	}
}
