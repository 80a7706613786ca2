package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/trickstertwo/xlog"
	"github.com/trickstertwo/xlog/adapter/zerolog"

	xprom "github.com/trickstertwo/xactor/adapter/prometheus"
	"github.com/trickstertwo/xactor/pipeline"
)

type runFlags struct {
	configPath    string
	duration      time.Duration
	metricsListen string
	logLevel      string
	seed          int64
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "pipeline config file (YAML); defaults apply when omitted")
	cmd.Flags().DurationVarP(&f.duration, "duration", "d", 0, "stop after this long; 0 runs until SIGINT/SIGTERM")
	cmd.Flags().StringVar(&f.metricsListen, "metrics-listen", "", "address for the Prometheus scrape endpoint, e.g. :9100")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "random walk seed; 0 derives one from the clock")
	return cmd
}

func runPipeline(parent context.Context, f runFlags) error {
	level, err := parseLevel(f.logLevel)
	if err != nil {
		return err
	}
	logger := zerolog.Use(zerolog.Config{
		MinLevel:          level,
		Console:           true,
		ConsoleTimeFormat: time.RFC3339,
	}).With(xlog.Str("app", "xactor"))

	cfg := pipeline.Default()
	opts := []pipeline.WireOption{pipeline.WithDataSeed(f.seed)}
	if f.configPath != "" {
		cfg, err = pipeline.Load(f.configPath)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithRiskReloadPath(f.configPath))
	}

	bus, _, err := pipeline.Build(cfg, logger, opts...)
	if err != nil {
		return err
	}

	if f.metricsListen != "" {
		obs := xprom.Use(bus, xprom.Config{})
		mux := http.NewServeMux()
		mux.Handle("/metrics", obs.Handler())
		srv := &http.Server{Addr: f.metricsListen, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn().Err(err).Msg("xactor: metrics server failed")
			}
		}()
		defer srv.Close()
		logger.Info().Str("addr", f.metricsListen).Msg("xactor: metrics endpoint listening")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if f.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.duration)
		defer cancel()
	}

	logger.Info().Msg("xactor: pipeline starting")
	if err := bus.Run(ctx); err != nil {
		return err
	}

	snap := bus.Metrics()
	logger.Info().
		Float64("failures", float64(snap.Failures)).
		Str("last_seq", fmt.Sprintf("%d", snap.LastSeq)).
		Msg("xactor: pipeline stopped")
	return nil
}

func parseLevel(s string) (xlog.Level, error) {
	switch s {
	case "debug":
		return xlog.LevelDebug, nil
	case "info":
		return xlog.LevelInfo, nil
	case "warn":
		return xlog.LevelWarn, nil
	case "error":
		return xlog.LevelError, nil
	default:
		return xlog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
