package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/signalrun/internal/config"
	"github.com/sawpanic/signalrun/internal/delivery"
	"github.com/sawpanic/signalrun/internal/engine"
	"github.com/sawpanic/signalrun/internal/metrics"
	"github.com/sawpanic/signalrun/internal/persistence"
	"github.com/sawpanic/signalrun/internal/persistence/postgres"
	"github.com/sawpanic/signalrun/internal/scan"
)

type evaluateOptions struct {
	input       string
	asOf        string
	publish     bool
	showMetrics bool
	jsonOut     bool
	timeout     time.Duration
}

func newEvaluateCmd(a *app) *cobra.Command {
	opts := &evaluateOptions{}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate one scan cycle from a snapshot file",
		Long: `Runs the engine over every symbol in the snapshot under its shared market
context and prints one row per symbol: the emitted signal or the no-signal
reason. With --publish, emitted signals are deduplicated, stored and notified.`,
		Example: `  signalrun evaluate --input cycle.yaml
  REDIS_ADDR=localhost:6379 PG_DSN=postgres://... signalrun evaluate -i cycle.yaml --publish --metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd.Context(), a.cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Snapshot YAML file (required)")
	cmd.Flags().StringVar(&opts.asOf, "as-of", "", "Override the snapshot time (RFC3339)")
	cmd.Flags().BoolVar(&opts.publish, "publish", false, "Dedup, store and notify emitted signals")
	cmd.Flags().BoolVar(&opts.showMetrics, "metrics", false, "Print the cycle metrics snapshot")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the cycle as JSON instead of a table")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Overall deadline")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runEvaluate(parent context.Context, cfg *config.Config, opts *evaluateOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := ossignal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	batch, err := scan.LoadBatch(opts.input)
	if err != nil {
		return err
	}
	asOf := batch.AsOf
	if opts.asOf != "" {
		asOf, err = time.Parse(time.RFC3339, opts.asOf)
		if err != nil {
			return fmt.Errorf("invalid --as-of: %w", err)
		}
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	promReg := prometheus.NewRegistry()
	m := metrics.NewRegistry(promReg)

	eng := engine.New(cfg, engine.WithLogger(log.With().Str("component", "engine").Str("input", opts.input).Logger()))
	scanner := scan.NewScanner(eng, scan.WithMetrics(m))

	cycle, err := scanner.Run(ctx, batch.Context, batch.Symbols, asOf)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cycle); err != nil {
			return fmt.Errorf("failed to encode cycle: %w", err)
		}
	} else {
		renderCycle(os.Stdout, cycle, eng)
	}

	if opts.publish {
		if err := publishCycle(ctx, cfg, m, cycle); err != nil {
			return err
		}
	}

	if opts.showMetrics {
		samples, err := metrics.Snapshot(promReg)
		if err != nil {
			return err
		}
		renderMetrics(os.Stdout, samples)
	}
	return nil
}

func publishCycle(ctx context.Context, cfg *config.Config, m *metrics.Registry, cycle *scan.Cycle) error {
	signals := cycle.Signals()
	if len(signals) == 0 {
		log.Info().Str("cycle", cycle.ID).Msg("No signals to publish")
		return nil
	}

	dedup, closeDedup, err := openDeduper(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDedup()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	timer := m.StartStepTimer("publish")
	pub := delivery.NewPublisher(cfg, dedup, store, delivery.NewLogNotifier(), delivery.WithMetrics(m))
	reports, err := pub.PublishAll(ctx, signals)
	if err != nil {
		timer.Stop("error")
		return fmt.Errorf("publish aborted: %w", err)
	}
	timer.Stop("success")

	renderReports(os.Stdout, reports)
	return nil
}

// openDeduper uses Redis when REDIS_ADDR is set and an in-process map otherwise
func openDeduper(ctx context.Context, cfg *config.Config) (delivery.Deduper, func(), error) {
	if cfg.Runtime.RedisAddr == "" {
		return delivery.NewMemoryDeduper(), func() {}, nil
	}
	rdb, err := delivery.DialRedis(ctx, cfg.Runtime.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("addr", cfg.Runtime.RedisAddr).Msg("Using redis dedup")
	return delivery.NewRedisDeduper(rdb), func() { rdb.Close() }, nil
}

// openStore uses Postgres when PG_DSN is set and an in-memory store otherwise
func openStore(ctx context.Context, cfg *config.Config) (persistence.SignalStore, func(), error) {
	if cfg.Runtime.PostgresDSN == "" {
		return persistence.NewMemoryStore(), func() {}, nil
	}
	mgr, err := postgres.Open(ctx, postgres.DefaultConfig(cfg.Runtime.PostgresDSN, cfg.Runtime.StoreTimeout))
	if err != nil {
		return nil, nil, err
	}
	if err := mgr.Migrate(ctx); err != nil {
		mgr.Close()
		return nil, nil, err
	}
	return mgr.Store(), func() { mgr.Close() }, nil
}
