package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sawpanic/signalrun/internal/delivery"
	"github.com/sawpanic/signalrun/internal/persistence"
	"github.com/sawpanic/signalrun/internal/persistence/postgres"
	"github.com/sawpanic/signalrun/internal/regime"
)

func newRegimeCmd(a *app) *cobra.Command {
	var rvolBTC, breadth float64

	cmd := &cobra.Command{
		Use:   "regime",
		Short: "Classify the market regime and show its thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := regime.Detect(a.cfg, rvolBTC, breadth)
			router := regime.NewThresholdRouter(a.cfg)

			fmt.Fprintf(os.Stdout, "%s (mode %s, rvol_btc %.2f, breadth %.2f)\n",
				regimeLabel(r), a.cfg.RegimeMode, rvolBTC, breadth)
			fmt.Fprintln(os.Stdout, router.Describe(r))
			return nil
		},
	}

	cmd.Flags().Float64Var(&rvolBTC, "rvol-btc", 1.0, "BTC relative volume")
	cmd.Flags().Float64Var(&breadth, "breadth", 0.6, "Fraction of the universe in uptrend (0-1)")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.cfg.YAML()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load already validated; reaching here means the snapshot is usable
			fmt.Fprintln(os.Stdout, successText("configuration valid"))
			return nil
		},
	})

	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		date    string
		auditID string
		limit   int
		health  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored signals for a UTC day (requires PG_DSN)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Runtime.PostgresDSN == "" {
				return errors.New("history requires pg_dsn (PG_DSN)")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			mgr, err := postgres.Open(ctx, postgres.DefaultConfig(a.cfg.Runtime.PostgresDSN, a.cfg.Runtime.StoreTimeout))
			if err != nil {
				return err
			}
			defer mgr.Close()

			if health {
				hc := mgr.Health(ctx)
				renderHealth(os.Stdout, hc)
				if !hc.Healthy {
					return errors.New("signal store is unhealthy")
				}
				return nil
			}
			store := mgr.Store()

			if auditID != "" {
				s, err := store.GetByAuditID(ctx, auditID)
				if errors.Is(err, persistence.ErrNotFound) {
					return fmt.Errorf("no signal with audit id %s", auditID)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, delivery.RenderCard(s))
				return nil
			}

			day := time.Now().UTC()
			if date != "" {
				day, err = time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
			}
			tr := persistence.Day(day)

			signals, err := store.List(ctx, tr, limit)
			if err != nil {
				return err
			}
			counts, err := store.CountBySetup(ctx, tr)
			if err != nil {
				return err
			}
			renderHistory(os.Stdout, tr, signals, counts)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "UTC day (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&auditID, "id", "", "Show a single signal by audit id")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum rows")
	cmd.Flags().BoolVar(&health, "health", false, "Check store connectivity and pool status instead")
	return cmd
}
