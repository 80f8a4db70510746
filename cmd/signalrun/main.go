package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sawpanic/signalrun/internal/config"
	applog "github.com/sawpanic/signalrun/internal/log"
)

const (
	appName = "signalrun"
	version = "v0.4.0"
)

// app carries the loaded configuration into every subcommand
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool

	cfg *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Regime-aware intraday signal engine",
		Version: version,
		Long: `signalrun turns one closed bar per symbol into either a trade signal
(entry, stop, R-multiple targets, trailing rules, score and reasons) or an
explicit no-signal reason code.

Input snapshots are YAML files carrying the cycle's market context and one
bar (with precomputed indicators) per symbol. Every option can be set in the
config file or through the upper-case environment variable of the same name.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	a.bindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newEvaluateCmd(a),
		newRegimeCmd(a),
		newConfigCmd(a),
		newHistoryCmd(a),
	)

	return rootCmd
}

func (a *app) bindFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML config file (defaults apply when empty)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level override (debug|info|warn|error)")
	flags.StringVar(&a.logFormat, "log-format", applog.FormatAuto, "Log format (auto|console|json)")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Runtime.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	if err := applog.Setup(level, a.logFormat); err != nil {
		return err
	}
	setColor(a.noColor)

	log.Debug().Str("config", a.configPath).Str("regime_mode", cfg.RegimeMode).Msg("Configuration loaded")
	return nil
}
