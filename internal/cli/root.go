package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/halfday/reckon/internal/config"
	"github.com/halfday/reckon/pkg/metrics"
)

// RootOptions holds global flags and resolved configuration for all
// commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	DBPath     string
	ConfigPath string

	// Config is resolved in PersistentPreRunE; explicit flags override it.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the reckon CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "reckon",
		Short: "reckon - event-sourced accountability ledger",
		Long: "An append-only event log for tracking planned versus actual effort,\n" +
			"with replay-derived state, integrity validation, and reality analytics.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			// Flags the user set beat config-file and env values.
			if cmd.Flags().Changed("db") {
				cfg.DBPath = opts.DBPath
			}
			if cmd.Flags().Changed("format") {
				cfg.OutputFormat = opts.Format
			}
			opts.Config = cfg
			opts.DBPath = cfg.DBPath
			opts.Format = cfg.OutputFormat

			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			setupLogging(cfg.LogLevel, opts.Verbose)
			if cfg.MetricsAddr != "" {
				go serveMetrics(cfg.MetricsAddr)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "path to the event log database (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")

	// Add subcommands
	cmd.AddCommand(NewAppendCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewDeriveCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewAnalyzeCommand(opts))
	cmd.AddCommand(NewPatternsCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))

	return cmd
}

// setupLogging installs the default slog logger at the configured level.
// Diagnostics go to stderr so they never corrupt JSON output on stdout.
func setupLogging(level string, verbose bool) {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

// serveMetrics exposes the Prometheus registry. Best effort: a CLI
// invocation is usually gone before anyone scrapes, but long validation
// scans benefit.
func serveMetrics(addr string) {
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		slog.Warn("metrics listener stopped", "addr", addr, "error", err)
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
