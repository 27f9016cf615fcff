// Package cli implements the cellflow command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/cellflow/pkg/cellflow/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config  string
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the cellflow CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cellflow",
		Short: "cellflow - tiered scheduler and bridged event buses",
		Long: `Run a tiered worker-pool scheduler whose results flow over the
CORE, AUTOMATION and AGENT event buses, joined by a loop-safe bridge.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "settings file (.yaml, .yml or .json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewRulesCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))

	return cmd
}

// loadSettings reads --config, falling back to defaults.
func (o *RootOptions) loadSettings() (config.Settings, error) {
	s, err := config.LoadSettings(o.Config)
	if err != nil {
		return s, WrapExitError(ExitCommandError, "failed to load settings", err)
	}
	if err := s.Validate(); err != nil {
		return s, WrapExitError(ExitCommandError, "invalid settings", err)
	}
	return s, nil
}

// logger writes text logs to stderr, at debug level with --verbose.
func (o *RootOptions) logger() *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
