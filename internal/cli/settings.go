package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewSettingsCommand creates the settings command.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Print the effective settings after defaults and validation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.loadSettings()
			if err != nil {
				return err
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(s, func(w io.Writer) {
				fmt.Fprintf(w, "queue capacity: %d\n", s.Scheduler.QueueCapacity)
				for _, t := range s.Scheduler.Tiers {
					fmt.Fprintf(w, "tier %-6s cadence=%v workers=%d\n", t.Name, t.Cadence, t.Workers)
				}
				fmt.Fprintf(w, "cost thresholds: %v\n", s.Scheduler.CostThresholds)
				fmt.Fprintf(w, "bus history: %d\n", s.Bus.HistorySize)
				journal := s.Journal.Path
				if journal == "" {
					journal = "disabled"
				}
				fmt.Fprintf(w, "journal: %s\n", journal)
				for _, p := range s.Producers {
					fmt.Fprintf(w, "producer %s tier=%s interval=%v\n", p.Name, p.Tier, p.Interval)
				}
			})
		},
	}
}
