package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/cellflow/pkg/cellflow"
	"github.com/randalmurphal/cellflow/pkg/cellflow/observability"
	"github.com/randalmurphal/cellflow/pkg/cellflow/scheduler"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Cells    int
	Duration time.Duration
	Work     time.Duration
	Journal  string
	Metrics  bool
}

// RunReport is what the run command prints when it finishes.
type RunReport struct {
	Submitted int               `json:"submitted"`
	Rejected  int               `json:"rejected"`
	Stats     cellflow.Stats    `json:"stats"`
	Telemetry *TelemetrySummary `json:"telemetry,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a kernel with a demo orchestrator and submit cells",
		Long: `Start a kernel (scheduler, buses, bridge, journal) driven by a demo
orchestrator, submit a batch of cells spread across the tiers, run for the
given duration (or until interrupted) and print the resulting stats.

Example:
  cellflow run --cells 200 --duration 2s
  cellflow run --config cellflow.yaml --journal ./journal.db --metrics --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKernel(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Cells, "cells", "n", 20, "number of demo cells to submit")
	cmd.Flags().DurationVarP(&opts.Duration, "duration", "d", 2*time.Second, "how long to run (0 runs until interrupted)")
	cmd.Flags().DurationVar(&opts.Work, "work", 2*time.Millisecond, "simulated orchestrator latency per cell")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal store: ring, :memory: or a SQLite file (overrides settings)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "collect OpenTelemetry metrics and spans and include them in the report")

	return cmd
}

func runKernel(cmd *cobra.Command, opts *RunOptions) error {
	settings, err := opts.loadSettings()
	if err != nil {
		return err
	}
	if opts.Journal != "" {
		settings.Journal.Path = opts.Journal
	}
	logger := opts.logger()

	kopts := []cellflow.Option{
		cellflow.WithLogger(logger),
		cellflow.WithAnnouncements(),
	}
	var tel *telemetry
	if opts.Metrics {
		tel = setupTelemetry()
		defer tel.shutdown(context.Background())
		kopts = append(kopts,
			cellflow.WithMetrics(observability.NewMetricsRecorder()),
			cellflow.WithSpans(observability.NewSpanManager()),
		)
	}

	k, err := cellflow.NewKernel(settings, &demoOrchestrator{logger: logger, work: opts.Work}, kopts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build kernel", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := k.Start(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to start kernel", err)
	}

	report := RunReport{}
	for i := 0; i < opts.Cells; i++ {
		ok, err := k.Submit(fmt.Sprintf("cell-%d", i),
			scheduler.WithCostHint(demoCosts[i%len(demoCosts)]),
			scheduler.WithOrigin("cli"),
		)
		if err != nil {
			_ = k.Stop(context.Background())
			return WrapExitError(ExitFailure, "submit failed", err)
		}
		if ok {
			report.Submitted++
		} else {
			report.Rejected++
		}
	}

	if opts.Duration > 0 {
		select {
		case <-time.After(opts.Duration):
		case <-ctx.Done():
		}
	} else {
		<-ctx.Done()
	}

	// Snapshot before Stop closes the journal.
	report.Stats = k.Stats()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := k.Stop(stopCtx); err != nil {
		logger.Warn("kernel stop incomplete", "error", err)
	}

	if tel != nil {
		summary, err := tel.summary(stopCtx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to collect telemetry", err)
		}
		report.Telemetry = &summary
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(report, func(w io.Writer) { writeReport(w, report) })
}

func writeReport(w io.Writer, r RunReport) {
	fmt.Fprintf(w, "submitted %d cells (%d rejected)\n\n", r.Submitted, r.Rejected)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIER\tWORKERS\tDEPTH\tPROCESSED\tFAILED\tDROPPED\tINTERRUPTS\tP95\tHEALTH")
	for _, t := range r.Stats.Scheduler.Tiers {
		fmt.Fprintf(tw, "%s\t%d\t%d/%d\t%d\t%d\t%d\t%d\t%v\t%s\n",
			t.Tier, t.Workers, t.Depth, t.Capacity, t.Processed, t.Failed, t.Dropped,
			t.Interrupts, t.Timer.P95, t.Timer.Health)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUS\tEMITTED\tERRORS\tHISTORY")
	for _, b := range r.Stats.Buses {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", b.ID, b.Emitted, b.Errors, b.HistorySize)
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\nbridge: forwarded=%d loops_prevented=%d\n",
		r.Stats.Bridge.Forwarded, r.Stats.Bridge.LoopsPrevented)
	if r.Stats.Journal != nil {
		fmt.Fprintf(w, "journal: written=%d failed=%d\n", r.Stats.Journal.Written, r.Stats.Journal.Failed)
	}

	if r.Telemetry != nil {
		fmt.Fprintln(w, "\ncounters:")
		for _, name := range sortedKeys(r.Telemetry.Counters) {
			fmt.Fprintf(w, "  %s = %d\n", name, r.Telemetry.Counters[name])
		}
		fmt.Fprintln(w, "spans:")
		for _, name := range sortedKeys(r.Telemetry.Spans) {
			fmt.Fprintf(w, "  %s = %d\n", name, r.Telemetry.Spans[name])
		}
	}
}
