package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halfday/reckon/internal/analytics"
	"github.com/halfday/reckon/internal/eventlog"
)

// NewPatternsCommand creates the patterns command group.
func NewPatternsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Detect recurring behavior across the whole log",
		Long: `Detect recurring behavior patterns across every task and day in the
log: systematic underestimation, abandonment habits, and session
fragmentation.`,
	}
	cmd.AddCommand(newPatternsUnderestimationCommand(rootOpts))
	cmd.AddCommand(newPatternsAbandonmentCommand(rootOpts))
	cmd.AddCommand(newPatternsFragmentationCommand(rootOpts))
	return cmd
}

func newPatternsUnderestimationCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "underestimation",
		Short:         "Measure estimate bias across completed tasks",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPattern(rootOpts, cmd, func(engine *analytics.Engine, log *eventlog.Log) (any, string, error) {
				ids, err := log.EntityIDs(cmd.Context())
				if err != nil {
					return nil, "", err
				}
				p, err := engine.DetectUnderestimation(cmd.Context(), ids)
				if err != nil {
					return nil, "", err
				}
				return p, renderUnderestimation(p), nil
			})
		},
	}
}

func newPatternsAbandonmentCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "abandonment",
		Short:         "Measure how often and why tasks get dropped",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPattern(rootOpts, cmd, func(engine *analytics.Engine, log *eventlog.Log) (any, string, error) {
				days, err := log.DayKeys(cmd.Context())
				if err != nil {
					return nil, "", err
				}
				p, err := engine.DetectAbandonment(cmd.Context(), days)
				if err != nil {
					return nil, "", err
				}
				return p, renderAbandonment(p), nil
			})
		},
	}
}

func newPatternsFragmentationCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "fragmentation",
		Short:         "Measure session fragmentation of completed tasks",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPattern(rootOpts, cmd, func(engine *analytics.Engine, log *eventlog.Log) (any, string, error) {
				ids, err := log.EntityIDs(cmd.Context())
				if err != nil {
					return nil, "", err
				}
				p, err := engine.DetectSessionFragmentation(cmd.Context(), ids)
				if err != nil {
					return nil, "", err
				}
				return p, renderFragmentation(p), nil
			})
		},
	}
}

func runPattern(opts *RootOptions, cmd *cobra.Command, query func(*analytics.Engine, *eventlog.Log) (any, string, error)) error {
	formatter := newFormatter(opts, cmd)

	log, closeLog, err := openLog(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer closeLog()

	data, text, err := query(analytics.New(log), log)
	if err != nil {
		return fail(formatter, err)
	}
	return formatter.SuccessText(text, data)
}

func renderUnderestimation(p analytics.UnderestimationPattern) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d completed task(s): %d underestimated, %d overestimated\n",
		p.TaskCount, p.Underestimated, p.Overestimated)
	fmt.Fprintf(&b, "  average variance: %+.1f min", p.AverageVarianceMinutes)
	for _, o := range p.WorstOffenders {
		fmt.Fprintf(&b, "\n  %s (%s): %+d min", o.EntityID, o.Name, o.VarianceMinutes)
	}
	return b.String()
}

func renderAbandonment(p analytics.AbandonmentPattern) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d task(s) abandoned (%.0f%%)", p.Abandoned, p.TaskCount, p.Rate)
	if p.MostCommon != "" {
		fmt.Fprintf(&b, "\n  most common reason: %s", p.MostCommon)
	}
	reasons := make([]string, 0, len(p.ReasonCounts))
	for reason := range p.ReasonCounts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(&b, "\n  %s: %d", reason, p.ReasonCounts[reason])
	}
	return b.String()
}

func renderFragmentation(p analytics.FragmentationPattern) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d completed task(s): %d single-session (%.0f%%), %d fragmented",
		p.CompletedTasks, p.SingleSession, p.SingleRate, p.MultiSession)
	fmt.Fprintf(&b, "\n  mean sessions per task: %.1f", p.MeanSessions)
	return b.String()
}
