package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halfday/reckon/internal/analytics"
)

// NewAnalyzeCommand creates the analyze command group.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Reconcile estimated against actual effort",
		Long: `Reconcile what was planned against what actually happened.

Analytics read the event log directly; they never consult derived or
cached state.`,
	}
	cmd.AddCommand(newAnalyzeTaskCommand(rootOpts))
	cmd.AddCommand(newAnalyzeDayCommand(rootOpts))
	cmd.AddCommand(newAnalyzeTimeCommand(rootOpts))
	return cmd
}

func newAnalyzeTaskCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "task <entity-id>",
		Short:         "Analyze one task's estimate accuracy",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(rootOpts, cmd, func(engine *analytics.Engine) (any, string, error) {
				a, err := engine.AnalyzeEntity(cmd.Context(), args[0])
				if err != nil {
					return nil, "", err
				}
				return a, renderTaskAnalysis(a), nil
			})
		},
	}
}

func newAnalyzeDayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "day <day-key>",
		Short:         "Analyze one day's tasks",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(rootOpts, cmd, func(engine *analytics.Engine) (any, string, error) {
				a, err := engine.AnalyzeDay(cmd.Context(), args[0])
				if err != nil {
					return nil, "", err
				}
				return a, renderDayAnalysis(a), nil
			})
		},
	}
}

func newAnalyzeTimeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "time <entity-id>",
		Short: "Measure a task's committed wall-clock time",
		Long: `Measure the wall-clock span a task occupied, from first session start
to its terminal event. Interruptions do not pause the measured clock, so
this is committed time, not focused effort.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(rootOpts, cmd, func(engine *analytics.Engine) (any, string, error) {
				a, err := engine.AnalyzeTime(cmd.Context(), args[0])
				if err != nil {
					return nil, "", err
				}
				return a, renderTimeAnalysis(a), nil
			})
		},
	}
}

// runAnalyze handles the shared open-query-render flow of analyze
// subcommands.
func runAnalyze(opts *RootOptions, cmd *cobra.Command, query func(*analytics.Engine) (any, string, error)) error {
	formatter := newFormatter(opts, cmd)

	log, closeLog, err := openLog(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer closeLog()

	data, text, err := query(analytics.New(log))
	if err != nil {
		return fail(formatter, err)
	}
	return formatter.SuccessText(text, data)
}

func renderTaskAnalysis(a analytics.TaskAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task %s: %s\n", a.EntityID, a.Name)
	fmt.Fprintf(&b, "  estimated: %d min, actual: %d min", a.EstimatedMinutes, a.ActualMinutes)
	if a.Completed {
		fmt.Fprintf(&b, " (variance %+d min, ratio %.2f)", a.VarianceMinutes, a.AccuracyRatio)
	}
	fmt.Fprintf(&b, "\n  sessions: %d, interruptions: %d", a.SessionCount, a.InterruptionCount)
	switch {
	case a.Completed:
		b.WriteString("\n  completed")
	case a.Abandoned:
		fmt.Fprintf(&b, "\n  abandoned: %s", strings.Join(a.AbandonReasons, ", "))
	default:
		b.WriteString("\n  in progress")
	}
	return b.String()
}

func renderDayAnalysis(a analytics.DayAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Day %s: %d task(s), %d completed (%.0f%%)\n", a.DayKey, a.TaskCount, a.Completed, a.CompletionRate)
	fmt.Fprintf(&b, "  estimated: %d min, actual: %d min (%+.0f%% variance)",
		a.TotalEstimatedMinutes, a.TotalActualMinutes, a.VariancePercent)
	if a.Sealed {
		b.WriteString("\n  sealed")
	}
	return b.String()
}

func renderTimeAnalysis(a analytics.TimeAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task %s: %d committed minute(s)", a.EntityID, a.CommittedMinutes)
	fmt.Fprintf(&b, "\n  interruptions: %d", a.InterruptionCount)
	if !a.Completed {
		b.WriteString("\n  still open")
	}
	return b.String()
}
