package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halfday/reckon/internal/derive"
	"github.com/halfday/reckon/internal/integrity"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		snapshotsPath string
		entity        string
		day           string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate cached snapshots against replayed truth",
		Long: `Validate cached state snapshots against state replayed from the log.

The log is the source of truth; any cached snapshot that disagrees with a
fresh derivation is reported as a violation. With --entity or --day only
that subject is checked; otherwise every entity and day in the log is
scanned. Violations exit with code 1.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, snapshotsPath, entity, day, cmd)
		},
	}

	cmd.Flags().StringVar(&snapshotsPath, "snapshots", "", "path to the snapshot export file (required)")
	cmd.Flags().StringVar(&entity, "entity", "", "validate a single task")
	cmd.Flags().StringVar(&day, "day", "", "validate a single day")
	_ = cmd.MarkFlagRequired("snapshots")
	cmd.MarkFlagsMutuallyExclusive("entity", "day")

	return cmd
}

func runValidate(opts *RootOptions, snapshotsPath, entity, day string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	snapshots, err := integrity.LoadSnapshots(snapshotsPath)
	if err != nil {
		if outErr := formatter.Error(ErrCodeBadInput, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "load snapshots", err)
	}

	ctx := cmd.Context()
	log, closeLog, err := openLog(ctx, opts)
	if err != nil {
		return err
	}
	defer closeLog()

	parallelism := 1
	if opts.Config != nil {
		parallelism = opts.Config.ValidationParallelism
	}
	validator := integrity.New(log, derive.New(log), snapshots,
		integrity.WithParallelism(parallelism))

	switch {
	case entity != "":
		cached, err := snapshots.TaskSnapshot(ctx, entity)
		if err != nil {
			return fail(formatter, err)
		}
		result, err := validator.ValidateEntity(ctx, entity, cached)
		if err != nil {
			return fail(formatter, err)
		}
		return reportResult(formatter, result)
	case day != "":
		cached, err := snapshots.DaySnapshot(ctx, day)
		if err != nil {
			return fail(formatter, err)
		}
		result, err := validator.ValidateDay(ctx, day, cached)
		if err != nil {
			return fail(formatter, err)
		}
		return reportResult(formatter, result)
	default:
		report, err := validator.ValidateSystem(ctx)
		if err != nil {
			return fail(formatter, err)
		}
		return reportSystem(formatter, report)
	}
}

func reportResult(formatter *OutputFormatter, result integrity.ValidationResult) error {
	if result.Valid {
		return formatter.SuccessText(fmt.Sprintf("%s: valid", result.SubjectID), result)
	}
	if err := formatter.Error(ErrCodeViolations,
		fmt.Sprintf("%s: %d violation(s)", result.SubjectID, len(result.Violations)),
		result.Violations); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d violation(s) on %s", len(result.Violations), result.SubjectID))
}

func reportSystem(formatter *OutputFormatter, report integrity.SystemIntegrityReport) error {
	if report.Healthy {
		text := fmt.Sprintf("Healthy: %d subject(s) checked, all passed", report.TotalChecked)
		return formatter.SuccessText(text, report)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "checked %d, passed %d, failed %d", report.TotalChecked, report.Passed, report.Failed)
	if report.Partial {
		b.WriteString(" (scan incomplete)")
	}
	for _, v := range report.Violations {
		fmt.Fprintf(&b, "\n  %s %s: expected %s, got %s (%s)", v.SubjectID, v.Field, v.Expected, v.Actual, v.Issue)
	}
	if err := formatter.Error(ErrCodeViolations, b.String(), report); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d subject(s) failed validation", report.Failed))
}
