package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halfday/reckon/internal/derive"
)

// NewDeriveCommand creates the derive command group.
func NewDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive current state by replaying events",
		Long: `Derive current state by replaying the event log.

State is never stored; every derivation replays the relevant events in
total order. The same log always yields the same state.`,
	}
	cmd.AddCommand(newDeriveTaskCommand(rootOpts))
	cmd.AddCommand(newDeriveDayCommand(rootOpts))
	return cmd
}

func newDeriveTaskCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "task <entity-id>",
		Short:         "Derive one task's state",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeriveTask(rootOpts, args[0], cmd)
		},
	}
}

func newDeriveDayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "day <day-key>",
		Short:         "Derive one day's state",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeriveDay(rootOpts, args[0], cmd)
		},
	}
}

func runDeriveTask(opts *RootOptions, entityID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	ctx := cmd.Context()
	log, closeLog, err := openLog(ctx, opts)
	if err != nil {
		return err
	}
	defer closeLog()

	state, err := derive.New(log).DeriveEntity(ctx, entityID)
	if err != nil {
		return fail(formatter, err)
	}

	return formatter.SuccessText(renderTaskState(state), state)
}

func runDeriveDay(opts *RootOptions, dayKey string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	ctx := cmd.Context()
	log, closeLog, err := openLog(ctx, opts)
	if err != nil {
		return err
	}
	defer closeLog()

	state, err := derive.New(log).DeriveDay(ctx, dayKey)
	if err != nil {
		return fail(formatter, err)
	}

	return formatter.SuccessText(renderDayState(state), state)
}

func renderTaskState(s derive.TaskState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task %s (%s)\n", s.ID, s.Lifecycle)
	fmt.Fprintf(&b, "  name:          %s\n", s.Name)
	fmt.Fprintf(&b, "  estimated:     %d min\n", s.EstimatedMinutes)
	fmt.Fprintf(&b, "  actual:        %d min\n", s.ActualMinutes)
	fmt.Fprintf(&b, "  sessions:      %d\n", s.SessionCount)
	fmt.Fprintf(&b, "  interruptions: %d", s.InterruptionCount)
	if s.WhatWorked != "" {
		fmt.Fprintf(&b, "\n  what worked:   %s", s.WhatWorked)
	}
	if s.Impediment != "" {
		fmt.Fprintf(&b, "\n  impediment:    %s", s.Impediment)
	}
	return b.String()
}

func renderDayState(s derive.DayState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Day %s (%s)\n", s.DayKey, s.Lifecycle)
	fmt.Fprintf(&b, "  tasks: %d", len(s.TaskIDs))
	for _, id := range s.TaskIDs {
		fmt.Fprintf(&b, "\n    %s", id)
	}
	return b.String()
}
