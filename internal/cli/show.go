package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halfday/reckon/internal/event"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show <event-id>",
		Short:         "Show a single event by id",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runShow(opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	ctx := cmd.Context()
	log, closeLog, err := openLog(ctx, opts)
	if err != nil {
		return err
	}
	defer closeLog()

	ev, err := log.Get(ctx, id)
	if err != nil {
		return fail(formatter, err)
	}
	if ev == nil {
		if outErr := formatter.Error(ErrCodeNotFound, fmt.Sprintf("event %s not found", id), nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("event %s not found", id))
	}

	return formatter.SuccessText(renderEvent(*ev), ev)
}

// renderEvent renders one event as indented text.
func renderEvent(ev event.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event %s\n", ev.ID)
	fmt.Fprintf(&b, "  kind:      %s\n", ev.Kind)
	fmt.Fprintf(&b, "  timestamp: %s\n", ev.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "  day:       %s", ev.DayKey)
	if id := ev.Entity(); id != "" {
		fmt.Fprintf(&b, "\n  entity:    %s", id)
	}
	return b.String()
}
