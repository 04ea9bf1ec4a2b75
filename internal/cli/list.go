package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/halfday/reckon/internal/event"
)

// listResult is the JSON payload for a list invocation.
type listResult struct {
	Count  int           `json:"count"`
	Events []event.Event `json:"events"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		day    string
		entity string
		kind   string
		from   string
		to     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events in replay order",
		Long: `List events in their total replay order (timestamp, then append
sequence for ties).

Filters narrow the listing: --day to one calendar day, --entity to one
task's stream, --kind to one event kind, --from/--to to a half-open
RFC 3339 time range [from, to).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, listFilters{day: day, entity: entity, kind: kind, from: from, to: to}, cmd)
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "only events of one day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&entity, "entity", "", "only events of one task")
	cmd.Flags().StringVar(&kind, "kind", "", "only events of one kind")
	cmd.Flags().StringVar(&from, "from", "", "range start, inclusive (RFC 3339)")
	cmd.Flags().StringVar(&to, "to", "", "range end, exclusive (RFC 3339)")

	return cmd
}

type listFilters struct {
	day    string
	entity string
	kind   string
	from   string
	to     string
}

func runList(opts *RootOptions, filters listFilters, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	ctx := cmd.Context()
	log, closeLog, err := openLog(ctx, opts)
	if err != nil {
		return err
	}
	defer closeLog()

	var events []event.Event
	switch {
	case filters.from != "" || filters.to != "":
		start, end, err := parseRange(filters.from, filters.to)
		if err != nil {
			if outErr := formatter.Error(ErrCodeBadInput, err.Error(), nil); outErr != nil {
				return outErr
			}
			return WrapExitError(ExitCommandError, "parse time range", err)
		}
		events, err = log.Between(ctx, start, end)
		if err != nil {
			return fail(formatter, err)
		}
	case filters.day != "":
		events, err = log.ForDay(ctx, filters.day)
		if err != nil {
			return fail(formatter, err)
		}
	case filters.entity != "":
		events, err = log.ForEntity(ctx, filters.entity)
		if err != nil {
			return fail(formatter, err)
		}
	default:
		events, err = log.All(ctx)
		if err != nil {
			return fail(formatter, err)
		}
	}

	// Secondary filters compose with whichever primary scan ran.
	if filters.kind != "" {
		events = filterEvents(events, func(ev event.Event) bool { return ev.Kind == event.Kind(filters.kind) })
	}
	if filters.entity != "" && filters.day != "" {
		events = filterEvents(events, func(ev event.Event) bool { return ev.Entity() == filters.entity })
	}

	return formatter.SuccessText(renderEventList(events), listResult{Count: len(events), Events: events})
}

// parseRange parses the --from/--to pair. An absent bound is open: from
// defaults to the zero time, to defaults to far future.
func parseRange(from, to string) (time.Time, time.Time, error) {
	start := time.Time{}
	end := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad --from %q: %w", from, err)
		}
		start = t
	}
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad --to %q: %w", to, err)
		}
		end = t
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("empty range: --to %s is not after --from %s", to, from)
	}
	return start, end, nil
}

func filterEvents(events []event.Event, keep func(event.Event) bool) []event.Event {
	out := events[:0]
	for _, ev := range events {
		if keep(ev) {
			out = append(out, ev)
		}
	}
	return out
}

func renderEventList(events []event.Event) string {
	if len(events) == 0 {
		return "No events"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d event(s)", len(events))
	for _, ev := range events {
		entity := ev.Entity()
		if entity == "" {
			entity = "-"
		}
		fmt.Fprintf(&b, "\n  %s  %-20s  %-12s  %s",
			ev.Timestamp.Format("2006-01-02 15:04:05"), ev.Kind, entity, ev.ID)
	}
	return b.String()
}
