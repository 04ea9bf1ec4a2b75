package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/halfday/reckon/internal/event"
)

// appendResult is the JSON payload for a successful append.
type appendResult struct {
	Appended int           `json:"appended"`
	Events   []event.Event `json:"events"`
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "append [file]",
		Short: "Append events to the log",
		Long: `Append one or more events to the log.

Reads a JSON event object, or an array of them, from the given file or
from stdin when no file (or "-") is given. Missing ids get a generated
UUIDv7; missing day keys derive from the timestamp. A duplicate id is
rejected and the log is left untouched.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppend(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runAppend(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	var reader io.Reader = cmd.InOrStdin()
	source := "stdin"
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fail(formatter, fmt.Errorf("open input: %w", err))
		}
		defer f.Close()
		reader = f
		source = args[0]
	}

	events, err := decodeEvents(reader)
	if err != nil {
		if outErr := formatter.Error(ErrCodeBadInput, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "decode input", err)
	}
	formatter.VerboseLog("Read %d event(s) from %s", len(events), source)

	ctx := cmd.Context()
	log, closeLog, err := openLog(ctx, opts)
	if err != nil {
		return err
	}
	defer closeLog()

	result := appendResult{}
	for _, ev := range events {
		sealed, err := log.Append(ctx, ev)
		if err != nil {
			return fail(formatter, err)
		}
		result.Appended++
		result.Events = append(result.Events, sealed)
	}

	text := fmt.Sprintf("Appended %d event(s)", result.Appended)
	for _, ev := range result.Events {
		text += fmt.Sprintf("\n  %s  %s  %s", ev.ID, ev.Kind, ev.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return formatter.SuccessText(text, result)
}

// decodeEvents parses a single JSON event object or an array of them.
func decodeEvents(r io.Reader) ([]event.Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	if trimmed[0] == '[' {
		var events []event.Event
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("parse event array: %w", err)
		}
		if len(events) == 0 {
			return nil, fmt.Errorf("empty event array")
		}
		return events, nil
	}

	var ev event.Event
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, fmt.Errorf("parse event: %w", err)
	}
	return []event.Event{ev}, nil
}
