package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halfday/reckon/internal/eventlog"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Success(map[string]string{"result": "success"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Error(ErrCodeDuplicate, "event e1 already exists", nil)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDuplicate, resp.Error.Code)
	assert.Equal(t, "event e1 already exists", resp.Error.Message)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.SuccessText("all good", map[string]int{"n": 1}))
	assert.Equal(t, "all good\n", buf.String())
}

func TestOutputFormatter_VerboseToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	formatter.VerboseLog("checked %d records", 7)
	assert.Empty(t, out.String(), "diagnostics must not corrupt JSON output")
	assert.Contains(t, errOut.String(), "checked 7 records")
}

func TestOutputFormatter_VerboseSuppressed(t *testing.T) {
	out := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: out, Verbose: false}

	formatter.VerboseLog("should not appear")
	assert.Empty(t, out.String())
}

func TestExitError(t *testing.T) {
	inner := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "save event", inner)
	assert.Equal(t, "save event: disk full", err.Error())
	assert.Equal(t, inner, errors.Unwrap(err))
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "violations found")))
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("plain")))
}

func TestClassifyError(t *testing.T) {
	code, exit := classifyError(&eventlog.DuplicateEventError{ID: "e1"})
	assert.Equal(t, ErrCodeDuplicate, code)
	assert.Equal(t, ExitFailure, exit)

	code, exit = classifyError(&eventlog.CorruptRecordError{Key: "event/e1", Reason: "checksum mismatch"})
	assert.Equal(t, ErrCodeCorrupt, code)
	assert.Equal(t, ExitFailure, exit)

	code, exit = classifyError(errors.New("anything else"))
	assert.Equal(t, ErrCodeGeneric, code)
	assert.Equal(t, ExitCommandError, exit)
}
