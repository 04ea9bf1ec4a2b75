// Package schema validates raw wire records against the embedded CUE schema.
//
// The gate sits at the event log's ingestion boundary: Append runs every
// caller-supplied record through it before the record reaches storage, and
// the verify path re-checks stored records. It is deliberately absent from
// the read path so records written by a newer build (with kinds this build
// does not know) still load; verify is where such records get flagged.
package schema

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed record.cue
var recordCUE string

// RecordError reports a record that failed schema validation.
type RecordError struct {
	// ID is the record's id field when it could be read, "" otherwise.
	ID string

	// Detail is the CUE error rendering, one finding per line.
	Detail string
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("record %s failed schema validation: %s", e.ID, e.Detail)
	}
	return fmt.Sprintf("record failed schema validation: %s", e.Detail)
}

// Gate validates raw JSON records against the wire-record schema.
//
// Thread-safety: a Gate is immutable after construction and safe for
// concurrent use.
type Gate struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewGate compiles the embedded schema. Compilation failure means the
// embedded source is broken, which is a build defect, so callers typically
// treat an error here as fatal.
func NewGate() (*Gate, error) {
	ctx := cuecontext.New()

	v := ctx.CompileString(recordCUE, cue.Filename("record.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}

	schema := v.LookupPath(cue.ParsePath("#Record"))
	if !schema.Exists() {
		return nil, fmt.Errorf("record schema missing #Record definition")
	}

	return &Gate{ctx: ctx, schema: schema}, nil
}

// Check validates raw JSON bytes against the wire-record schema. The id
// argument names the record in errors and may be empty.
func (g *Gate) Check(id string, raw []byte) error {
	expr, err := cuejson.Extract("record.json", raw)
	if err != nil {
		return &RecordError{ID: id, Detail: fmt.Sprintf("not valid JSON: %v", err)}
	}

	val := g.ctx.BuildExpr(expr)
	if err := val.Err(); err != nil {
		return &RecordError{ID: id, Detail: renderCUEError(err)}
	}

	unified := g.schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return &RecordError{ID: id, Detail: renderCUEError(err)}
	}

	return nil
}

// renderCUEError flattens a CUE error list into a single readable line.
func renderCUEError(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}

	detail := ""
	for i, e := range errs {
		if i > 0 {
			detail += "; "
		}
		detail += e.Error()
	}
	return detail
}
