package eventlog

import (
	"errors"
	"fmt"
)

// DuplicateEventError reports an append whose id already exists in the log.
// The append is rejected and the log is unchanged; the stored event keeps
// its original content.
type DuplicateEventError struct {
	ID string
}

// Error implements the error interface.
func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf("event %s already exists: appends are write-once", e.ID)
}

// IsDuplicate reports whether err is (or wraps) a DuplicateEventError.
func IsDuplicate(err error) bool {
	var de *DuplicateEventError
	return errors.As(err, &de)
}

// CorruptRecordError reports a stored record that failed checksum
// verification or could not be decoded. A read never returns a half-written
// or tampered record as a valid event.
type CorruptRecordError struct {
	Key    string
	Reason string
}

// Error implements the error interface.
func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record at %s: %s", e.Key, e.Reason)
}

// IsCorrupt reports whether err is (or wraps) a CorruptRecordError.
func IsCorrupt(err error) bool {
	var ce *CorruptRecordError
	return errors.As(err, &ce)
}
