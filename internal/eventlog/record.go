package eventlog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/halfday/reckon/internal/event"
)

// keyPrefix is the storage namespace for sealed event records.
const keyPrefix = "event/"

// eventKey builds the storage key for an event id.
func eventKey(id string) string {
	return keyPrefix + id
}

// storedRecord is the log-private envelope wrapped around the wire event.
// Seq and Checksum never appear on the public wire format; they exist so
// reads can order deterministically and detect corruption.
type storedRecord struct {
	Seq      int64           `json:"seq"`
	Checksum string          `json:"checksum"`
	Event    json.RawMessage `json:"event"`
}

// SealedRecord is a read-side view of a stored record, exposed for the
// verify path. Ordinary queries return plain events.
type SealedRecord struct {
	Event    event.Event
	Seq      int64
	Checksum string
}

// checksum computes the hex SHA-256 over an event's canonical JSON.
func checksum(ev event.Event) (string, error) {
	canonical, err := event.MarshalCanonical(ev)
	if err != nil {
		return "", fmt.Errorf("checksum event %s: %w", ev.ID, err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// encodeRecord serializes an event into its storage envelope.
func encodeRecord(ev event.Event, seq int64) ([]byte, error) {
	wire, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", ev.ID, err)
	}

	sum, err := checksum(ev)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", ev.ID, err)
	}

	data, err := json.Marshal(storedRecord{
		Seq:      seq,
		Checksum: sum,
		Event:    wire,
	})
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", ev.ID, err)
	}
	return data, nil
}

// decodeRecord parses a storage envelope and verifies its checksum. Any
// decoding or verification failure is a CorruptRecordError; the caller never
// sees a partially valid event.
func decodeRecord(key string, data []byte) (SealedRecord, error) {
	var rec storedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return SealedRecord{}, &CorruptRecordError{Key: key, Reason: fmt.Sprintf("bad envelope: %v", err)}
	}

	var ev event.Event
	if err := json.Unmarshal(rec.Event, &ev); err != nil {
		return SealedRecord{}, &CorruptRecordError{Key: key, Reason: fmt.Sprintf("bad event: %v", err)}
	}

	sum, err := checksum(ev)
	if err != nil {
		return SealedRecord{}, &CorruptRecordError{Key: key, Reason: fmt.Sprintf("recompute checksum: %v", err)}
	}
	if sum != rec.Checksum {
		return SealedRecord{}, &CorruptRecordError{
			Key:    key,
			Reason: fmt.Sprintf("checksum mismatch: stored %s, computed %s", rec.Checksum, sum),
		}
	}

	return SealedRecord{Event: ev, Seq: rec.Seq, Checksum: rec.Checksum}, nil
}
