package eventlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/halfday/reckon/internal/event"
	"github.com/halfday/reckon/internal/schema"
	"github.com/halfday/reckon/internal/storage"
	"github.com/halfday/reckon/pkg/metrics"
)

// Log is the append-only event log. It is the only component with a
// mutation path into storage; everything above it is a pure reader.
//
// Thread-safety: Append serializes per logical partition (an entity's or a
// day's stream); queries run concurrently with appends and with each other.
type Log struct {
	store  storage.Store
	gate   *schema.Gate
	clock  *Clock
	ids    IDGenerator
	logger *slog.Logger

	partitions keyedMutex
}

// Option configures a Log.
type Option func(*Log)

// WithIDGenerator replaces the default UUIDv7 id generator. Tests use
// FixedIDGenerator for deterministic output.
func WithIDGenerator(g IDGenerator) Option {
	return func(l *Log) { l.ids = g }
}

// WithClock replaces the append-sequence clock. The clock must start at or
// above the highest seq already in the store, or ordering breaks.
func WithClock(c *Clock) Option {
	return func(l *Log) { l.clock = c }
}

// WithLogger sets the slog logger (default slog.Default()).
func WithLogger(lg *slog.Logger) Option {
	return func(l *Log) { l.logger = lg }
}

// New opens a log over a store. It compiles the ingestion schema and scans
// existing records to resume the append-sequence clock past the highest
// stored seq.
func New(ctx context.Context, store storage.Store, opts ...Option) (*Log, error) {
	gate, err := schema.NewGate()
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	l := &Log{
		store:  store,
		gate:   gate,
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.clock == nil {
		last, err := l.lastStoredSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("open log: %w", err)
		}
		l.clock = NewClockAt(last)
	}

	return l, nil
}

// lastStoredSeq finds the highest seq currently in the store, 0 when empty.
func (l *Log) lastStoredSeq(ctx context.Context) (int64, error) {
	records, err := l.store.Enumerate(ctx, keyPrefix)
	if err != nil {
		return 0, fmt.Errorf("scan for last seq: %w", err)
	}

	var last int64
	for _, r := range records {
		rec, err := decodeRecord(r.Key, r.Value)
		if err != nil {
			return 0, err
		}
		if rec.Seq > last {
			last = rec.Seq
		}
	}
	return last, nil
}

// LastSeq returns the clock's current position.
func (l *Log) LastSeq() int64 {
	return l.clock.Current()
}

// Append seals ev into the log and returns the sealed copy.
//
// When ev.ID is empty a UUIDv7 is assigned; when ev.DayKey is empty it is
// derived from the timestamp's UTC calendar day. The record is validated
// against the envelope rules and the CUE ingestion schema before the
// existence probe; a duplicate id fails with DuplicateEventError and leaves
// the log untouched. Store I/O errors propagate unchanged.
func (l *Log) Append(ctx context.Context, ev event.Event) (event.Event, error) {
	start := time.Now()

	if ev.ID == "" {
		ev.ID = l.ids.Generate()
	}
	ev.Timestamp = ev.Timestamp.UTC()
	if ev.DayKey == "" && !ev.Timestamp.IsZero() {
		ev.DayKey = event.FormatDayKey(ev.Timestamp)
	}
	ev.Sealed = true

	if err := ev.Validate(); err != nil {
		return event.Event{}, fmt.Errorf("append: %w", err)
	}

	wire, err := ev.MarshalJSON()
	if err != nil {
		return event.Event{}, fmt.Errorf("append: %w", err)
	}
	if err := l.gate.Check(ev.ID, wire); err != nil {
		return event.Event{}, fmt.Errorf("append: %w", err)
	}

	// Serialize the probe-then-write against concurrent appends to the same
	// stream, and independently against any append reusing this id from
	// another stream. Uniqueness is per id, not per stream, so the stream
	// lock alone would let two appends with one id both see "does not
	// exist". Lock order is always stream then id.
	unlockStream := l.partitions.lock(partitionKey(ev))
	defer unlockStream()
	unlockID := l.partitions.lock("id/" + ev.ID)
	defer unlockID()

	key := eventKey(ev.ID)
	exists, err := l.store.Exists(ctx, key)
	if err != nil {
		return event.Event{}, fmt.Errorf("append %s: existence probe: %w", ev.ID, err)
	}
	if exists {
		metrics.RecordDuplicate()
		return event.Event{}, &DuplicateEventError{ID: ev.ID}
	}

	seq := l.clock.Next()
	data, err := encodeRecord(ev, seq)
	if err != nil {
		return event.Event{}, fmt.Errorf("append %s: %w", ev.ID, err)
	}
	if err := l.store.Save(ctx, key, data); err != nil {
		return event.Event{}, fmt.Errorf("append %s: %w", ev.ID, err)
	}

	metrics.RecordAppend(string(ev.Kind))
	metrics.ObserveAppendDuration(time.Since(start))
	l.logger.Debug("event sealed",
		"id", ev.ID,
		"kind", ev.Kind,
		"dayKey", ev.DayKey,
		"entityId", ev.Entity(),
		"seq", seq,
	)

	return ev, nil
}

// Get returns the event with the given id, or nil when absent.
func (l *Log) Get(ctx context.Context, id string) (*event.Event, error) {
	data, err := l.store.Get(ctx, eventKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}

	rec, err := decodeRecord(eventKey(id), data)
	if err != nil {
		return nil, err
	}
	return &rec.Event, nil
}

// All returns every event in (timestamp, seq) order.
func (l *Log) All(ctx context.Context) ([]event.Event, error) {
	return l.query(ctx, func(event.Event) bool { return true })
}

// ForDay returns the events belonging to a calendar day, ordered.
func (l *Log) ForDay(ctx context.Context, dayKey string) ([]event.Event, error) {
	return l.query(ctx, func(ev event.Event) bool { return ev.DayKey == dayKey })
}

// ForEntity returns the events referencing an entity, ordered.
func (l *Log) ForEntity(ctx context.Context, entityID string) ([]event.Event, error) {
	return l.query(ctx, func(ev event.Event) bool { return ev.Entity() == entityID })
}

// OfKind returns the events of one kind, ordered.
func (l *Log) OfKind(ctx context.Context, kind event.Kind) ([]event.Event, error) {
	return l.query(ctx, func(ev event.Event) bool { return ev.Kind == kind })
}

// Between returns the events in the half-open interval [start, end),
// ordered.
func (l *Log) Between(ctx context.Context, start, end time.Time) ([]event.Event, error) {
	return l.query(ctx, func(ev event.Event) bool {
		return !ev.Timestamp.Before(start) && ev.Timestamp.Before(end)
	})
}

// Count returns the total number of sealed events.
func (l *Log) Count(ctx context.Context) (int, error) {
	records, err := l.store.Enumerate(ctx, keyPrefix)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return len(records), nil
}

// EntityIDs returns every entity referenced by the log, in first-seen
// (timestamp, seq) order. This is the entity universe a system scan walks.
func (l *Log) EntityIDs(ctx context.Context) ([]string, error) {
	events, err := l.All(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var ids []string
	for _, ev := range events {
		id := ev.Entity()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// DayKeys returns every day with at least one event, in first-seen order.
func (l *Log) DayKeys(ctx context.Context) ([]string, error) {
	events, err := l.All(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var keys []string
	for _, ev := range events {
		if ev.DayKey == "" || seen[ev.DayKey] {
			continue
		}
		seen[ev.DayKey] = true
		keys = append(keys, ev.DayKey)
	}
	return keys, nil
}

// Records returns every stored record with its seq and checksum, ordered.
// The verify path uses this to re-check schema and checksums; ordinary
// consumers use the event queries.
func (l *Log) Records(ctx context.Context) ([]SealedRecord, error) {
	raw, err := l.store.Enumerate(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}

	records := make([]SealedRecord, 0, len(raw))
	for _, r := range raw {
		rec, err := decodeRecord(r.Key, r.Value)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	sortRecords(records)
	return records, nil
}

// CheckRecord re-validates a stored event against the ingestion schema.
// Used by verify; an unknown-kind record written by a newer build fails
// here, which is exactly the flag verify exists to raise.
func (l *Log) CheckRecord(ev event.Event) error {
	wire, err := ev.MarshalJSON()
	if err != nil {
		return fmt.Errorf("check record %s: %w", ev.ID, err)
	}
	return l.gate.Check(ev.ID, wire)
}

// query loads, filters, and orders events. Snapshot-at-invocation: the
// enumeration sees the store as of this call; a concurrent append may be
// invisible, but never partially visible (checksums reject torn records).
func (l *Log) query(ctx context.Context, keep func(event.Event) bool) ([]event.Event, error) {
	raw, err := l.store.Enumerate(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	var records []SealedRecord
	for _, r := range raw {
		rec, err := decodeRecord(r.Key, r.Value)
		if err != nil {
			return nil, err
		}
		if keep(rec.Event) {
			records = append(records, rec)
		}
	}

	sortRecords(records)

	events := make([]event.Event, len(records))
	for i, rec := range records {
		events[i] = rec.Event
	}
	return events, nil
}

// sortRecords orders by (timestamp, seq). Physical storage order never
// leaks into results.
func sortRecords(records []SealedRecord) {
	sort.Slice(records, func(i, j int) bool {
		ti, tj := records[i].Event.Timestamp, records[j].Event.Timestamp
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return records[i].Seq < records[j].Seq
	})
}

// partitionKey picks the stream an append serializes on: the entity stream
// when the event references one, the day stream otherwise.
func partitionKey(ev event.Event) string {
	if id := ev.Entity(); id != "" {
		return "entity/" + id
	}
	return "day/" + ev.DayKey
}

// keyedMutex provides one mutex per key (streams and event ids share the
// map under distinct prefixes). Entries are never removed; the key space is
// bounded by the number of tasks, days, and events a single user
// accumulates.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
