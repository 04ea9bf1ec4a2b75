// Package eventlog enforces write-once, append-only semantics on top of the
// storage contract and provides totally ordered retrieval.
//
// # Write-once atop a mutable store
//
// The underlying Store is technically mutable; the log makes records
// logically immutable by construction. Its public surface has no update or
// delete verb, and Append probes for an existing id under a per-partition
// lock before writing, so a duplicate id fails instead of overwriting.
// History correction is always a new compensating event.
//
// # Total order
//
// Every query result is ordered by (timestamp, seq). The seq number comes
// from a monotonic logical clock at append time and only breaks timestamp
// ties; the resulting order is deterministic no matter what physical order
// the store returns records in.
//
// # Read integrity
//
// Each stored record carries a SHA-256 checksum over the event's canonical
// JSON. Reads verify it, so a half-written or corrupted record surfaces as
// an error rather than silently entering a derivation.
package eventlog
