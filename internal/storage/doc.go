// Package storage provides the crash-tolerant key-value store the event log
// appends into.
//
// Two adapters implement the Store contract: a SQLite-backed store for
// durable sessions and a mutex-guarded in-memory store for tests and
// ephemeral runs. The event log is the only component that touches this
// interface directly; everything above it reads through the log.
//
// The contract is deliberately small: point get/save/delete/exists plus an
// ordered prefix enumeration. Atomicity and crash-safety of an individual
// Save are the adapter's responsibility.
package storage
