// Package harness runs YAML-driven end-to-end scenarios against a fresh
// in-memory event log.
//
// A scenario appends a fixed sequence of events, derives every task and
// day the log knows, and then runs declarative checks against derived
// state, analytics, and integrity validation. Golden files capture the
// full derived-state snapshot in canonical JSON so replay regressions
// show up as byte diffs.
package harness
