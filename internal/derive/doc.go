// Package derive computes current entity state purely by replaying ordered
// event sequences.
//
// Derivation is a fold with a transition table keyed by (current lifecycle
// state, event kind). The dispatch is an exhaustive switch over the closed
// kind enumeration with a failing default arm, so a kind added without
// extending the table surfaces as a hard error, never a silent no-op.
//
// The package is pure: it never writes to the log and never mutates outside
// its return values, which makes replay trivially re-runnable and safe to
// call concurrently with appends. Deriving the same event sequence twice
// yields field-for-field identical state.
package derive
