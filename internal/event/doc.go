// Package event defines the immutable event envelope, the closed kind
// enumeration, and the per-kind typed payloads.
//
// This package contains type definitions and serialization only. All other
// internal packages import event; event imports nothing internal. This keeps
// it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - No float types anywhere - minutes and counters are int64
//   - Wire field names are a compatibility contract and never change
//   - Canonical JSON (RFC 8785) is the only serialization used for checksums
package event
