// Package integrity detects divergence between derived state and the
// cached snapshots an external repository keeps for read performance.
//
// The validator never repairs anything: detection and reporting are its
// entire contract, and remediation is an operator decision. A system-wide
// scan isolates per-entity derivation failures so one corrupt stream cannot
// abort the whole run, and honors context cancellation by returning a
// report marked partial instead of claiming system health it never checked.
package integrity
