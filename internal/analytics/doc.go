// Package analytics mines the event log for behavioral patterns: estimate
// accuracy, abandonment, session fragmentation, and time commitment.
//
// Aggregates are computed fresh from the log on every query and never
// cached as authoritative. The engine reads events directly rather than
// going through cached snapshots, so a cache error can never compound into
// an analytics error.
//
// Committed time is "app was active" wall-clock time. It may include
// periods where the device sat locked on a desk; nothing in this package
// measures or implies focused attention.
package analytics
