package event

// Kind identifies what happened. The enumeration is closed: the derivation
// engine refuses kinds outside this set, so adding a kind means extending
// both this list and the transition table.
type Kind string

const (
	// KindTaskStarted begins a task session. Carries the task name and the
	// user's estimate.
	KindTaskStarted Kind = "task_started"

	// KindTaskCompleted finishes a task. Carries the reconciled actual
	// minutes plus optional retrospective notes.
	KindTaskCompleted Kind = "task_completed"

	// KindTaskAbandoned gives up on a task. The reason is mandatory; it
	// feeds the abandonment pattern histogram.
	KindTaskAbandoned Kind = "task_abandoned"

	// KindDayOpened starts a tracked day.
	KindDayOpened Kind = "day_opened"

	// KindDaySealed locks a day. Sealing is one-way.
	KindDaySealed Kind = "day_sealed"

	// KindSessionInterrupted marks the active session as interrupted.
	KindSessionInterrupted Kind = "session_interrupted"

	// KindSessionResumed resumes work after an interruption, opening a new
	// session for the same task.
	KindSessionResumed Kind = "session_resumed"

	// KindReflectionSubmitted records free-text reflection for a day or a
	// task. It never affects lifecycle state.
	KindReflectionSubmitted Kind = "reflection_submitted"

	// KindIntegrityViolation records a detected divergence between derived
	// and cached state, appended for audit by the validator's caller.
	KindIntegrityViolation Kind = "integrity_violation"

	// KindEvidence carries device-usage counters from the external forensic
	// collector. The payload is opaque to this subsystem.
	KindEvidence Kind = "evidence"
)

// validKinds is the closed enumeration.
var validKinds = map[Kind]bool{
	KindTaskStarted:         true,
	KindTaskCompleted:       true,
	KindTaskAbandoned:       true,
	KindDayOpened:           true,
	KindDaySealed:           true,
	KindSessionInterrupted:  true,
	KindSessionResumed:      true,
	KindReflectionSubmitted: true,
	KindIntegrityViolation:  true,
	KindEvidence:            true,
}

// entityRule captures whether a kind must, must not, or may carry an
// entity reference.
type entityRule int

const (
	entityRequired entityRule = iota
	entityForbidden
	entityOptional
)

var entityRules = map[Kind]entityRule{
	KindTaskStarted:         entityRequired,
	KindTaskCompleted:       entityRequired,
	KindTaskAbandoned:       entityRequired,
	KindSessionInterrupted:  entityRequired,
	KindSessionResumed:      entityRequired,
	KindDayOpened:           entityForbidden,
	KindDaySealed:           entityForbidden,
	KindReflectionSubmitted: entityOptional,
	KindIntegrityViolation:  entityOptional,
	KindEvidence:            entityOptional,
}

// Kinds returns the closed enumeration in stable declaration order.
func Kinds() []Kind {
	return []Kind{
		KindTaskStarted,
		KindTaskCompleted,
		KindTaskAbandoned,
		KindDayOpened,
		KindDaySealed,
		KindSessionInterrupted,
		KindSessionResumed,
		KindReflectionSubmitted,
		KindIntegrityViolation,
		KindEvidence,
	}
}

// Valid reports whether k is a member of the closed enumeration.
func (k Kind) Valid() bool {
	return validKinds[k]
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	return string(k)
}
