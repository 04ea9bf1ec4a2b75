package analytics

import (
	"errors"
	"fmt"
	"time"
)

// AnalyticsError reports a query that cannot produce its aggregate, usually
// for lack of data. Fatal to that single query only; unrelated aggregates
// are unaffected.
type AnalyticsError struct {
	Query  string
	Reason string
}

// Error implements the error interface.
func (e *AnalyticsError) Error() string {
	return fmt.Sprintf("analytics %s: %s", e.Query, e.Reason)
}

// IsAnalyticsError reports whether err is (or wraps) an AnalyticsError.
func IsAnalyticsError(err error) bool {
	var ae *AnalyticsError
	return errors.As(err, &ae)
}

// TaskAnalysis reconciles one task's estimated against actual effort.
type TaskAnalysis struct {
	EntityID         string `json:"entityId"`
	Name             string `json:"name"`
	EstimatedMinutes int64  `json:"estimatedMinutes"`
	ActualMinutes    int64  `json:"actualMinutes"`

	// VarianceMinutes is actual minus estimated: positive means the task
	// ran over its estimate.
	VarianceMinutes int64 `json:"varianceMinutes"`

	// AccuracyRatio is actual/estimated; 1.0 is a perfect estimate. Zero
	// when the task has no estimate or never completed.
	AccuracyRatio float64 `json:"accuracyRatio"`

	SessionCount      int      `json:"sessionCount"`
	InterruptionCount int      `json:"interruptionCount"`
	Completed         bool     `json:"completed"`
	Abandoned         bool     `json:"abandoned"`
	AbandonReasons    []string `json:"abandonReasons,omitempty"`
}

// DayAnalysis aggregates all of a day's tasks.
type DayAnalysis struct {
	DayKey    string         `json:"dayKey"`
	Tasks     []TaskAnalysis `json:"tasks"`
	TaskCount int            `json:"taskCount"`
	Completed int            `json:"completed"`

	// CompletionRate is completed/taskCount as a percentage.
	CompletionRate float64 `json:"completionRate"`

	TotalEstimatedMinutes int64 `json:"totalEstimatedMinutes"`
	TotalActualMinutes    int64 `json:"totalActualMinutes"`

	// VariancePercent is the aggregate overrun: (actual-estimated)
	// relative to estimated, as a percentage, over completed tasks.
	VariancePercent float64 `json:"variancePercent"`

	Sealed   bool       `json:"sealed"`
	SealedAt *time.Time `json:"sealedAt,omitempty"`
}

// TaskVariance ranks one task inside an underestimation pattern.
type TaskVariance struct {
	EntityID        string `json:"entityId"`
	Name            string `json:"name"`
	VarianceMinutes int64  `json:"varianceMinutes"`
}

// UnderestimationPattern summarizes estimate bias across tasks.
type UnderestimationPattern struct {
	TaskCount              int     `json:"taskCount"`
	AverageVarianceMinutes float64 `json:"averageVarianceMinutes"`
	Underestimated         int     `json:"underestimated"`
	Overestimated          int     `json:"overestimated"`

	// WorstOffenders ranks tasks by variance magnitude, largest first.
	WorstOffenders []TaskVariance `json:"worstOffenders,omitempty"`
}

// AbandonmentPattern summarizes why tasks get dropped.
type AbandonmentPattern struct {
	TaskCount    int            `json:"taskCount"`
	Abandoned    int            `json:"abandoned"`
	Rate         float64        `json:"rate"` // percentage
	ReasonCounts map[string]int `json:"reasonCounts,omitempty"`
	MostCommon   string         `json:"mostCommonReason,omitempty"`
}

// FragmentationPattern summarizes how often completed tasks needed more
// than one session.
type FragmentationPattern struct {
	CompletedTasks int     `json:"completedTasks"`
	SingleSession  int     `json:"singleSession"`
	MultiSession   int     `json:"multiSession"`
	SingleRate     float64 `json:"singleSessionRate"` // percentage
	MeanSessions   float64 `json:"meanSessionsPerTask"`
}

// TimeAnalysis reports committed wall-clock time for one task.
//
// CommittedMinutes spans from the first session start to the terminal
// event without pausing during interruptions. It is "app was active" time,
// not focused effort, and must never be presented as such.
type TimeAnalysis struct {
	EntityID          string     `json:"entityId"`
	StartedAt         *time.Time `json:"startedAt"`
	EndedAt           *time.Time `json:"endedAt"`
	CommittedMinutes  int64      `json:"committedMinutes"`
	InterruptionCount int        `json:"interruptionCount"`
	Completed         bool       `json:"completed"`
}
