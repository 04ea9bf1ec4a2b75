package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/halfday/reckon/internal/event"
	"github.com/halfday/reckon/internal/eventlog"
)

// worstOffenderLimit caps the ranked list in an underestimation pattern.
const worstOffenderLimit = 5

// Engine computes analytics directly from the event log.
type Engine struct {
	log *eventlog.Log
}

// New creates an analytics engine over a log.
func New(log *eventlog.Log) *Engine {
	return &Engine{log: log}
}

// AnalyzeEntity reconciles one task's estimated against actual effort.
func (e *Engine) AnalyzeEntity(ctx context.Context, entityID string) (TaskAnalysis, error) {
	events, err := e.log.ForEntity(ctx, entityID)
	if err != nil {
		return TaskAnalysis{}, fmt.Errorf("analyze entity %s: %w", entityID, err)
	}
	if len(events) == 0 {
		return TaskAnalysis{}, &AnalyticsError{
			Query:  "analyzeEntity",
			Reason: fmt.Sprintf("no events for entity %s", entityID),
		}
	}
	return analyzeEvents(entityID, events), nil
}

// analyzeEvents computes a TaskAnalysis from an ordered event sequence.
func analyzeEvents(entityID string, events []event.Event) TaskAnalysis {
	a := TaskAnalysis{EntityID: entityID}

	for _, ev := range events {
		switch ev.Kind {
		case event.KindTaskStarted:
			if p, ok := ev.Payload.(event.TaskStartedPayload); ok {
				if a.Name == "" {
					a.Name = p.Name
				}
				if a.EstimatedMinutes == 0 {
					a.EstimatedMinutes = p.EstimatedMinutes
				}
			}
			a.SessionCount++
		case event.KindSessionResumed:
			a.SessionCount++
		case event.KindSessionInterrupted:
			a.InterruptionCount++
		case event.KindTaskCompleted:
			if p, ok := ev.Payload.(event.TaskCompletedPayload); ok {
				a.ActualMinutes = p.ActualMinutes
			}
			a.Completed = true
		case event.KindTaskAbandoned:
			a.Abandoned = true
			if p, ok := ev.Payload.(event.TaskAbandonedPayload); ok && p.Reason != "" {
				a.AbandonReasons = append(a.AbandonReasons, p.Reason)
			}
		}
	}

	if a.Completed {
		a.VarianceMinutes = a.ActualMinutes - a.EstimatedMinutes
		if a.EstimatedMinutes > 0 {
			a.AccuracyRatio = float64(a.ActualMinutes) / float64(a.EstimatedMinutes)
		}
	}

	return a
}

// AnalyzeDay aggregates per-task analyses over every task the day's events
// reference, plus completion rate and aggregate variance.
func (e *Engine) AnalyzeDay(ctx context.Context, dayKey string) (DayAnalysis, error) {
	dayEvents, err := e.log.ForDay(ctx, dayKey)
	if err != nil {
		return DayAnalysis{}, fmt.Errorf("analyze day %s: %w", dayKey, err)
	}
	if len(dayEvents) == 0 {
		return DayAnalysis{}, &AnalyticsError{
			Query:  "analyzeDay",
			Reason: fmt.Sprintf("no events for day %s", dayKey),
		}
	}

	analysis := DayAnalysis{DayKey: dayKey}

	seen := make(map[string]bool)
	for _, ev := range dayEvents {
		if ev.Kind == event.KindDaySealed {
			ts := ev.Timestamp
			analysis.Sealed = true
			analysis.SealedAt = &ts
		}
		id := ev.Entity()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		task, err := e.AnalyzeEntity(ctx, id)
		if err != nil {
			return DayAnalysis{}, fmt.Errorf("analyze day %s: %w", dayKey, err)
		}
		analysis.Tasks = append(analysis.Tasks, task)
	}

	analysis.TaskCount = len(analysis.Tasks)

	var estimatedOfCompleted int64
	for _, task := range analysis.Tasks {
		analysis.TotalEstimatedMinutes += task.EstimatedMinutes
		analysis.TotalActualMinutes += task.ActualMinutes
		if task.Completed {
			analysis.Completed++
			estimatedOfCompleted += task.EstimatedMinutes
		}
	}

	if analysis.TaskCount > 0 {
		analysis.CompletionRate = percent(analysis.Completed, analysis.TaskCount)
	}
	if estimatedOfCompleted > 0 {
		overrun := analysis.TotalActualMinutes - estimatedOfCompleted
		analysis.VariancePercent = float64(overrun) / float64(estimatedOfCompleted) * 100
	}

	return analysis, nil
}

// DetectUnderestimation measures estimate bias across completed tasks:
// average signed variance, over/under counts, and the worst offenders by
// variance magnitude.
func (e *Engine) DetectUnderestimation(ctx context.Context, entityIDs []string) (UnderestimationPattern, error) {
	if len(entityIDs) == 0 {
		return UnderestimationPattern{}, &AnalyticsError{
			Query:  "detectUnderestimation",
			Reason: "no entities to analyze",
		}
	}

	pattern := UnderestimationPattern{}
	var totalVariance int64
	var offenders []TaskVariance

	for _, id := range entityIDs {
		task, err := e.AnalyzeEntity(ctx, id)
		if err != nil {
			return UnderestimationPattern{}, fmt.Errorf("detect underestimation: %w", err)
		}
		if !task.Completed {
			continue
		}

		pattern.TaskCount++
		totalVariance += task.VarianceMinutes
		switch {
		case task.VarianceMinutes > 0:
			pattern.Underestimated++
		case task.VarianceMinutes < 0:
			pattern.Overestimated++
		}
		offenders = append(offenders, TaskVariance{
			EntityID:        id,
			Name:            task.Name,
			VarianceMinutes: task.VarianceMinutes,
		})
	}

	if pattern.TaskCount == 0 {
		return UnderestimationPattern{}, &AnalyticsError{
			Query:  "detectUnderestimation",
			Reason: "no completed tasks among subjects",
		}
	}

	pattern.AverageVarianceMinutes = float64(totalVariance) / float64(pattern.TaskCount)

	sort.SliceStable(offenders, func(i, j int) bool {
		return abs64(offenders[i].VarianceMinutes) > abs64(offenders[j].VarianceMinutes)
	})
	if len(offenders) > worstOffenderLimit {
		offenders = offenders[:worstOffenderLimit]
	}
	pattern.WorstOffenders = offenders

	return pattern, nil
}

// DetectAbandonment computes the abandonment rate and reason histogram
// across all tasks referenced by the given days.
func (e *Engine) DetectAbandonment(ctx context.Context, dayKeys []string) (AbandonmentPattern, error) {
	if len(dayKeys) == 0 {
		return AbandonmentPattern{}, &AnalyticsError{
			Query:  "detectAbandonment",
			Reason: "no days to analyze",
		}
	}

	pattern := AbandonmentPattern{ReasonCounts: make(map[string]int)}
	seen := make(map[string]bool)

	for _, dayKey := range dayKeys {
		events, err := e.log.ForDay(ctx, dayKey)
		if err != nil {
			return AbandonmentPattern{}, fmt.Errorf("detect abandonment: %w", err)
		}
		for _, ev := range events {
			id := ev.Entity()
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true

			task, err := e.AnalyzeEntity(ctx, id)
			if err != nil {
				return AbandonmentPattern{}, fmt.Errorf("detect abandonment: %w", err)
			}

			pattern.TaskCount++
			if task.Abandoned {
				pattern.Abandoned++
				for _, reason := range task.AbandonReasons {
					pattern.ReasonCounts[reason]++
				}
			}
		}
	}

	if pattern.TaskCount == 0 {
		return AbandonmentPattern{}, &AnalyticsError{
			Query:  "detectAbandonment",
			Reason: "no tasks referenced by the given days",
		}
	}

	pattern.Rate = percent(pattern.Abandoned, pattern.TaskCount)
	pattern.MostCommon = mostCommonReason(pattern.ReasonCounts)

	return pattern, nil
}

// DetectSessionFragmentation reports how many completed tasks were done in
// a single session versus several, and the mean sessions per task.
func (e *Engine) DetectSessionFragmentation(ctx context.Context, entityIDs []string) (FragmentationPattern, error) {
	if len(entityIDs) == 0 {
		return FragmentationPattern{}, &AnalyticsError{
			Query:  "detectSessionFragmentation",
			Reason: "no entities to analyze",
		}
	}

	pattern := FragmentationPattern{}
	var totalSessions int

	for _, id := range entityIDs {
		task, err := e.AnalyzeEntity(ctx, id)
		if err != nil {
			return FragmentationPattern{}, fmt.Errorf("detect fragmentation: %w", err)
		}
		if !task.Completed {
			continue
		}

		pattern.CompletedTasks++
		totalSessions += task.SessionCount
		if task.SessionCount == 1 {
			pattern.SingleSession++
		} else {
			pattern.MultiSession++
		}
	}

	if pattern.CompletedTasks == 0 {
		return FragmentationPattern{}, &AnalyticsError{
			Query:  "detectSessionFragmentation",
			Reason: "no completed tasks among subjects",
		}
	}

	pattern.SingleRate = percent(pattern.SingleSession, pattern.CompletedTasks)
	pattern.MeanSessions = float64(totalSessions) / float64(pattern.CompletedTasks)

	return pattern, nil
}

// AnalyzeTime measures committed wall-clock minutes for one task: first
// session start to terminal event, interruptions included. The measured
// clock never pauses; an interruption narrows nothing.
func (e *Engine) AnalyzeTime(ctx context.Context, entityID string) (TimeAnalysis, error) {
	events, err := e.log.ForEntity(ctx, entityID)
	if err != nil {
		return TimeAnalysis{}, fmt.Errorf("analyze time %s: %w", entityID, err)
	}

	analysis := TimeAnalysis{EntityID: entityID}

	var started, ended *time.Time
	for _, ev := range events {
		switch ev.Kind {
		case event.KindTaskStarted:
			if started == nil {
				ts := ev.Timestamp
				started = &ts
			}
		case event.KindSessionInterrupted:
			analysis.InterruptionCount++
		case event.KindTaskCompleted, event.KindTaskAbandoned:
			ts := ev.Timestamp
			ended = &ts
			analysis.Completed = ev.Kind == event.KindTaskCompleted
		}
	}

	if started == nil {
		return TimeAnalysis{}, &AnalyticsError{
			Query:  "analyzeTime",
			Reason: fmt.Sprintf("entity %s has no session start", entityID),
		}
	}

	// An unfinished task commits up to its latest event.
	if ended == nil {
		ts := events[len(events)-1].Timestamp
		ended = &ts
	}

	analysis.StartedAt = started
	analysis.EndedAt = ended
	analysis.CommittedMinutes = int64(ended.Sub(*started) / time.Minute)

	return analysis, nil
}

func percent(part, whole int) float64 {
	return float64(part) / float64(whole) * 100
}

// mostCommonReason picks the highest-count reason; ties break
// lexicographically so output is deterministic.
func mostCommonReason(counts map[string]int) string {
	best := ""
	bestCount := 0
	for reason, count := range counts {
		if count > bestCount || (count == bestCount && best != "" && reason < best) {
			best = reason
			bestCount = count
		}
	}
	return best
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
