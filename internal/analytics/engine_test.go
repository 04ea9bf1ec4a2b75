package analytics

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/halfday/reckon/internal/event"
	"github.com/halfday/reckon/internal/eventlog"
	"github.com/halfday/reckon/internal/storage"
	"github.com/halfday/reckon/internal/testutil"
)

func newTestEngine(t *testing.T) (*Engine, *eventlog.Log) {
	t.Helper()
	log, err := eventlog.New(context.Background(), storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("eventlog.New() failed: %v", err)
	}
	return New(log), log
}

func mustAppend(t *testing.T, log *eventlog.Log, evs ...event.Event) {
	t.Helper()
	for _, ev := range evs {
		if _, err := log.Append(context.Background(), ev); err != nil {
			t.Fatalf("seed append %s failed: %v", ev.ID, err)
		}
	}
}

func TestAnalyzeEntity(t *testing.T) {
	engine, log := newTestEngine(t)
	mustAppend(t, log,
		testutil.TaskStarted("e1", "t1", testutil.BaseTime, "write report", 30),
		testutil.SessionInterrupted("e2", "t1", testutil.At(10*time.Minute), "phone call"),
		testutil.SessionResumed("e3", "t1", testutil.At(20*time.Minute), 10),
		testutil.TaskCompleted("e4", "t1", testutil.At(45*time.Minute), 45),
	)

	got, err := engine.AnalyzeEntity(context.Background(), "t1")
	if err != nil {
		t.Fatalf("AnalyzeEntity() failed: %v", err)
	}
	if got.Name != "write report" || got.EstimatedMinutes != 30 || got.ActualMinutes != 45 {
		t.Errorf("AnalyzeEntity() = %+v, want name/30/45", got)
	}
	if got.VarianceMinutes != 15 {
		t.Errorf("VarianceMinutes = %d, want 15", got.VarianceMinutes)
	}
	if got.AccuracyRatio != 1.5 {
		t.Errorf("AccuracyRatio = %v, want 1.5", got.AccuracyRatio)
	}
	// One session from the start plus one resume.
	if got.SessionCount != 2 || got.InterruptionCount != 1 {
		t.Errorf("sessions/interruptions = %d/%d, want 2/1", got.SessionCount, got.InterruptionCount)
	}
	if !got.Completed || got.Abandoned {
		t.Errorf("lifecycle flags = completed %v abandoned %v", got.Completed, got.Abandoned)
	}
}

func TestAnalyzeEntity_NoEvents(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.AnalyzeEntity(context.Background(), "ghost")
	if !IsAnalyticsError(err) {
		t.Errorf("AnalyzeEntity(ghost) error = %v, want AnalyticsError", err)
	}
}

func TestAnalyzeEntity_Abandoned(t *testing.T) {
	engine, log := newTestEngine(t)
	mustAppend(t, log,
		testutil.TaskStarted("e1", "t1", testutil.BaseTime, "refactor", 120),
		testutil.TaskAbandoned("e2", "t1", testutil.At(30*time.Minute), "scope_creep"),
	)

	got, err := engine.AnalyzeEntity(context.Background(), "t1")
	if err != nil {
		t.Fatalf("AnalyzeEntity() failed: %v", err)
	}
	if !got.Abandoned || got.Completed {
		t.Errorf("lifecycle flags = completed %v abandoned %v", got.Completed, got.Abandoned)
	}
	if len(got.AbandonReasons) != 1 || got.AbandonReasons[0] != "scope_creep" {
		t.Errorf("AbandonReasons = %v, want [scope_creep]", got.AbandonReasons)
	}
	// Variance is undefined without a reconciled actual.
	if got.VarianceMinutes != 0 || got.AccuracyRatio != 0 {
		t.Errorf("abandoned task variance = %d ratio %v, want zero values", got.VarianceMinutes, got.AccuracyRatio)
	}
}

func TestAnalyzeDay(t *testing.T) {
	engine, log := newTestEngine(t)
	mustAppend(t, log,
		testutil.DayOpened("e1", testutil.BaseTime),
		testutil.TaskStarted("e2", "t1", testutil.At(5*time.Minute), "write report", 30),
		testutil.TaskStarted("e3", "t2", testutil.At(10*time.Minute), "review queue", 20),
		testutil.TaskCompleted("e4", "t1", testutil.At(50*time.Minute), 45),
		testutil.TaskAbandoned("e5", "t2", testutil.At(60*time.Minute), "blocked"),
		testutil.DaySealed("e6", testutil.At(8*time.Hour)),
	)

	got, err := engine.AnalyzeDay(context.Background(), testutil.Day)
	if err != nil {
		t.Fatalf("AnalyzeDay() failed: %v", err)
	}
	if got.TaskCount != 2 || got.Completed != 1 {
		t.Errorf("tasks/completed = %d/%d, want 2/1", got.TaskCount, got.Completed)
	}
	if got.CompletionRate != 50 {
		t.Errorf("CompletionRate = %v, want 50", got.CompletionRate)
	}
	if got.TotalEstimatedMinutes != 50 || got.TotalActualMinutes != 45 {
		t.Errorf("estimated/actual = %d/%d, want 50/45", got.TotalEstimatedMinutes, got.TotalActualMinutes)
	}
	// 45 actual against the 30 estimated by the one completed task.
	if want := 50.0; got.VariancePercent != want {
		t.Errorf("VariancePercent = %v, want %v", got.VariancePercent, want)
	}
	if !got.Sealed || got.SealedAt == nil {
		t.Errorf("Sealed = %v SealedAt = %v, want sealed with timestamp", got.Sealed, got.SealedAt)
	}
}

func TestAnalyzeDay_NoEvents(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.AnalyzeDay(context.Background(), "2026-01-01")
	if !IsAnalyticsError(err) {
		t.Errorf("AnalyzeDay(empty) error = %v, want AnalyticsError", err)
	}
}

func TestDetectUnderestimation(t *testing.T) {
	engine, log := newTestEngine(t)
	mustAppend(t, log,
		testutil.TaskStarted("e1", "t1", testutil.BaseTime, "write report", 30),
		testutil.TaskCompleted("e2", "t1", testutil.At(50*time.Minute), 50), // +20
		testutil.TaskStarted("e3", "t2", testutil.At(time.Hour), "review queue", 40),
		testutil.TaskCompleted("e4", "t2", testutil.At(90*time.Minute), 30), // -10
		testutil.TaskStarted("e5", "t3", testutil.At(2*time.Hour), "refactor", 60),
		testutil.TaskAbandoned("e6", "t3", testutil.At(3*time.Hour), "blocked"),
	)

	got, err := engine.DetectUnderestimation(context.Background(), []string{"t1", "t2", "t3"})
	if err != nil {
		t.Fatalf("DetectUnderestimation() failed: %v", err)
	}
	// The abandoned task has no reconciled actual and is excluded.
	if got.TaskCount != 2 {
		t.Fatalf("TaskCount = %d, want 2", got.TaskCount)
	}
	if got.Underestimated != 1 || got.Overestimated != 1 {
		t.Errorf("under/over = %d/%d, want 1/1", got.Underestimated, got.Overestimated)
	}
	if got.AverageVarianceMinutes != 5 {
		t.Errorf("AverageVarianceMinutes = %v, want 5", got.AverageVarianceMinutes)
	}
	if len(got.WorstOffenders) != 2 || got.WorstOffenders[0].EntityID != "t1" {
		t.Errorf("WorstOffenders = %+v, want t1 first", got.WorstOffenders)
	}
}

func TestDetectUnderestimation_CapsOffenders(t *testing.T) {
	engine, log := newTestEngine(t)
	for i := 0; i < 7; i++ {
		id := fmt.Sprintf("t%d", i)
		mustAppend(t, log,
			testutil.TaskStarted(fmt.Sprintf("s%d", i), id, testutil.At(time.Duration(i)*time.Hour), "task", 30),
			testutil.TaskCompleted(fmt.Sprintf("c%d", i), id, testutil.At(time.Duration(i)*time.Hour+30*time.Minute), 30+int64(i)),
		)
	}

	ids := []string{"t0", "t1", "t2", "t3", "t4", "t5", "t6"}
	got, err := engine.DetectUnderestimation(context.Background(), ids)
	if err != nil {
		t.Fatalf("DetectUnderestimation() failed: %v", err)
	}
	if len(got.WorstOffenders) != worstOffenderLimit {
		t.Errorf("len(WorstOffenders) = %d, want %d", len(got.WorstOffenders), worstOffenderLimit)
	}
	if got.WorstOffenders[0].EntityID != "t6" {
		t.Errorf("worst offender = %s, want t6", got.WorstOffenders[0].EntityID)
	}
}

// Ten tasks across one day, three abandoned: two for scope creep, one
// blocked. The rate is 30% and scope creep dominates.
func TestDetectAbandonment(t *testing.T) {
	engine, log := newTestEngine(t)

	reasons := map[string]string{"t7": "scope_creep", "t8": "scope_creep", "t9": "blocked"}
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("t%d", i)
		start := testutil.At(time.Duration(i) * 30 * time.Minute)
		mustAppend(t, log, testutil.TaskStarted(fmt.Sprintf("s%d", i), id, start, "task", 30))
		if reason, ok := reasons[id]; ok {
			mustAppend(t, log, testutil.TaskAbandoned(fmt.Sprintf("a%d", i), id, start.Add(10*time.Minute), reason))
		} else {
			mustAppend(t, log, testutil.TaskCompleted(fmt.Sprintf("c%d", i), id, start.Add(25*time.Minute), 25))
		}
	}

	got, err := engine.DetectAbandonment(context.Background(), []string{testutil.Day})
	if err != nil {
		t.Fatalf("DetectAbandonment() failed: %v", err)
	}
	if got.TaskCount != 10 || got.Abandoned != 3 {
		t.Errorf("tasks/abandoned = %d/%d, want 10/3", got.TaskCount, got.Abandoned)
	}
	if got.Rate != 30 {
		t.Errorf("Rate = %v, want 30", got.Rate)
	}
	if got.ReasonCounts["scope_creep"] != 2 || got.ReasonCounts["blocked"] != 1 {
		t.Errorf("ReasonCounts = %v, want scope_creep:2 blocked:1", got.ReasonCounts)
	}
	if got.MostCommon != "scope_creep" {
		t.Errorf("MostCommon = %q, want scope_creep", got.MostCommon)
	}
}

func TestDetectAbandonment_NoDays(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.DetectAbandonment(context.Background(), nil)
	if !IsAnalyticsError(err) {
		t.Errorf("DetectAbandonment(nil) error = %v, want AnalyticsError", err)
	}
}

func TestDetectSessionFragmentation(t *testing.T) {
	engine, log := newTestEngine(t)
	mustAppend(t, log,
		// t1: one uninterrupted session.
		testutil.TaskStarted("e1", "t1", testutil.BaseTime, "write report", 30),
		testutil.TaskCompleted("e2", "t1", testutil.At(30*time.Minute), 30),
		// t2: three sessions.
		testutil.TaskStarted("e3", "t2", testutil.At(time.Hour), "review queue", 40),
		testutil.SessionInterrupted("e4", "t2", testutil.At(70*time.Minute), "meeting"),
		testutil.SessionResumed("e5", "t2", testutil.At(90*time.Minute), 10),
		testutil.SessionInterrupted("e6", "t2", testutil.At(100*time.Minute), "lunch"),
		testutil.SessionResumed("e7", "t2", testutil.At(2*time.Hour), 20),
		testutil.TaskCompleted("e8", "t2", testutil.At(130*time.Minute), 40),
	)

	got, err := engine.DetectSessionFragmentation(context.Background(), []string{"t1", "t2"})
	if err != nil {
		t.Fatalf("DetectSessionFragmentation() failed: %v", err)
	}
	if got.CompletedTasks != 2 || got.SingleSession != 1 || got.MultiSession != 1 {
		t.Errorf("completed/single/multi = %d/%d/%d, want 2/1/1", got.CompletedTasks, got.SingleSession, got.MultiSession)
	}
	if got.SingleRate != 50 {
		t.Errorf("SingleRate = %v, want 50", got.SingleRate)
	}
	if got.MeanSessions != 2 {
		t.Errorf("MeanSessions = %v, want 2", got.MeanSessions)
	}
}

func TestDetectSessionFragmentation_NoCompleted(t *testing.T) {
	engine, log := newTestEngine(t)
	mustAppend(t, log,
		testutil.TaskStarted("e1", "t1", testutil.BaseTime, "refactor", 60),
	)

	_, err := engine.DetectSessionFragmentation(context.Background(), []string{"t1"})
	if !IsAnalyticsError(err) {
		t.Errorf("DetectSessionFragmentation() error = %v, want AnalyticsError", err)
	}
}

// The committed clock runs from first start to completion and does not
// pause while a session sits interrupted.
func TestAnalyzeTime_InterruptionDoesNotPauseClock(t *testing.T) {
	engine, log := newTestEngine(t)
	mustAppend(t, log,
		testutil.TaskStarted("e1", "t1", testutil.BaseTime, "write report", 30),
		testutil.SessionInterrupted("e2", "t1", testutil.At(10*time.Minute), "phone call"),
		testutil.SessionResumed("e3", "t1", testutil.At(40*time.Minute), 10),
		testutil.TaskCompleted("e4", "t1", testutil.At(60*time.Minute), 30),
	)

	got, err := engine.AnalyzeTime(context.Background(), "t1")
	if err != nil {
		t.Fatalf("AnalyzeTime() failed: %v", err)
	}
	// Full wall-clock span, 30-minute gap included.
	if got.CommittedMinutes != 60 {
		t.Errorf("CommittedMinutes = %d, want 60", got.CommittedMinutes)
	}
	if got.InterruptionCount != 1 {
		t.Errorf("InterruptionCount = %d, want 1", got.InterruptionCount)
	}
	if !got.Completed {
		t.Error("Completed = false, want true")
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(testutil.BaseTime) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, testutil.BaseTime)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(testutil.At(60*time.Minute)) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, testutil.At(60*time.Minute))
	}
}

func TestAnalyzeTime_OpenTask(t *testing.T) {
	engine, log := newTestEngine(t)
	mustAppend(t, log,
		testutil.TaskStarted("e1", "t1", testutil.BaseTime, "refactor", 60),
		testutil.SessionInterrupted("e2", "t1", testutil.At(25*time.Minute), "standup"),
	)

	got, err := engine.AnalyzeTime(context.Background(), "t1")
	if err != nil {
		t.Fatalf("AnalyzeTime() failed: %v", err)
	}
	if got.Completed {
		t.Error("Completed = true for open task")
	}
	if got.CommittedMinutes != 25 {
		t.Errorf("CommittedMinutes = %d, want 25", got.CommittedMinutes)
	}
}

func TestAnalyzeTime_NoStart(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.AnalyzeTime(context.Background(), "ghost")
	if !IsAnalyticsError(err) {
		t.Errorf("AnalyzeTime(ghost) error = %v, want AnalyticsError", err)
	}
}

func TestMostCommonReason_Deterministic(t *testing.T) {
	counts := map[string]int{"blocked": 2, "scope_creep": 2, "tired": 1}
	for i := 0; i < 20; i++ {
		if got := mostCommonReason(counts); got != "blocked" {
			t.Fatalf("mostCommonReason() = %q, want blocked (lexicographic tie-break)", got)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := percent(1, 3); math.Abs(got-33.333333) > 0.001 {
		t.Errorf("percent(1,3) = %v", got)
	}
}
