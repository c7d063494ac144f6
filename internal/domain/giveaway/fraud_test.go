package giveaway

import (
	"testing"
	"time"
)

func oldAccountHistory() ParticipantHistory {
	return ParticipantHistory{
		AccountCreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestScoreParticipantCleanHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	history := oldAccountHistory()
	history.EntryTimes = []time.Time{
		now.Add(-30 * time.Hour),
		now.Add(-5 * time.Hour),
	}

	assessment := ScoreParticipant(history, now, DefaultScoringConfig())
	if assessment.Score != 0 {
		t.Fatalf("Score = %d, want 0", assessment.Score)
	}
	if len(assessment.Reasons) != 0 {
		t.Fatalf("Reasons = %v, want none", assessment.Reasons)
	}
}

func TestScoreParticipantEntryVelocity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	history := oldAccountHistory()
	// Six entries inside 24h, irregular spacing: one over the threshold.
	for _, offset := range []time.Duration{
		-23 * time.Hour,
		-17 * time.Hour,
		-11*time.Hour - 13*time.Minute,
		-6 * time.Hour,
		-2*time.Hour - 41*time.Minute,
		-30 * time.Minute,
	} {
		history.EntryTimes = append(history.EntryTimes, now.Add(offset))
	}

	assessment := ScoreParticipant(history, now, DefaultScoringConfig())
	if assessment.Score != 30 {
		t.Fatalf("Score = %d, want 30", assessment.Score)
	}
	if len(assessment.Reasons) != 1 || assessment.Reasons[0] != ReasonAbnormalEntryPattern {
		t.Fatalf("Reasons = %v, want [%q]", assessment.Reasons, ReasonAbnormalEntryPattern)
	}
}

func TestScoreParticipantRegularIntervals(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	history := oldAccountHistory()
	// Three entries exactly 2h apart, all older than the velocity window.
	base := now.Add(-80 * time.Hour)
	for i := 0; i < 3; i++ {
		history.EntryTimes = append(history.EntryTimes, base.Add(time.Duration(i)*2*time.Hour))
	}

	assessment := ScoreParticipant(history, now, DefaultScoringConfig())
	if assessment.Score != 20 {
		t.Fatalf("Score = %d, want 20", assessment.Score)
	}
}

func TestScoreParticipantRegularityTolerance(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	history := oldAccountHistory()
	// Intervals deviate from the mean by more than one second.
	base := now.Add(-80 * time.Hour)
	history.EntryTimes = []time.Time{
		base,
		base.Add(2 * time.Hour),
		base.Add(4*time.Hour + 10*time.Second),
	}

	assessment := ScoreParticipant(history, now, DefaultScoringConfig())
	if assessment.Score != 0 {
		t.Fatalf("Score = %d, want 0", assessment.Score)
	}
}

func TestScoreParticipantYoungAccount(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	history := ParticipantHistory{
		AccountCreatedAt: now.Add(-10 * 24 * time.Hour),
	}

	assessment := ScoreParticipant(history, now, DefaultScoringConfig())
	if assessment.Score != 25 {
		t.Fatalf("Score = %d, want 25", assessment.Score)
	}
	if len(assessment.Reasons) != 1 || assessment.Reasons[0] != ReasonSuspiciousAccount {
		t.Fatalf("Reasons = %v, want [%q]", assessment.Reasons, ReasonSuspiciousAccount)
	}
}

func TestScoreParticipantLinkedAccounts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	history := oldAccountHistory()
	history.CorrelatedEntryCount = 2

	assessment := ScoreParticipant(history, now, DefaultScoringConfig())
	if assessment.Score != 25 {
		t.Fatalf("Score = %d, want 25", assessment.Score)
	}
	if len(assessment.Reasons) != 1 || assessment.Reasons[0] != ReasonLinkedAccounts {
		t.Fatalf("Reasons = %v, want [%q]", assessment.Reasons, ReasonLinkedAccounts)
	}
}

func TestScoreParticipantStacksAllSignals(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	history := ParticipantHistory{
		AccountCreatedAt:     now.Add(-5 * 24 * time.Hour),
		CorrelatedEntryCount: 1,
	}
	// Six entries exactly one minute apart: velocity and regularity fire.
	base := now.Add(-time.Hour)
	for i := 0; i < 6; i++ {
		history.EntryTimes = append(history.EntryTimes, base.Add(time.Duration(i)*time.Minute))
	}

	assessment := ScoreParticipant(history, now, DefaultScoringConfig())
	if assessment.Score != 100 {
		t.Fatalf("Score = %d, want 100", assessment.Score)
	}
	if len(assessment.Reasons) != 3 {
		t.Fatalf("Reasons = %v, want 3 reasons", assessment.Reasons)
	}
	if !assessment.Exceeds(DefaultScoringConfig()) {
		t.Fatalf("Exceeds() = false, want true at score %d", assessment.Score)
	}
}

func TestScoreParticipantDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	history := oldAccountHistory()
	base := now.Add(-time.Hour)
	for i := 0; i < 7; i++ {
		history.EntryTimes = append(history.EntryTimes, base.Add(time.Duration(i)*time.Minute))
	}

	first := ScoreParticipant(history, now, DefaultScoringConfig())
	for i := 0; i < 10; i++ {
		again := ScoreParticipant(history, now, DefaultScoringConfig())
		if again.Score != first.Score || len(again.Reasons) != len(first.Reasons) {
			t.Fatalf("run %d: assessment %+v differs from first %+v", i, again, first)
		}
	}
}

func TestExceedsBoundary(t *testing.T) {
	cfg := DefaultScoringConfig()
	if (Assessment{Score: 49}).Exceeds(cfg) {
		t.Fatal("score 49 should not exceed threshold 50")
	}
	if !(Assessment{Score: 50}).Exceeds(cfg) {
		t.Fatal("score 50 should exceed threshold 50")
	}
}
