package giveaway

import (
	"sort"
	"time"
)

// Penalty weights per signal category.
const (
	penaltyEntryVelocity    = 30
	penaltyEntryRegularity  = 20
	penaltyYoungAccount     = 25
	penaltyLinkedAccounts   = 25
	regularityMinEntries    = 3
	regularityTolerance     = time.Second
	recentEntryWindow       = 24 * time.Hour
)

const (
	ReasonAbnormalEntryPattern = "abnormal entry pattern"
	ReasonSuspiciousAccount    = "suspicious account characteristics"
	ReasonLinkedAccounts       = "linked fraudulent accounts detected"
)

type ScoringConfig struct {
	// RecentEntryThreshold is the number of entries inside the trailing
	// 24 hours above which the velocity penalty fires.
	RecentEntryThreshold int
	// MinAccountAge is the account age below which the young-account
	// penalty fires.
	MinAccountAge time.Duration
	// ScoreThreshold is the gate: at or above it the caller invalidates
	// the entry. Scoring itself never mutates state.
	ScoreThreshold int
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		RecentEntryThreshold: 5,
		MinAccountAge:        30 * 24 * time.Hour,
		ScoreThreshold:       50,
	}
}

// ParticipantHistory is the plain-data input to scoring. The caller
// pre-loads it; scoring performs no I/O.
type ParticipantHistory struct {
	AccountCreatedAt time.Time
	EntryTimes       []time.Time
	// CorrelatedEntryCount is the number of entries by other participants
	// sharing this participant's correlation key (opaque linkage signal).
	CorrelatedEntryCount int
}

type Assessment struct {
	Score   int
	Reasons []string
}

// Exceeds reports whether the score meets the invalidation gate.
func (a Assessment) Exceeds(cfg ScoringConfig) bool {
	return a.Score >= cfg.ScoreThreshold
}

// ScoreParticipant computes the fraud risk signal. Deterministic: identical
// history and clock yield identical score and reasons.
func ScoreParticipant(history ParticipantHistory, now time.Time, cfg ScoringConfig) Assessment {
	var assessment Assessment

	if pattern := entryPatternScore(history.EntryTimes, now, cfg); pattern > 0 {
		assessment.Score += pattern
		assessment.Reasons = append(assessment.Reasons, ReasonAbnormalEntryPattern)
	}

	if !history.AccountCreatedAt.IsZero() && now.Sub(history.AccountCreatedAt) < cfg.MinAccountAge {
		assessment.Score += penaltyYoungAccount
		assessment.Reasons = append(assessment.Reasons, ReasonSuspiciousAccount)
	}

	if history.CorrelatedEntryCount > 0 {
		assessment.Score += penaltyLinkedAccounts
		assessment.Reasons = append(assessment.Reasons, ReasonLinkedAccounts)
	}

	return assessment
}

// entryPatternScore combines velocity and regularity. Both sub-checks share
// one reason category; the caller appends it once.
func entryPatternScore(entryTimes []time.Time, now time.Time, cfg ScoringConfig) int {
	score := 0

	recent := 0
	for _, at := range entryTimes {
		if age := now.Sub(at); age >= 0 && age <= recentEntryWindow {
			recent++
		}
	}
	if recent > cfg.RecentEntryThreshold {
		score += penaltyEntryVelocity
	}

	if suspiciouslyRegular(entryTimes) {
		score += penaltyEntryRegularity
	}

	return score
}

// suspiciouslyRegular flags bot-like submission cadence: with at least three
// entries, every inter-arrival interval sits within one second of the mean.
func suspiciouslyRegular(entryTimes []time.Time) bool {
	if len(entryTimes) < regularityMinEntries {
		return false
	}

	sorted := make([]time.Time, len(entryTimes))
	copy(sorted, entryTimes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	intervals := make([]time.Duration, 0, len(sorted)-1)
	var total time.Duration
	for i := 1; i < len(sorted); i++ {
		interval := sorted[i].Sub(sorted[i-1])
		intervals = append(intervals, interval)
		total += interval
	}

	mean := total / time.Duration(len(intervals))
	for _, interval := range intervals {
		deviation := interval - mean
		if deviation < 0 {
			deviation = -deviation
		}
		if deviation >= regularityTolerance {
			return false
		}
	}
	return true
}
