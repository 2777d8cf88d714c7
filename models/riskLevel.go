package models

import (
	"fmt"
	"math"
)

// RiskLevel is the closed set of risk classifications shared by compliance
// items and risk scores. Stored as a constrained string column.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// rank orders levels so the lifecycle manager can take a maximum.
func (l RiskLevel) rank() int {
	switch l {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 0
	}
}

// Valid reports whether l is one of the enumerated levels.
func (l RiskLevel) Valid() bool {
	return l.rank() > 0
}

// Higher reports whether l outranks other.
func (l RiskLevel) Higher(other RiskLevel) bool {
	return l.rank() > other.rank()
}

// ParseRiskLevel converts user input into a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	l := RiskLevel(s)
	if !l.Valid() {
		return "", fmt.Errorf("invalid risk level %q", s)
	}
	return l, nil
}

// MaxRiskLevel returns the highest level in levels, or "" when empty.
func MaxRiskLevel(levels ...RiskLevel) RiskLevel {
	var max RiskLevel
	for _, l := range levels {
		if l.Higher(max) {
			max = l
		}
	}
	return max
}

// Score bounds enforced by the engine and by the risk_scores CHECK constraint.
const (
	MinRiskScore = 0
	MaxRiskScore = 100
)

// LevelForScore is the single score-to-level mapping:
// low [0,25), medium [25,50), high [50,75), critical [75,100].
func LevelForScore(score int) RiskLevel {
	switch {
	case score < 25:
		return RiskLow
	case score < 50:
		return RiskMedium
	case score < 75:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// NormalizeScore rounds half-up and clamps a raw collaborator score into
// [0,100]. NaN is rejected.
func NormalizeScore(raw float64) (int, error) {
	if math.IsNaN(raw) {
		return 0, fmt.Errorf("risk score is not a number")
	}
	if raw <= MinRiskScore {
		return MinRiskScore, nil
	}
	if raw >= MaxRiskScore {
		return MaxRiskScore, nil
	}
	return int(math.Floor(raw + 0.5)), nil
}

// Status is the compliance item lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusExpired    Status = "expired"
)

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

// Terminal reports whether no automatic transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q", s)
	}
	return st, nil
}
