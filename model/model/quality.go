package model

import "fmt"

// Severity tiers for quality failures.
//   P0 - blocks publication of the affected partition, blocking alert.
//   P1 - publishes but raises a review alert.
//   P2 - informational, batched into periodic summaries only.
const (
	SeverityP0 = "P0"
	SeverityP1 = "P1"
	SeverityP2 = "P2"
)

// SeverityRank orders severities for max-severity selection, P0 highest.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityP0:
		return 3
	case SeverityP1:
		return 2
	case SeverityP2:
		return 1
	}
	return 0
}

// MaxSeverity returns the higher ranked of two severities.
func MaxSeverity(a, b string) string {
	if SeverityRank(b) > SeverityRank(a) {
		return b
	}
	return a
}

// Anomaly kinds of the error taxonomy, tagged onto check results.
const (
	AnomalySchemaViolation    = "schema_violation"
	AnomalyDuplicateRecord    = "duplicate_record"
	AnomalyReferentialGap     = "referential_gap"
	AnomalyStatisticalAnomaly = "statistical_anomaly"
)

// Quality run states. Transitions: PENDING -> RUNNING -> PASSED|FAILED
// -> REPORTED. No retries within a run.
const (
	QualityRunStatePending  = "PENDING"
	QualityRunStateRunning  = "RUNNING"
	QualityRunStatePassed   = "PASSED"
	QualityRunStateFailed   = "FAILED"
	QualityRunStateReported = "REPORTED"
)

// QualityCheckResult is the outcome of one rule against one derived table.
type QualityCheckResult struct {
	RunID       string  `json:"run_id"`
	RuleName    string  `gorm:"primary_key:true" json:"rule"`
	TargetTable string  `gorm:"primary_key:true" json:"table"`
	Severity    string  `json:"severity"`
	AnomalyKind string  `json:"anomaly_kind"`
	MetricValue float64 `json:"metric"`
	Threshold   float64 `json:"threshold"`
	Passed      bool    `json:"passed"`
	Details     string  `json:"details"`
	CheckedAt   int64   `gorm:"primary_key:true" json:"checked_at"`
}

func (QualityCheckResult) TableName() string {
	return "quality_check_results"
}

// QualityRun is one gate execution over one date partition. SafeToConsume
// stays false until a corrected window passes recomputation.
type QualityRun struct {
	ID            string `gorm:"primary_key:true;type:uuid" json:"id"`
	Date          string `json:"date"`
	State         string `json:"state"`
	MaxSeverity   string `json:"max_severity"`
	FailedRules   int    `json:"failed_rules"`
	TotalRules    int    `json:"total_rules"`
	SafeToConsume bool   `json:"safe_to_consume"`
	StartedAt     int64  `json:"started_at"`
	CompletedAt   int64  `json:"completed_at"`
}

func (QualityRun) TableName() string {
	return "quality_runs"
}

// AlertPayload is produced once per failing run for the notification
// collaborator. Delivery is out of scope.
type AlertPayload struct {
	Severity       string  `json:"severity"`
	RuleName       string  `json:"rule"`
	TargetTable    string  `json:"table"`
	FailurePercent float64 `json:"failure_percent"`
	Summary        string  `json:"summary"`
}

func (a *AlertPayload) String() string {
	return fmt.Sprintf("[%s] %s on %s (%.1f%% of rules failing): %s",
		a.Severity, a.RuleName, a.TargetTable, a.FailurePercent, a.Summary)
}
