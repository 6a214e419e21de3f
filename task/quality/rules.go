package quality

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"daymart/model/model"
	U "daymart/util"
)

// Rule names, referenced by check results and alerts.
const (
	RuleNotNullColumns     = "not_null_columns"
	RulePrimaryKeyUnique   = "primary_key_unique"
	RuleSegmentEnum        = "segment_enum"
	RuleFunnelMonotonic    = "funnel_monotonic"
	RuleRateRange          = "rate_range"
	RuleReturnedWithinSize = "returned_within_size"
	RuleNetIdentity        = "net_identity"
	RuleDedupConsistency   = "dedup_consistency"
	RuleRejectRate         = "reject_rate"
	RuleOverRefund         = "over_refund"
	RuleReferentialGaps    = "referential_gaps"
	RuleZScoreSessions     = "zscore_sessions"
	RuleZScoreNetRevenue   = "zscore_net_revenue"
	RuleZScoreRejectRate   = "zscore_reject_rate"
)

// Derived tables the rules target.
const (
	TableFunnelMetrics   = "funnel_metrics"
	TableRetentionMatrix = "retention_matrix"
	TableRevenueMetrics  = "revenue_metrics"
	TableRawEvents       = "raw_events"
)

// Trailing history keys for the statistical rules.
const (
	MetricSessionCount = "session_count"
	MetricNetRevenue   = "net_revenue"
	MetricRejectRate   = "reject_rate"
)

// Statistical rules need at least this many trailing points before a
// z-score means anything.
const minHistoryPoints = 5

type outcome struct {
	rule      string
	table     string
	severity  string
	kind      string
	metric    float64
	threshold float64
	passed    bool
	details   string
}

func passFail(violations int, details string) (bool, string) {
	if violations == 0 {
		return true, ""
	}
	return false, details
}

// evaluateStructural runs the schema and invariant checks over the
// partition's derived tables. Violations here mean the computation itself
// is wrong, so most carry P0.
func evaluateStructural(in *Input) []outcome {
	outcomes := make([]outcome, 0)

	outcomes = append(outcomes, checkFunnelNotNull(in), checkFunnelUnique(in),
		checkSegmentEnum(in), checkFunnelMonotonic(in), checkFunnelRateRange(in),
		checkRetentionUnique(in), checkRetentionRateRange(in),
		checkReturnedWithinSize(in), checkNetIdentity(in),
		checkDedupConsistency(in), checkRejectRate(in))

	return outcomes
}

func checkFunnelNotNull(in *Input) outcome {
	violations := 0
	for i := range in.Funnel {
		if in.Funnel[i].Date == "" || in.Funnel[i].Segment == "" {
			violations++
		}
	}
	passed, details := passFail(violations,
		fmt.Sprintf("%d funnel rows with empty date or segment", violations))
	return outcome{rule: RuleNotNullColumns, table: TableFunnelMetrics,
		severity: model.SeverityP0, kind: model.AnomalySchemaViolation,
		metric: float64(violations), passed: passed, details: details}
}

func checkFunnelUnique(in *Input) outcome {
	seen := make(map[string]bool)
	violations := 0
	for i := range in.Funnel {
		key := in.Funnel[i].Date + ":" + in.Funnel[i].Segment
		if seen[key] {
			violations++
		}
		seen[key] = true
	}
	passed, details := passFail(violations,
		fmt.Sprintf("%d duplicate (date, segment) funnel rows", violations))
	return outcome{rule: RulePrimaryKeyUnique, table: TableFunnelMetrics,
		severity: model.SeverityP0, kind: model.AnomalySchemaViolation,
		metric: float64(violations), passed: passed, details: details}
}

func checkSegmentEnum(in *Input) outcome {
	violations := 0
	for i := range in.Funnel {
		segment := in.Funnel[i].Segment
		if segment != model.SegmentAll && !U.ContainsStringInArray(model.ValidSegments, segment) {
			violations++
		}
	}
	passed, details := passFail(violations,
		fmt.Sprintf("%d funnel rows outside the segment enum", violations))
	return outcome{rule: RuleSegmentEnum, table: TableFunnelMetrics,
		severity: model.SeverityP1, kind: model.AnomalySchemaViolation,
		metric: float64(violations), passed: passed, details: details}
}

func checkFunnelMonotonic(in *Input) outcome {
	violations := 0
	for i := range in.Funnel {
		counts := in.Funnel[i].StepCounts
		for si := 1; si < len(counts); si++ {
			if counts[si] > counts[si-1] {
				violations++
			}
		}
	}
	passed, details := passFail(violations,
		fmt.Sprintf("%d increasing step transitions", violations))
	return outcome{rule: RuleFunnelMonotonic, table: TableFunnelMetrics,
		severity: model.SeverityP0, kind: model.AnomalySchemaViolation,
		metric: float64(violations), passed: passed, details: details}
}

func checkFunnelRateRange(in *Input) outcome {
	violations := 0
	for i := range in.Funnel {
		for _, rate := range in.Funnel[i].StepConversions {
			if rate < 0 || rate > 100 {
				violations++
			}
		}
		if in.Funnel[i].OverallConversion < 0 || in.Funnel[i].OverallConversion > 100 {
			violations++
		}
	}
	passed, details := passFail(violations,
		fmt.Sprintf("%d funnel rates outside [0, 100]", violations))
	return outcome{rule: RuleRateRange, table: TableFunnelMetrics,
		severity: model.SeverityP0, kind: model.AnomalySchemaViolation,
		metric: float64(violations), threshold: 100, passed: passed, details: details}
}

func checkRetentionUnique(in *Input) outcome {
	seen := make(map[string]bool)
	violations := 0
	for i := range in.Retention {
		key := fmt.Sprintf("%s:%d", in.Retention[i].CohortDate, in.Retention[i].DayOffset)
		if seen[key] {
			violations++
		}
		seen[key] = true
	}
	passed, details := passFail(violations,
		fmt.Sprintf("%d duplicate (cohort_date, day_offset) rows", violations))
	return outcome{rule: RulePrimaryKeyUnique, table: TableRetentionMatrix,
		severity: model.SeverityP0, kind: model.AnomalySchemaViolation,
		metric: float64(violations), passed: passed, details: details}
}

func checkRetentionRateRange(in *Input) outcome {
	violations := 0
	for i := range in.Retention {
		if in.Retention[i].RetentionRate < 0 || in.Retention[i].RetentionRate > 100 {
			violations++
		}
	}
	passed, details := passFail(violations,
		fmt.Sprintf("%d retention rates outside [0, 100]", violations))
	return outcome{rule: RuleRateRange, table: TableRetentionMatrix,
		severity: model.SeverityP0, kind: model.AnomalySchemaViolation,
		metric: float64(violations), threshold: 100, passed: passed, details: details}
}

func checkReturnedWithinSize(in *Input) outcome {
	violations := 0
	for i := range in.Retention {
		if in.Retention[i].ReturnedCount > in.Retention[i].CohortSize {
			violations++
		}
	}
	passed, details := passFail(violations,
		fmt.Sprintf("%d rows with returned_count above cohort_size", violations))
	return outcome{rule: RuleReturnedWithinSize, table: TableRetentionMatrix,
		severity: model.SeverityP0, kind: model.AnomalySchemaViolation,
		metric: float64(violations), passed: passed, details: details}
}

func checkNetIdentity(in *Input) outcome {
	violations := 0
	for i := range in.Transactions {
		if in.Transactions[i].Net != in.Transactions[i].Gross-in.Transactions[i].Refund {
			violations++
		}
		if in.Transactions[i].Net <= 0 {
			violations++
		}
	}
	passed, details := passFail(violations,
		fmt.Sprintf("%d transactions breaking net = gross - refund or net <= 0", violations))
	return outcome{rule: RuleNetIdentity, table: TableRevenueMetrics,
		severity: model.SeverityP0, kind: model.AnomalySchemaViolation,
		metric: float64(violations), passed: passed, details: details}
}

func checkDedupConsistency(in *Input) outcome {
	passed := in.DedupCount == in.DistinctKeys
	details := ""
	if !passed {
		details = fmt.Sprintf("%d deduplicated records for %d distinct logical keys",
			in.DedupCount, in.DistinctKeys)
	}
	return outcome{rule: RuleDedupConsistency, table: TableRawEvents,
		severity: model.SeverityP0, kind: model.AnomalyDuplicateRecord,
		metric: float64(in.DedupCount), threshold: float64(in.DistinctKeys),
		passed: passed, details: details}
}

func checkRejectRate(in *Input) outcome {
	rate := U.SafeDivide(float64(in.RejectCount), float64(in.RawCount))
	passed := rate <= in.RejectRateThreshold
	details := ""
	if !passed {
		details = fmt.Sprintf("%d of %d raw records rejected as schema violations",
			in.RejectCount, in.RawCount)
	}
	return outcome{rule: RuleRejectRate, table: TableRawEvents,
		severity: model.SeverityP0, kind: model.AnomalySchemaViolation,
		metric: rate, threshold: in.RejectRateThreshold, passed: passed, details: details}
}

// evaluateStatistical compares the day's volumes against the trailing
// history and flags the netting anomalies. These indicate suspicious data
// rather than broken computation, so none of them block publication.
func evaluateStatistical(in *Input) []outcome {
	outcomes := make([]outcome, 0)

	outcomes = append(outcomes,
		zscoreOutcome(in, RuleZScoreSessions, TableFunnelMetrics,
			MetricSessionCount, float64(in.SessionCount)),
		zscoreOutcome(in, RuleZScoreNetRevenue, TableRevenueMetrics,
			MetricNetRevenue, netRevenue(in)),
		zscoreOutcome(in, RuleZScoreRejectRate, TableRawEvents,
			MetricRejectRate, U.SafeDivide(float64(in.RejectCount), float64(in.RawCount))))

	overPassed, overDetails := passFail(in.OverRefunds,
		fmt.Sprintf("%d transactions refunded beyond gross", in.OverRefunds))
	outcomes = append(outcomes, outcome{rule: RuleOverRefund,
		table: TableRevenueMetrics, severity: model.SeverityP1,
		kind:   model.AnomalyStatisticalAnomaly,
		metric: float64(in.OverRefunds), passed: overPassed, details: overDetails})

	gaps := in.OrphanRefunds + in.UnknownActors
	gapsPassed, gapsDetails := passFail(gaps,
		fmt.Sprintf("%d orphan refunds, %d unknown actor transactions",
			in.OrphanRefunds, in.UnknownActors))
	outcomes = append(outcomes, outcome{rule: RuleReferentialGaps,
		table: TableRevenueMetrics, severity: model.SeverityP2,
		kind:   model.AnomalyReferentialGap,
		metric: float64(gaps), passed: gapsPassed, details: gapsDetails})

	return outcomes
}

func netRevenue(in *Input) float64 {
	if in.Revenue == nil {
		return 0
	}
	return float64(in.Revenue.Net)
}

func zscoreOutcome(in *Input, rule, table, metricName string, value float64) outcome {
	history := in.Trailing[metricName]
	result := outcome{rule: rule, table: table, severity: model.SeverityP1,
		kind:   model.AnomalyStatisticalAnomaly,
		metric: value, threshold: in.ZScoreThreshold, passed: true}

	if len(history) < minHistoryPoints {
		result.details = fmt.Sprintf("skipped, %d trailing points", len(history))
		return result
	}

	mean, meanErr := stats.Mean(history)
	stddev, stddevErr := stats.StandardDeviation(history)
	if meanErr != nil || stddevErr != nil {
		result.details = "skipped, degenerate history"
		return result
	}

	// A constant history makes any deviation anomalous.
	if stddev == 0 {
		if value != mean {
			result.passed = false
			result.details = fmt.Sprintf("%s=%.2f deviates from constant trailing value %.2f",
				metricName, value, mean)
		}
		return result
	}

	z := (value - mean) / stddev
	result.metric = U.FloatRoundOffWithPrecision(z, 2)
	if z < 0 {
		z = -z
	}
	if z > in.ZScoreThreshold {
		result.passed = false
		result.details = fmt.Sprintf("%s=%.2f deviates %.2f sigma from trailing mean",
			metricName, value, z)
	}
	return result
}
