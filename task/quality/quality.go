package quality

import (
	log "github.com/sirupsen/logrus"

	"daymart/model/model"
	U "daymart/util"
)

// Input is the gate's view of one computed partition before publication,
// plus the trailing history needed by the statistical rules. The gate never
// reads the store itself.
type Input struct {
	Date string

	Funnel []model.FunnelMetric
	// Full retention matrix, small cohorts included.
	Retention    []model.RetentionRecord
	Revenue      *model.RevenueMetric
	Transactions []model.TransactionRecord

	RawCount     int
	RejectCount  int
	DedupCount   int
	DistinctKeys int
	SessionCount int

	OverRefunds   int
	OrphanRefunds int
	UnknownActors int

	// Daily values of the trailing window, keyed by metric name.
	Trailing map[string][]float64

	ZScoreThreshold     float64
	RejectRateThreshold float64
}

// Verdict is the outcome of one gate run. Publish is false only on P0.
type Verdict struct {
	Run     *model.QualityRun
	Results []model.QualityCheckResult
	// Set when the run failed at P0 or P1, nil otherwise.
	Alert   *model.AlertPayload
	Publish bool
}

// Run executes every rule against the partition and walks the run through
// its state machine. There are no retries inside a run; a failed rule stays
// failed until the window is recomputed.
func Run(in *Input) *Verdict {
	run := &model.QualityRun{
		ID:        U.GetUUID(),
		Date:      in.Date,
		State:     model.QualityRunStatePending,
		StartedAt: U.TimeNowUnix(),
	}
	run.State = model.QualityRunStateRunning

	outcomes := append(evaluateStructural(in), evaluateStatistical(in)...)

	verdict := &Verdict{Run: run,
		Results: make([]model.QualityCheckResult, 0, len(outcomes))}

	var worst *model.QualityCheckResult
	for _, o := range outcomes {
		result := model.QualityCheckResult{
			RunID:       run.ID,
			RuleName:    o.rule,
			TargetTable: o.table,
			Severity:    o.severity,
			AnomalyKind: o.kind,
			MetricValue: o.metric,
			Threshold:   o.threshold,
			Passed:      o.passed,
			Details:     o.details,
			CheckedAt:   run.StartedAt,
		}
		verdict.Results = append(verdict.Results, result)

		if o.passed {
			continue
		}
		run.FailedRules++
		run.MaxSeverity = model.MaxSeverity(run.MaxSeverity, o.severity)
		if worst == nil || model.SeverityRank(o.severity) > model.SeverityRank(worst.Severity) {
			worst = &verdict.Results[len(verdict.Results)-1]
		}
	}
	run.TotalRules = len(outcomes)

	if run.FailedRules == 0 {
		run.State = model.QualityRunStatePassed
	} else {
		run.State = model.QualityRunStateFailed
	}

	verdict.Publish = run.MaxSeverity != model.SeverityP0
	run.SafeToConsume = verdict.Publish

	// P2-only failures go to the periodic summary, not an alert.
	if worst != nil && model.SeverityRank(run.MaxSeverity) >= model.SeverityRank(model.SeverityP1) {
		verdict.Alert = buildAlert(run, worst)
	}

	run.State = model.QualityRunStateReported
	run.CompletedAt = U.TimeNowUnix()

	log.WithFields(log.Fields{
		"date":         in.Date,
		"run_id":       run.ID,
		"state":        run.State,
		"failed_rules": run.FailedRules,
		"total_rules":  run.TotalRules,
		"max_severity": run.MaxSeverity,
		"publish":      verdict.Publish,
	}).Info("Quality gate completed.")

	return verdict
}
