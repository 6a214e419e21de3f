package pipeline

import (
	"net/http"
	"sort"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	C "daymart/config"
	"daymart/metrics"
	"daymart/model/model"
	"daymart/task/cohort"
	"daymart/task/dedup"
	"daymart/task/funnel"
	"daymart/task/normalize"
	"daymart/task/quality"
	"daymart/task/revenue"
	"daymart/task/sessionagg"
	U "daymart/util"
)

// Status is the per-date outcome reported by the runner.
type Status struct {
	Date           string `json:"date"`
	RawCount       int    `json:"raw_count"`
	RejectCount    int    `json:"reject_count"`
	DuplicateCount int    `json:"duplicate_count"`
	SessionCount   int    `json:"session_count"`
	QualityState   string `json:"quality_state,omitempty"`
	MaxSeverity    string `json:"max_severity,omitempty"`
	Published      bool   `json:"published"`
	Error          string `json:"error,omitempty"`
}

// RunForDate computes one date partition end to end: normalize, dedup,
// session aggregation, funnel, cohort, revenue netting, then the quality
// gate. Derived tables are replaced only after the gate clears the
// partition; a blocked or failed window leaves the previously committed
// version in place. The date is always an explicit parameter.
func RunForDate(store model.Model, conf *C.PipelineConf, date string) *Status {
	startedAt := time.Now()
	status := &Status{Date: date}
	logCtx := log.WithField("date", date)

	if !U.IsValidDate(date) {
		return failStatus(status, errors.New("invalid date"))
	}

	var rawRecords []model.RawRecord
	err := runStageWithRetry(logCtx, "fetch_raw", conf, func() error {
		var errCode int
		rawRecords, errCode = store.GetRawRecordsForDate(date)
		if errCode != http.StatusFound && errCode != http.StatusNotFound {
			return errors.Errorf("get raw records failed with %d", errCode)
		}
		return nil
	})
	if err != nil {
		return failStatus(status, err)
	}
	status.RawCount = len(rawRecords)
	metrics.CountInt(metrics.IncrRecordsProcessed, int64(len(rawRecords)))

	normalized := normalize.Run(rawRecords, date)
	status.RejectCount = normalized.RejectCount()
	metrics.CountInt(metrics.IncrRecordsRejected, int64(status.RejectCount))
	metrics.CountInt(metrics.IncrRecordsOutOfWindow, int64(normalized.OutOfWindow))

	deduped := dedup.Run(normalized.Records)
	status.DuplicateCount = deduped.Duplicates
	metrics.CountInt(metrics.IncrRecordsDuplicate, int64(deduped.Duplicates))

	sessions, sessionStatus := sessionagg.Run(deduped.Records, conf.FunnelSteps)
	status.SessionCount = sessionStatus.NoOfSessions
	metrics.CountInt(metrics.IncrSessionsAggregated, int64(status.SessionCount))

	funnelMetrics := funnel.Compute(date, sessions, conf.FunnelSteps)

	var cohortOut *cohort.Output
	err = runStageWithRetry(logCtx, "cohort", conf, func() error {
		var stageErr error
		cohortOut, stageErr = computeCohorts(store, conf, date, deduped.Records)
		return stageErr
	})
	if err != nil {
		return failStatus(status, err)
	}

	revenueOut := revenue.Compute(date, deduped.Records)
	metrics.CountInt(metrics.IncrTransactionsNetted, revenueOut.Metric.TransactionCount)
	metrics.CountInt(metrics.IncrTransactionsAudit, int64(len(revenueOut.Audit)))

	var trailing map[string][]float64
	err = runStageWithRetry(logCtx, "trailing_history", conf, func() error {
		var stageErr error
		trailing, stageErr = trailingHistories(store, date, conf.Quality.TrailingDays)
		return stageErr
	})
	if err != nil {
		return failStatus(status, err)
	}

	verdict := quality.Run(&quality.Input{
		Date:                date,
		Funnel:              funnelMetrics,
		Retention:           cohortOut.Internal,
		Revenue:             revenueOut.Metric,
		Transactions:        revenueOut.Transactions,
		RawCount:            status.RawCount,
		RejectCount:         status.RejectCount,
		DedupCount:          len(deduped.Records),
		DistinctKeys:        deduped.DistinctKeys,
		SessionCount:        status.SessionCount,
		OverRefunds:         revenueOut.OverRefunds,
		OrphanRefunds:       revenueOut.OrphanRefunds,
		UnknownActors:       revenueOut.UnknownActors,
		Trailing:            trailing,
		ZScoreThreshold:     conf.Quality.ZScoreThreshold,
		RejectRateThreshold: conf.Quality.RejectRateThreshold,
	})
	status.QualityState = verdict.Run.State
	status.MaxSeverity = verdict.Run.MaxSeverity
	metrics.CountInt(metrics.IncrQualityRulesFailed, int64(verdict.Run.FailedRules))

	if errCode := store.CreateQualityRun(verdict.Run); errCode != http.StatusCreated {
		logCtx.WithField("err_code", errCode).Error("Failed to persist quality run.")
	}
	if errCode := store.CreateQualityCheckResults(verdict.Results); errCode != http.StatusCreated {
		logCtx.WithField("err_code", errCode).Error("Failed to persist quality check results.")
	}
	if verdict.Alert != nil {
		logCtx.WithField("severity", verdict.Alert.Severity).
			Warn(verdict.Alert.String())
	}

	if !verdict.Publish {
		metrics.Increment(metrics.IncrPartitionsBlocked)
		logCtx.WithField("max_severity", status.MaxSeverity).
			Warn("Publication blocked, prior committed version retained.")
		return status
	}

	err = runStageWithRetry(logCtx, "publish", conf, func() error {
		return publish(store, date, funnelMetrics, cohortOut, revenueOut, status)
	})
	if err != nil {
		// The swap did not complete; the partition must not be consumed.
		verdict.Run.SafeToConsume = false
		if errCode := store.UpdateQualityRun(verdict.Run); errCode != http.StatusAccepted {
			logCtx.WithField("err_code", errCode).Error("Failed to update quality run.")
		}
		return failStatus(status, err)
	}

	status.Published = true
	metrics.Increment(metrics.IncrPartitionsPublished)
	metrics.RecordLatency(metrics.LatencyWindowRun,
		float64(time.Since(startedAt).Milliseconds()))
	logCtx.WithFields(log.Fields{"sessions": status.SessionCount,
		"max_severity": status.MaxSeverity}).Info("Partition published.")
	return status
}

// Run processes the date partitions of a backfill sequentially in
// ascending date order. Funnel and revenue partitions are independent, but
// the cohort stage of a date reads the assignments and activity committed
// by the dates before it, so history has to be replayed in order.
func Run(store model.Model, conf *C.PipelineConf, dates []string) map[string]*Status {
	ordered := make([]string, len(dates))
	copy(ordered, dates)
	sort.Strings(ordered)

	statuses := make(map[string]*Status, len(ordered))
	for _, date := range ordered {
		statuses[date] = RunForDate(store, conf, date)
	}
	return statuses
}

func computeCohorts(store model.Model, conf *C.PipelineConf, date string,
	records []model.DedupRecord) (*cohort.Output, error) {

	rangeStart, err := U.DateBeforeDays(date, conf.RetentionMaxOffset)
	if err != nil {
		return nil, err
	}

	assignments, errCode := store.GetCohortAssignmentsBetween(rangeStart, date)
	if errCode != http.StatusFound && errCode != http.StatusNotFound {
		return nil, errors.Errorf("get cohort assignments failed with %d", errCode)
	}
	activity, errCode := store.GetActorActivityBetween(rangeStart, date)
	if errCode != http.StatusFound && errCode != http.StatusNotFound {
		return nil, errors.Errorf("get actor activity failed with %d", errCode)
	}

	return cohort.Compute(&cohort.Input{
		Date:             date,
		Records:          records,
		PriorAssignments: assignments,
		PriorActivity:    activity,
		QualifyingEvent:  conf.CohortQualifyingEvent,
		MinCohortSize:    conf.MinCohortSize,
		MaxOffset:        conf.RetentionMaxOffset,
	})
}

// trailingHistories builds the statistical baselines from prior committed
// partitions. The window date itself is excluded.
func trailingHistories(store model.Model, date string, trailingDays int) (map[string][]float64, error) {
	from, err := U.DateBeforeDays(date, trailingDays)
	if err != nil {
		return nil, err
	}
	to, err := U.DateBeforeDays(date, 1)
	if err != nil {
		return nil, err
	}

	trailing := map[string][]float64{
		quality.MetricSessionCount: {},
		quality.MetricNetRevenue:   {},
		quality.MetricRejectRate:   {},
	}

	runs, errCode := store.GetPipelineRunsBetween(from, to)
	if errCode != http.StatusFound && errCode != http.StatusNotFound {
		return nil, errors.Errorf("get pipeline runs failed with %d", errCode)
	}
	for i := range runs {
		trailing[quality.MetricSessionCount] = append(
			trailing[quality.MetricSessionCount], float64(runs[i].SessionCount))
		trailing[quality.MetricRejectRate] = append(
			trailing[quality.MetricRejectRate], runs[i].RejectRate)
	}

	revenueMetrics, errCode := store.GetRevenueMetricsBetween(from, to)
	if errCode != http.StatusFound && errCode != http.StatusNotFound {
		return nil, errors.Errorf("get revenue metrics failed with %d", errCode)
	}
	for i := range revenueMetrics {
		trailing[quality.MetricNetRevenue] = append(
			trailing[quality.MetricNetRevenue], float64(revenueMetrics[i].Net))
	}

	return trailing, nil
}

// publish swaps every derived partition of the date. Compute fully, then
// replace.
func publish(store model.Model, date string, funnelMetrics []model.FunnelMetric,
	cohortOut *cohort.Output, revenueOut *revenue.Output, status *Status) error {

	if errCode := store.ReplaceFunnelMetrics(date, funnelMetrics); errCode != http.StatusAccepted {
		return errors.Errorf("replace funnel metrics failed with %d", errCode)
	}
	if errCode := store.UpsertCohortAssignments(cohortOut.Assignments); errCode != http.StatusAccepted {
		return errors.Errorf("upsert cohort assignments failed with %d", errCode)
	}
	if errCode := store.ReplaceActorActivity(date, cohortOut.Activity); errCode != http.StatusAccepted {
		return errors.Errorf("replace actor activity failed with %d", errCode)
	}
	if errCode := store.ReplaceRetentionMatrix(cohortOut.CohortDates, cohortOut.Published); errCode != http.StatusAccepted {
		return errors.Errorf("replace retention matrix failed with %d", errCode)
	}
	if errCode := store.ReplaceRevenueMetric(date, revenueOut.Metric); errCode != http.StatusAccepted {
		return errors.Errorf("replace revenue metric failed with %d", errCode)
	}
	if errCode := store.ReplaceRevenueAudit(date, revenueOut.Audit); errCode != http.StatusAccepted {
		return errors.Errorf("replace revenue audit failed with %d", errCode)
	}

	run := &model.PipelineRun{
		Date:           date,
		RawCount:       status.RawCount,
		RejectCount:    status.RejectCount,
		RejectRate:     U.SafeDivide(float64(status.RejectCount), float64(status.RawCount)),
		DuplicateCount: status.DuplicateCount,
		SessionCount:   status.SessionCount,
		Published:      true,
		CompletedAt:    U.TimeNowUnix(),
	}
	if errCode := store.ReplacePipelineRun(run); errCode != http.StatusAccepted {
		return errors.Errorf("replace pipeline run failed with %d", errCode)
	}
	return nil
}

// runStageWithRetry retries a failed stage with doubling backoff before
// giving up on the partition.
func runStageWithRetry(logCtx *log.Entry, stage string, conf *C.PipelineConf, fn func() error) error {
	backoff := time.Duration(conf.RetryBackoffSeconds) * time.Second
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt >= conf.StageRetries {
			return errors.Wrapf(err, "stage %s failed after %d attempts", stage, attempt+1)
		}

		metrics.Increment(metrics.IncrStageRetries)
		logCtx.WithError(err).WithFields(log.Fields{"stage": stage,
			"attempt": attempt + 1}).Warn("Stage failed. Retrying.")
		time.Sleep(backoff)
		backoff *= 2
	}
}

func failStatus(status *Status, err error) *Status {
	status.Error = err.Error()
	metrics.Increment(metrics.IncrPartitionsFailed)
	log.WithField("date", status.Date).WithError(err).Error("Pipeline run failed.")
	return status
}
