package pipeline

import (
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	C "daymart/config"
	"daymart/model/model"
	"daymart/task/quality"
	U "daymart/util"
)

// RunGateForDate re-runs the quality gate over the committed derived
// tables of a published partition, without recomputing them. Rules that
// need the in-flight stage outputs (netted transactions, dedup counts)
// see the partition as consistent; the structural and statistical rules
// check what consumers actually read.
func RunGateForDate(store model.Model, conf *C.PipelineConf, date string) (*quality.Verdict, error) {
	if !U.IsValidDate(date) {
		return nil, errors.New("invalid date")
	}

	funnelMetrics, errCode := store.GetFunnelMetricsForDate(date)
	if errCode != http.StatusFound && errCode != http.StatusNotFound {
		return nil, errors.Errorf("get funnel metrics failed with %d", errCode)
	}

	rangeStart, err := U.DateBeforeDays(date, conf.RetentionMaxOffset)
	if err != nil {
		return nil, err
	}
	cohortDates, err := U.DateRange(rangeStart, date)
	if err != nil {
		return nil, err
	}
	retention, errCode := store.GetRetentionMatrixForCohorts(cohortDates)
	if errCode != http.StatusFound && errCode != http.StatusNotFound {
		return nil, errors.Errorf("get retention matrix failed with %d", errCode)
	}

	revenueMetrics, errCode := store.GetRevenueMetricsBetween(date, date)
	if errCode != http.StatusFound && errCode != http.StatusNotFound {
		return nil, errors.Errorf("get revenue metrics failed with %d", errCode)
	}
	var revenueMetric *model.RevenueMetric
	if len(revenueMetrics) > 0 {
		revenueMetric = &revenueMetrics[0]
	}

	in := &quality.Input{
		Date:                date,
		Funnel:              funnelMetrics,
		Retention:           retention,
		Revenue:             revenueMetric,
		ZScoreThreshold:     conf.Quality.ZScoreThreshold,
		RejectRateThreshold: conf.Quality.RejectRateThreshold,
	}

	runs, errCode := store.GetPipelineRunsBetween(date, date)
	if errCode != http.StatusFound && errCode != http.StatusNotFound {
		return nil, errors.Errorf("get pipeline runs failed with %d", errCode)
	}
	if len(runs) > 0 {
		in.RawCount = runs[0].RawCount
		in.RejectCount = runs[0].RejectCount
		in.SessionCount = runs[0].SessionCount
	}

	in.Trailing, err = trailingHistories(store, date, conf.Quality.TrailingDays)
	if err != nil {
		return nil, err
	}

	verdict := quality.Run(in)

	if errCode := store.CreateQualityRun(verdict.Run); errCode != http.StatusCreated {
		log.WithFields(log.Fields{"date": date, "err_code": errCode}).
			Error("Failed to persist quality run.")
	}
	if errCode := store.CreateQualityCheckResults(verdict.Results); errCode != http.StatusCreated {
		log.WithFields(log.Fields{"date": date, "err_code": errCode}).
			Error("Failed to persist quality check results.")
	}

	return verdict, nil
}
