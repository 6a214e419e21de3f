package postgres

import (
	"encoding/json"
	"net/http"

	"github.com/jinzhu/gorm/dialects/postgres"
	log "github.com/sirupsen/logrus"

	C "daymart/config"
	"daymart/model/model"
)

// funnel_metrics stores the variable-length step vectors as jsonb.
type funnelMetricRow struct {
	Date              string         `gorm:"primary_key:true"`
	Segment           string         `gorm:"primary_key:true"`
	StepNames         postgres.Jsonb `gorm:"column:step_names"`
	StepCounts        postgres.Jsonb `gorm:"column:step_counts"`
	StepConversions   postgres.Jsonb `gorm:"column:step_conversions"`
	OverallConversion float64        `gorm:"column:overall_conversion"`
	BiggestDropStep   string         `gorm:"column:biggest_drop_step"`
	BiggestDropCount  int64          `gorm:"column:biggest_drop_count"`
}

func (funnelMetricRow) TableName() string {
	return "funnel_metrics"
}

func toFunnelMetricRow(metric *model.FunnelMetric) (*funnelMetricRow, error) {
	names, err := json.Marshal(metric.StepNames)
	if err != nil {
		return nil, err
	}
	counts, err := json.Marshal(metric.StepCounts)
	if err != nil {
		return nil, err
	}
	conversions, err := json.Marshal(metric.StepConversions)
	if err != nil {
		return nil, err
	}

	return &funnelMetricRow{
		Date:              metric.Date,
		Segment:           metric.Segment,
		StepNames:         postgres.Jsonb{RawMessage: names},
		StepCounts:        postgres.Jsonb{RawMessage: counts},
		StepConversions:   postgres.Jsonb{RawMessage: conversions},
		OverallConversion: metric.OverallConversion,
		BiggestDropStep:   metric.BiggestDropStep,
		BiggestDropCount:  metric.BiggestDropCount,
	}, nil
}

func fromFunnelMetricRow(row *funnelMetricRow) (*model.FunnelMetric, error) {
	metric := &model.FunnelMetric{
		Date:              row.Date,
		Segment:           row.Segment,
		OverallConversion: row.OverallConversion,
		BiggestDropStep:   row.BiggestDropStep,
		BiggestDropCount:  row.BiggestDropCount,
	}

	if err := json.Unmarshal(row.StepNames.RawMessage, &metric.StepNames); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(row.StepCounts.RawMessage, &metric.StepCounts); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(row.StepConversions.RawMessage, &metric.StepConversions); err != nil {
		return nil, err
	}
	return metric, nil
}

// ReplaceFunnelMetrics swaps the full funnel partition for the date.
func (store *Postgres) ReplaceFunnelMetrics(date string, metrics []model.FunnelMetric) int {
	logCtx := log.WithField("date", date)
	db := C.GetServices().Db

	tx := db.Begin()
	if err := tx.Where("date = ?", date).Delete(&funnelMetricRow{}).Error; err != nil {
		tx.Rollback()
		logCtx.WithError(err).Error("Failed to delete funnel metrics partition.")
		return http.StatusInternalServerError
	}

	for i := range metrics {
		row, err := toFunnelMetricRow(&metrics[i])
		if err != nil {
			tx.Rollback()
			logCtx.WithError(err).Error("Failed to encode funnel metric row.")
			return http.StatusInternalServerError
		}
		if err := tx.Create(row).Error; err != nil {
			tx.Rollback()
			logCtx.WithError(err).Error("Insert into funnel_metrics table failed.")
			return http.StatusInternalServerError
		}
	}

	if err := tx.Commit().Error; err != nil {
		logCtx.WithError(err).Error("Failed to commit funnel metrics partition.")
		return http.StatusInternalServerError
	}
	return http.StatusAccepted
}

func (store *Postgres) getFunnelMetricRows(query string, args ...interface{}) ([]model.FunnelMetric, int) {
	db := C.GetServices().Db

	var rows []funnelMetricRow
	if err := db.Where(query, args...).Order("date, segment").Find(&rows).Error; err != nil {
		log.WithError(err).Error("Failed to get funnel metrics.")
		return nil, http.StatusInternalServerError
	}
	if len(rows) == 0 {
		return nil, http.StatusNotFound
	}

	metrics := make([]model.FunnelMetric, 0, len(rows))
	for i := range rows {
		metric, err := fromFunnelMetricRow(&rows[i])
		if err != nil {
			log.WithError(err).Error("Failed to decode funnel metric row.")
			return nil, http.StatusInternalServerError
		}
		metrics = append(metrics, *metric)
	}
	return metrics, http.StatusFound
}

func (store *Postgres) GetFunnelMetricsForDate(date string) ([]model.FunnelMetric, int) {
	return store.getFunnelMetricRows("date = ?", date)
}

func (store *Postgres) GetFunnelMetricsBetween(from, to string) ([]model.FunnelMetric, int) {
	return store.getFunnelMetricRows("date >= ? AND date <= ?", from, to)
}
