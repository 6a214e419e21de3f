package postgres

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	C "daymart/config"
	"daymart/model/model"
)

// ReplaceRevenueMetric swaps the single revenue row of the date. A nil
// metric clears the partition (no monetary records in the window).
func (store *Postgres) ReplaceRevenueMetric(date string, metric *model.RevenueMetric) int {
	logCtx := log.WithField("date", date)
	db := C.GetServices().Db

	tx := db.Begin()
	if err := tx.Where("date = ?", date).Delete(&model.RevenueMetric{}).Error; err != nil {
		tx.Rollback()
		logCtx.WithError(err).Error("Failed to delete revenue metrics partition.")
		return http.StatusInternalServerError
	}
	if metric != nil {
		if err := tx.Create(metric).Error; err != nil {
			tx.Rollback()
			logCtx.WithError(err).Error("Insert into revenue_metrics table failed.")
			return http.StatusInternalServerError
		}
	}
	if err := tx.Commit().Error; err != nil {
		logCtx.WithError(err).Error("Failed to commit revenue metrics partition.")
		return http.StatusInternalServerError
	}
	return http.StatusAccepted
}

func (store *Postgres) GetRevenueMetricsBetween(from, to string) ([]model.RevenueMetric, int) {
	db := C.GetServices().Db

	var metrics []model.RevenueMetric
	if err := db.Where("date >= ? AND date <= ?", from, to).
		Order("date").Find(&metrics).Error; err != nil {
		log.WithError(err).Error("Failed to get revenue metrics.")
		return nil, http.StatusInternalServerError
	}
	if len(metrics) == 0 {
		return nil, http.StatusNotFound
	}
	return metrics, http.StatusFound
}

// ReplaceRevenueAudit swaps the audit sideline partition for the date.
func (store *Postgres) ReplaceRevenueAudit(date string, records []model.RevenueAuditRecord) int {
	logCtx := log.WithField("date", date)
	db := C.GetServices().Db

	tx := db.Begin()
	if err := tx.Where("date = ?", date).Delete(&model.RevenueAuditRecord{}).Error; err != nil {
		tx.Rollback()
		logCtx.WithError(err).Error("Failed to delete revenue audit partition.")
		return http.StatusInternalServerError
	}
	for i := range records {
		if err := tx.Create(&records[i]).Error; err != nil {
			tx.Rollback()
			logCtx.WithError(err).Error("Insert into revenue_audit table failed.")
			return http.StatusInternalServerError
		}
	}
	if err := tx.Commit().Error; err != nil {
		logCtx.WithError(err).Error("Failed to commit revenue audit partition.")
		return http.StatusInternalServerError
	}
	return http.StatusAccepted
}

func (store *Postgres) GetRevenueAuditForDate(date string) ([]model.RevenueAuditRecord, int) {
	db := C.GetServices().Db

	var records []model.RevenueAuditRecord
	if err := db.Where("date = ?", date).
		Order("transaction_id, reason").Find(&records).Error; err != nil {
		log.WithError(err).Error("Failed to get revenue audit records.")
		return nil, http.StatusInternalServerError
	}
	if len(records) == 0 {
		return nil, http.StatusNotFound
	}
	return records, http.StatusFound
}
