package postgres

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	C "daymart/config"
	"daymart/model/model"
)

// ReplacePipelineRun swaps the bookkeeping row of the date partition.
func (store *Postgres) ReplacePipelineRun(run *model.PipelineRun) int {
	logCtx := log.WithField("date", run.Date)
	db := C.GetServices().Db

	tx := db.Begin()
	if err := tx.Where("date = ?", run.Date).Delete(&model.PipelineRun{}).Error; err != nil {
		tx.Rollback()
		logCtx.WithError(err).Error("Failed to delete pipeline run row.")
		return http.StatusInternalServerError
	}
	if err := tx.Create(run).Error; err != nil {
		tx.Rollback()
		logCtx.WithError(err).Error("Insert into pipeline_runs table failed.")
		return http.StatusInternalServerError
	}
	if err := tx.Commit().Error; err != nil {
		logCtx.WithError(err).Error("Failed to commit pipeline run row.")
		return http.StatusInternalServerError
	}
	return http.StatusAccepted
}

func (store *Postgres) GetPipelineRunsBetween(from, to string) ([]model.PipelineRun, int) {
	db := C.GetServices().Db

	var runs []model.PipelineRun
	if err := db.Where("date >= ? AND date <= ?", from, to).
		Order("date").Find(&runs).Error; err != nil {
		log.WithError(err).Error("Failed to get pipeline runs.")
		return nil, http.StatusInternalServerError
	}
	if len(runs) == 0 {
		return nil, http.StatusNotFound
	}
	return runs, http.StatusFound
}
