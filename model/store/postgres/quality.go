package postgres

import (
	"net/http"

	"github.com/jinzhu/gorm"
	log "github.com/sirupsen/logrus"

	C "daymart/config"
	"daymart/model/model"
)

func (store *Postgres) CreateQualityRun(run *model.QualityRun) int {
	db := C.GetServices().Db

	if err := db.Create(run).Error; err != nil {
		log.WithError(err).Error("Insert into quality_runs table failed.")
		return http.StatusInternalServerError
	}
	return http.StatusCreated
}

func (store *Postgres) UpdateQualityRun(run *model.QualityRun) int {
	db := C.GetServices().Db

	if err := db.Save(run).Error; err != nil {
		log.WithError(err).WithField("run_id", run.ID).
			Error("Update on quality_runs table failed.")
		return http.StatusInternalServerError
	}
	return http.StatusAccepted
}

func (store *Postgres) GetLatestQualityRunForDate(date string) (*model.QualityRun, int) {
	db := C.GetServices().Db

	var run model.QualityRun
	if err := db.Where("date = ?", date).Order("started_at DESC").
		First(&run).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, http.StatusNotFound
		}
		log.WithError(err).Error("Failed to get latest quality run.")
		return nil, http.StatusInternalServerError
	}
	return &run, http.StatusFound
}

func (store *Postgres) CreateQualityCheckResults(results []model.QualityCheckResult) int {
	db := C.GetServices().Db

	for i := range results {
		if err := db.Create(&results[i]).Error; err != nil {
			log.WithError(err).WithField("rule", results[i].RuleName).
				Error("Insert into quality_check_results table failed.")
			return http.StatusInternalServerError
		}
	}
	return http.StatusCreated
}

func (store *Postgres) GetQualityCheckResultsForRun(runID string) ([]model.QualityCheckResult, int) {
	db := C.GetServices().Db

	var results []model.QualityCheckResult
	if err := db.Where("run_id = ?", runID).
		Order("rule_name").Find(&results).Error; err != nil {
		log.WithError(err).Error("Failed to get quality check results.")
		return nil, http.StatusInternalServerError
	}
	if len(results) == 0 {
		return nil, http.StatusNotFound
	}
	return results, http.StatusFound
}
