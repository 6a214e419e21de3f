package postgres

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	C "daymart/config"
	"daymart/model/model"
)

// UpsertCohortAssignments inserts assignments keeping the minimum cohort
// date per actor. LEAST on conflict makes replays idempotent.
func (store *Postgres) UpsertCohortAssignments(assignments []model.CohortAssignment) int {
	db := C.GetServices().Db

	for i := range assignments {
		err := db.Exec(`INSERT INTO cohort_assignments (actor_id, cohort_date)
			VALUES (?, ?)
			ON CONFLICT (actor_id)
			DO UPDATE SET cohort_date = LEAST(cohort_assignments.cohort_date, EXCLUDED.cohort_date)`,
			assignments[i].ActorID, assignments[i].CohortDate).Error
		if err != nil {
			log.WithError(err).WithField("actor_id", assignments[i].ActorID).
				Error("Upsert into cohort_assignments table failed.")
			return http.StatusInternalServerError
		}
	}
	return http.StatusAccepted
}

func (store *Postgres) GetCohortAssignmentsBetween(from, to string) ([]model.CohortAssignment, int) {
	db := C.GetServices().Db

	var assignments []model.CohortAssignment
	if err := db.Where("cohort_date >= ? AND cohort_date <= ?", from, to).
		Order("actor_id").Find(&assignments).Error; err != nil {
		log.WithError(err).Error("Failed to get cohort assignments.")
		return nil, http.StatusInternalServerError
	}
	if len(assignments) == 0 {
		return nil, http.StatusNotFound
	}
	return assignments, http.StatusFound
}

// ReplaceActorActivity swaps the activity partition for one date.
func (store *Postgres) ReplaceActorActivity(date string, activity []model.ActorActivity) int {
	logCtx := log.WithField("date", date)
	db := C.GetServices().Db

	tx := db.Begin()
	if err := tx.Where("activity_date = ?", date).Delete(&model.ActorActivity{}).Error; err != nil {
		tx.Rollback()
		logCtx.WithError(err).Error("Failed to delete actor activity partition.")
		return http.StatusInternalServerError
	}
	for i := range activity {
		if err := tx.Create(&activity[i]).Error; err != nil {
			tx.Rollback()
			logCtx.WithError(err).Error("Insert into actor_activity table failed.")
			return http.StatusInternalServerError
		}
	}
	if err := tx.Commit().Error; err != nil {
		logCtx.WithError(err).Error("Failed to commit actor activity partition.")
		return http.StatusInternalServerError
	}
	return http.StatusAccepted
}

func (store *Postgres) GetActorActivityBetween(from, to string) ([]model.ActorActivity, int) {
	db := C.GetServices().Db

	var activity []model.ActorActivity
	if err := db.Where("activity_date >= ? AND activity_date <= ?", from, to).
		Order("activity_date, actor_id").Find(&activity).Error; err != nil {
		log.WithError(err).Error("Failed to get actor activity.")
		return nil, http.StatusInternalServerError
	}
	if len(activity) == 0 {
		return nil, http.StatusNotFound
	}
	return activity, http.StatusFound
}

// ReplaceRetentionMatrix swaps all matrix rows of the given cohort dates.
func (store *Postgres) ReplaceRetentionMatrix(cohortDates []string, records []model.RetentionRecord) int {
	db := C.GetServices().Db

	tx := db.Begin()
	if err := tx.Where("cohort_date IN (?)", cohortDates).
		Delete(&model.RetentionRecord{}).Error; err != nil {
		tx.Rollback()
		log.WithError(err).Error("Failed to delete retention matrix partition.")
		return http.StatusInternalServerError
	}
	for i := range records {
		if err := tx.Create(&records[i]).Error; err != nil {
			tx.Rollback()
			log.WithError(err).Error("Insert into retention_matrix table failed.")
			return http.StatusInternalServerError
		}
	}
	if err := tx.Commit().Error; err != nil {
		log.WithError(err).Error("Failed to commit retention matrix partition.")
		return http.StatusInternalServerError
	}
	return http.StatusAccepted
}

func (store *Postgres) GetRetentionMatrixForCohorts(cohortDates []string) ([]model.RetentionRecord, int) {
	db := C.GetServices().Db

	var records []model.RetentionRecord
	if err := db.Where("cohort_date IN (?)", cohortDates).
		Order("cohort_date, day_offset").Find(&records).Error; err != nil {
		log.WithError(err).Error("Failed to get retention matrix.")
		return nil, http.StatusInternalServerError
	}
	if len(records) == 0 {
		return nil, http.StatusNotFound
	}
	return records, http.StatusFound
}
