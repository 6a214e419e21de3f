package postgres

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	C "daymart/config"
	"daymart/model/model"
	U "daymart/util"
)

// GetRawRecordsForDate returns the immutable raw snapshot of one date
// partition in deterministic (ingested_at, source_offset, id) order.
func (store *Postgres) GetRawRecordsForDate(date string) ([]model.RawRecord, int) {
	logCtx := log.WithField("date", date)

	from, to, err := U.GetDayBoundsZ(date)
	if err != nil {
		logCtx.WithError(err).Error("Invalid partition date on get raw records.")
		return nil, http.StatusBadRequest
	}

	db := C.GetServices().Db

	var records []model.RawRecord
	if err := db.Where("timestamp >= ? AND timestamp <= ?", from, to).
		Order("ingested_at, source_offset, id").
		Find(&records).Error; err != nil {
		logCtx.WithError(err).Error("Failed to get raw records for date.")
		return nil, http.StatusInternalServerError
	}

	if len(records) == 0 {
		return nil, http.StatusNotFound
	}
	return records, http.StatusFound
}

func (store *Postgres) CreateRawRecords(records []model.RawRecord) int {
	db := C.GetServices().Db

	for i := range records {
		if err := db.Create(&records[i]).Error; err != nil {
			log.WithError(err).WithField("id", records[i].ID).
				Error("Insert into raw_events table failed.")
			return http.StatusInternalServerError
		}
	}
	return http.StatusCreated
}
