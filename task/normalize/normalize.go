package normalize

import (
	log "github.com/sirupsen/logrus"

	"daymart/model/model"
	U "daymart/util"
)

// Reject reasons counted as schema violations. Rejected records are
// excluded from every downstream stage, never silently retried as valid.
const (
	RejectMissingID            = "missing_id"
	RejectMissingActorID       = "missing_actor_id"
	RejectMissingSessionID     = "missing_session_id"
	RejectMissingClientVersion = "missing_client_version"
	RejectMissingTimestamp     = "missing_timestamp"
	RejectInvalidName          = "invalid_name"
	RejectInvalidSegment       = "invalid_segment"
)

type Result struct {
	Records []model.NormalizedRecord `json:"-"`
	// Schema violation counts by reject reason.
	Rejects map[string]int `json:"rejects"`
	// Records dated outside the target partition. Informational.
	OutOfWindow int `json:"out_of_window"`
}

func (r *Result) RejectCount() int {
	count := 0
	for _, c := range r.Rejects {
		count += c
	}
	return count
}

// Run validates a raw batch against the schema and taxonomy contract and
// normalizes the survivors for the given date partition.
func Run(records []model.RawRecord, date string) *Result {
	result := &Result{
		Records: make([]model.NormalizedRecord, 0, len(records)),
		Rejects: make(map[string]int),
	}

	for i := range records {
		reason, ok := validate(&records[i])
		if !ok {
			result.Rejects[reason]++
			continue
		}

		eventDate := U.GetDateOnlyFromTimestampZ(records[i].Timestamp)
		if eventDate != date {
			result.OutOfWindow++
			continue
		}

		result.Records = append(result.Records, model.NormalizedRecord{
			RawRecord: records[i],
			Taxonomy:  model.ParseEventName(records[i].Name),
			EventDate: eventDate,
		})
	}

	log.WithFields(log.Fields{
		"date":          date,
		"no_of_records": len(records),
		"normalized":    len(result.Records),
		"rejected":      result.RejectCount(),
		"out_of_window": result.OutOfWindow,
	}).Info("Normalized raw records.")

	return result
}

func validate(record *model.RawRecord) (string, bool) {
	if record.ID == "" {
		return RejectMissingID, false
	}
	if record.Timestamp <= 0 {
		return RejectMissingTimestamp, false
	}
	if !model.IsValidEventName(record.Name) {
		return RejectInvalidName, false
	}
	if record.ActorID == "" {
		return RejectMissingActorID, false
	}
	if record.SessionID == "" {
		return RejectMissingSessionID, false
	}
	if !U.ContainsStringInArray(model.ValidSegments, record.Segment) {
		return RejectInvalidSegment, false
	}
	if record.ClientVersion == "" {
		return RejectMissingClientVersion, false
	}
	return "", true
}
