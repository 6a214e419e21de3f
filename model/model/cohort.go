package model

// Qualifying first-class activity event that opens an actor's cohort.
const DefaultCohortQualifyingEvent = "auth.login.success"

const (
	// Day offsets computed per cohort, 0..DefaultRetentionMaxOffset.
	DefaultRetentionMaxOffset = 30
	// Cohorts below this size are computed internally but never published.
	DefaultMinCohortSize = 50
)

// CohortAssignment maps an actor to its cohort date: the minimum qualifying
// activity date observed. One row per actor; recomputation only ever lowers
// the date (LEAST upsert), keeping replays idempotent.
type CohortAssignment struct {
	ActorID    string `gorm:"primary_key:true;column:actor_id" json:"actor_id"`
	CohortDate string `json:"cohort_date"`
}

func (CohortAssignment) TableName() string {
	return "cohort_assignments"
}

// ActorActivity records that an authenticated actor was active on a date.
// Partition-replaced per activity date.
type ActorActivity struct {
	ActorID      string `gorm:"primary_key:true;column:actor_id" json:"actor_id"`
	ActivityDate string `gorm:"primary_key:true" json:"activity_date"`
}

func (ActorActivity) TableName() string {
	return "actor_activity"
}

// RetentionRecord is one cell of the retention matrix: how many of a
// cohort's actors returned on cohort date + offset.
type RetentionRecord struct {
	CohortDate    string  `gorm:"primary_key:true" json:"cohort_date"`
	DayOffset     int     `gorm:"primary_key:true" json:"day_offset"`
	CohortSize    int64   `json:"cohort_size"`
	ReturnedCount int64   `json:"returned_count"`
	RetentionRate float64 `json:"retention_rate"`
}

func (RetentionRecord) TableName() string {
	return "retention_matrix"
}
