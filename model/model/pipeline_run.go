package model

// PipelineRun is the committed bookkeeping row of one computed partition:
// stage counters used by the trailing statistical rules and the P2 daily
// summaries. Partition-replaced like every other derived table.
type PipelineRun struct {
	Date           string  `gorm:"primary_key:true" json:"date"`
	RawCount       int     `json:"raw_count"`
	RejectCount    int     `json:"reject_count"`
	RejectRate     float64 `json:"reject_rate"`
	DuplicateCount int     `json:"duplicate_count"`
	SessionCount   int     `json:"session_count"`
	Published      bool    `json:"published"`
	CompletedAt    int64   `json:"completed_at"`
}

func (PipelineRun) TableName() string {
	return "pipeline_runs"
}
