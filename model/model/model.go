package model

// Model is the warehouse contract every store implementation satisfies.
// Methods return http status codes as error codes: StatusFound /
// StatusNotFound on reads, StatusAccepted / StatusInternalServerError on
// writes. Replace* methods swap a full partition atomically; no reader
// observes a partially updated partition.
type Model interface {
	// Raw input snapshot for one date partition, ordered deterministically.
	GetRawRecordsForDate(date string) ([]RawRecord, int)
	CreateRawRecords(records []RawRecord) int

	ReplaceFunnelMetrics(date string, metrics []FunnelMetric) int
	GetFunnelMetricsForDate(date string) ([]FunnelMetric, int)
	GetFunnelMetricsBetween(from, to string) ([]FunnelMetric, int)

	UpsertCohortAssignments(assignments []CohortAssignment) int
	GetCohortAssignmentsBetween(from, to string) ([]CohortAssignment, int)
	ReplaceActorActivity(date string, activity []ActorActivity) int
	GetActorActivityBetween(from, to string) ([]ActorActivity, int)
	// Replaces all matrix rows of the given cohort dates in one swap.
	ReplaceRetentionMatrix(cohortDates []string, records []RetentionRecord) int
	GetRetentionMatrixForCohorts(cohortDates []string) ([]RetentionRecord, int)

	ReplaceRevenueMetric(date string, metric *RevenueMetric) int
	GetRevenueMetricsBetween(from, to string) ([]RevenueMetric, int)
	ReplaceRevenueAudit(date string, records []RevenueAuditRecord) int
	GetRevenueAuditForDate(date string) ([]RevenueAuditRecord, int)

	CreateQualityRun(run *QualityRun) int
	UpdateQualityRun(run *QualityRun) int
	GetLatestQualityRunForDate(date string) (*QualityRun, int)
	CreateQualityCheckResults(results []QualityCheckResult) int
	GetQualityCheckResultsForRun(runID string) ([]QualityCheckResult, int)

	ReplacePipelineRun(run *PipelineRun) int
	GetPipelineRunsBetween(from, to string) ([]PipelineRun, int)
}
