package memstore

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"daymart/model/model"
)

func TestRawRecordsPartitionedByDate(t *testing.T) {
	store := New()

	records := []model.RawRecord{
		{ID: "evt_1", Timestamp: 1704153600 + 100, IngestedAt: 2, SourceOffset: 2},
		{ID: "evt_2", Timestamp: 1704153600 + 200, IngestedAt: 1, SourceOffset: 1},
		{ID: "evt_3", Timestamp: 1704240000 + 100, IngestedAt: 3, SourceOffset: 3},
	}
	assert.Equal(t, http.StatusCreated, store.CreateRawRecords(records))

	dayOne, errCode := store.GetRawRecordsForDate("2024-01-02")
	assert.Equal(t, http.StatusFound, errCode)
	assert.Len(t, dayOne, 2)
	// Ordered by ingestion metadata, not insertion order.
	assert.Equal(t, "evt_2", dayOne[0].ID)

	_, errCode = store.GetRawRecordsForDate("2024-01-05")
	assert.Equal(t, http.StatusNotFound, errCode)
}

func TestReplaceFunnelMetricsSwapsPartition(t *testing.T) {
	store := New()

	first := []model.FunnelMetric{{Date: "2024-01-02", Segment: "all", StepCounts: []int64{5, 3}}}
	assert.Equal(t, http.StatusAccepted, store.ReplaceFunnelMetrics("2024-01-02", first))

	second := []model.FunnelMetric{
		{Date: "2024-01-02", Segment: "all", StepCounts: []int64{9, 4}},
		{Date: "2024-01-02", Segment: "ios", StepCounts: []int64{9, 4}},
	}
	assert.Equal(t, http.StatusAccepted, store.ReplaceFunnelMetrics("2024-01-02", second))

	metrics, errCode := store.GetFunnelMetricsForDate("2024-01-02")
	assert.Equal(t, http.StatusFound, errCode)
	assert.Equal(t, second, metrics)
}

func TestUpsertCohortAssignmentsKeepsMinimumDate(t *testing.T) {
	store := New()

	store.UpsertCohortAssignments([]model.CohortAssignment{
		{ActorID: "user_1", CohortDate: "2024-01-05"},
	})
	store.UpsertCohortAssignments([]model.CohortAssignment{
		{ActorID: "user_1", CohortDate: "2024-01-02"},
	})
	// A later observation never moves the cohort date forward.
	store.UpsertCohortAssignments([]model.CohortAssignment{
		{ActorID: "user_1", CohortDate: "2024-01-08"},
	})

	assignments, errCode := store.GetCohortAssignmentsBetween("2024-01-01", "2024-01-31")
	assert.Equal(t, http.StatusFound, errCode)
	assert.Equal(t, []model.CohortAssignment{
		{ActorID: "user_1", CohortDate: "2024-01-02"},
	}, assignments)
}

func TestReplaceActorActivityIsIdempotent(t *testing.T) {
	store := New()

	activity := []model.ActorActivity{
		{ActorID: "user_1", ActivityDate: "2024-01-02"},
		{ActorID: "user_2", ActivityDate: "2024-01-02"},
	}
	store.ReplaceActorActivity("2024-01-02", activity)
	store.ReplaceActorActivity("2024-01-02", activity)

	fetched, errCode := store.GetActorActivityBetween("2024-01-02", "2024-01-02")
	assert.Equal(t, http.StatusFound, errCode)
	assert.Len(t, fetched, 2)
	assert.Equal(t, "user_1", fetched[0].ActorID)
}

func TestReplaceRetentionMatrixByCohortDates(t *testing.T) {
	store := New()

	store.ReplaceRetentionMatrix([]string{"2024-01-01"}, []model.RetentionRecord{
		{CohortDate: "2024-01-01", DayOffset: 0, CohortSize: 10, ReturnedCount: 10},
		{CohortDate: "2024-01-01", DayOffset: 1, CohortSize: 10, ReturnedCount: 4},
	})

	// Recompute drops the cohort's old rows before inserting.
	store.ReplaceRetentionMatrix([]string{"2024-01-01", "2024-01-02"}, []model.RetentionRecord{
		{CohortDate: "2024-01-01", DayOffset: 0, CohortSize: 10, ReturnedCount: 10},
	})

	records, errCode := store.GetRetentionMatrixForCohorts([]string{"2024-01-01", "2024-01-02"})
	assert.Equal(t, http.StatusFound, errCode)
	assert.Len(t, records, 1)
}

func TestReplaceRevenueMetric(t *testing.T) {
	store := New()

	store.ReplaceRevenueMetric("2024-01-02", &model.RevenueMetric{Date: "2024-01-02", Net: 100})
	store.ReplaceRevenueMetric("2024-01-02", &model.RevenueMetric{Date: "2024-01-02", Net: 250})

	metrics, errCode := store.GetRevenueMetricsBetween("2024-01-01", "2024-01-03")
	assert.Equal(t, http.StatusFound, errCode)
	assert.Len(t, metrics, 1)
	assert.Equal(t, int64(250), metrics[0].Net)

	// Replacing with nil clears the partition.
	store.ReplaceRevenueMetric("2024-01-02", nil)
	_, errCode = store.GetRevenueMetricsBetween("2024-01-01", "2024-01-03")
	assert.Equal(t, http.StatusNotFound, errCode)
}

func TestQualityRunLifecycle(t *testing.T) {
	store := New()

	run := &model.QualityRun{ID: "run_1", Date: "2024-01-02", State: model.QualityRunStateFailed}
	assert.Equal(t, http.StatusCreated, store.CreateQualityRun(run))

	run.State = model.QualityRunStateReported
	assert.Equal(t, http.StatusAccepted, store.UpdateQualityRun(run))

	assert.Equal(t, http.StatusNotFound,
		store.UpdateQualityRun(&model.QualityRun{ID: "missing"}))

	later := &model.QualityRun{ID: "run_2", Date: "2024-01-02", State: model.QualityRunStatePassed}
	store.CreateQualityRun(later)

	latest, errCode := store.GetLatestQualityRunForDate("2024-01-02")
	assert.Equal(t, http.StatusFound, errCode)
	assert.Equal(t, "run_2", latest.ID)

	_, errCode = store.GetLatestQualityRunForDate("2024-01-09")
	assert.Equal(t, http.StatusNotFound, errCode)
}

func TestQualityCheckResultsByRun(t *testing.T) {
	store := New()

	results := []model.QualityCheckResult{
		{RunID: "run_1", RuleName: "rate_range", Passed: true},
		{RunID: "run_1", RuleName: "net_identity", Passed: false},
	}
	assert.Equal(t, http.StatusCreated, store.CreateQualityCheckResults(results))

	fetched, errCode := store.GetQualityCheckResultsForRun("run_1")
	assert.Equal(t, http.StatusFound, errCode)
	assert.Len(t, fetched, 2)

	_, errCode = store.GetQualityCheckResultsForRun("run_9")
	assert.Equal(t, http.StatusNotFound, errCode)
}

func TestPipelineRunReplacedPerDate(t *testing.T) {
	store := New()

	store.ReplacePipelineRun(&model.PipelineRun{Date: "2024-01-02", SessionCount: 5})
	store.ReplacePipelineRun(&model.PipelineRun{Date: "2024-01-02", SessionCount: 7})
	store.ReplacePipelineRun(&model.PipelineRun{Date: "2024-01-03", SessionCount: 9})

	runs, errCode := store.GetPipelineRunsBetween("2024-01-01", "2024-01-31")
	assert.Equal(t, http.StatusFound, errCode)
	assert.Len(t, runs, 2)
	assert.Equal(t, 7, runs[0].SessionCount)
	assert.Equal(t, 9, runs[1].SessionCount)
}

func TestGetInstanceSingleton(t *testing.T) {
	first := GetInstance()
	second := GetInstance()
	assert.Same(t, first, second)

	first.ReplacePipelineRun(&model.PipelineRun{Date: "2024-01-02"})
	first.Reset()
	_, errCode := first.GetPipelineRunsBetween("2024-01-01", "2024-01-31")
	assert.Equal(t, http.StatusNotFound, errCode)
}
