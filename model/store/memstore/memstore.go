package memstore

import (
	"net/http"
	"sort"
	"sync"

	"daymart/model/model"
	U "daymart/util"
)

// MemStore is an in-memory model implementation with the same partition
// replace semantics as the warehouse store. Used by tests and local runs
// without a warehouse.
type MemStore struct {
	lock sync.RWMutex

	rawRecords        map[string][]model.RawRecord // by event date
	funnelMetrics     map[string][]model.FunnelMetric
	cohortAssignments map[string]string // actor -> cohort date
	actorActivity     map[string]map[string]bool
	retention         map[string][]model.RetentionRecord // by cohort date
	revenueMetrics    map[string]model.RevenueMetric
	revenueAudit      map[string][]model.RevenueAuditRecord
	qualityRuns       map[string]model.QualityRun
	qualityRunsByDate map[string][]string
	qualityResults    map[string][]model.QualityCheckResult
	pipelineRuns      map[string]model.PipelineRun
}

var instance *MemStore
var instanceOnce sync.Once

func GetInstance() *MemStore {
	instanceOnce.Do(func() {
		instance = New()
	})
	return instance
}

func New() *MemStore {
	store := &MemStore{}
	store.reset()
	return store
}

// Reset drops all state of the shared instance. Test helper.
func (store *MemStore) Reset() {
	store.lock.Lock()
	defer store.lock.Unlock()
	store.reset()
}

func (store *MemStore) reset() {
	store.rawRecords = make(map[string][]model.RawRecord)
	store.funnelMetrics = make(map[string][]model.FunnelMetric)
	store.cohortAssignments = make(map[string]string)
	store.actorActivity = make(map[string]map[string]bool)
	store.retention = make(map[string][]model.RetentionRecord)
	store.revenueMetrics = make(map[string]model.RevenueMetric)
	store.revenueAudit = make(map[string][]model.RevenueAuditRecord)
	store.qualityRuns = make(map[string]model.QualityRun)
	store.qualityRunsByDate = make(map[string][]string)
	store.qualityResults = make(map[string][]model.QualityCheckResult)
	store.pipelineRuns = make(map[string]model.PipelineRun)
}

func (store *MemStore) CreateRawRecords(records []model.RawRecord) int {
	store.lock.Lock()
	defer store.lock.Unlock()

	for i := range records {
		date := U.GetDateOnlyFromTimestampZ(records[i].Timestamp)
		store.rawRecords[date] = append(store.rawRecords[date], records[i])
	}
	return http.StatusCreated
}

func (store *MemStore) GetRawRecordsForDate(date string) ([]model.RawRecord, int) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	records, exists := store.rawRecords[date]
	if !exists || len(records) == 0 {
		return nil, http.StatusNotFound
	}

	result := make([]model.RawRecord, len(records))
	copy(result, records)
	sort.Slice(result, func(i, j int) bool {
		if result[i].IngestedAt != result[j].IngestedAt {
			return result[i].IngestedAt < result[j].IngestedAt
		}
		if result[i].SourceOffset != result[j].SourceOffset {
			return result[i].SourceOffset < result[j].SourceOffset
		}
		return result[i].ID < result[j].ID
	})
	return result, http.StatusFound
}

func (store *MemStore) ReplaceFunnelMetrics(date string, metrics []model.FunnelMetric) int {
	store.lock.Lock()
	defer store.lock.Unlock()

	replaced := make([]model.FunnelMetric, len(metrics))
	copy(replaced, metrics)
	store.funnelMetrics[date] = replaced
	return http.StatusAccepted
}

func (store *MemStore) GetFunnelMetricsForDate(date string) ([]model.FunnelMetric, int) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	metrics, exists := store.funnelMetrics[date]
	if !exists {
		return nil, http.StatusNotFound
	}
	result := make([]model.FunnelMetric, len(metrics))
	copy(result, metrics)
	return result, http.StatusFound
}

func (store *MemStore) GetFunnelMetricsBetween(from, to string) ([]model.FunnelMetric, int) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	result := make([]model.FunnelMetric, 0)
	for date, metrics := range store.funnelMetrics {
		if date >= from && date <= to {
			result = append(result, metrics...)
		}
	}
	if len(result) == 0 {
		return nil, http.StatusNotFound
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Segment < result[j].Segment
	})
	return result, http.StatusFound
}

func (store *MemStore) UpsertCohortAssignments(assignments []model.CohortAssignment) int {
	store.lock.Lock()
	defer store.lock.Unlock()

	for i := range assignments {
		existing, exists := store.cohortAssignments[assignments[i].ActorID]
		// Minimum qualifying date wins, keeping replays idempotent.
		if !exists || assignments[i].CohortDate < existing {
			store.cohortAssignments[assignments[i].ActorID] = assignments[i].CohortDate
		}
	}
	return http.StatusAccepted
}

func (store *MemStore) GetCohortAssignmentsBetween(from, to string) ([]model.CohortAssignment, int) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	result := make([]model.CohortAssignment, 0)
	for actorID, cohortDate := range store.cohortAssignments {
		if cohortDate >= from && cohortDate <= to {
			result = append(result, model.CohortAssignment{ActorID: actorID, CohortDate: cohortDate})
		}
	}
	if len(result) == 0 {
		return nil, http.StatusNotFound
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ActorID < result[j].ActorID
	})
	return result, http.StatusFound
}

func (store *MemStore) ReplaceActorActivity(date string, activity []model.ActorActivity) int {
	store.lock.Lock()
	defer store.lock.Unlock()

	actors := make(map[string]bool, len(activity))
	for i := range activity {
		actors[activity[i].ActorID] = true
	}
	store.actorActivity[date] = actors
	return http.StatusAccepted
}

func (store *MemStore) GetActorActivityBetween(from, to string) ([]model.ActorActivity, int) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	result := make([]model.ActorActivity, 0)
	for date, actors := range store.actorActivity {
		if date < from || date > to {
			continue
		}
		for actorID := range actors {
			result = append(result, model.ActorActivity{ActorID: actorID, ActivityDate: date})
		}
	}
	if len(result) == 0 {
		return nil, http.StatusNotFound
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ActivityDate != result[j].ActivityDate {
			return result[i].ActivityDate < result[j].ActivityDate
		}
		return result[i].ActorID < result[j].ActorID
	})
	return result, http.StatusFound
}

func (store *MemStore) ReplaceRetentionMatrix(cohortDates []string, records []model.RetentionRecord) int {
	store.lock.Lock()
	defer store.lock.Unlock()

	for _, date := range cohortDates {
		delete(store.retention, date)
	}
	for i := range records {
		store.retention[records[i].CohortDate] = append(store.retention[records[i].CohortDate], records[i])
	}
	return http.StatusAccepted
}

func (store *MemStore) GetRetentionMatrixForCohorts(cohortDates []string) ([]model.RetentionRecord, int) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	result := make([]model.RetentionRecord, 0)
	for _, date := range cohortDates {
		result = append(result, store.retention[date]...)
	}
	if len(result) == 0 {
		return nil, http.StatusNotFound
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CohortDate != result[j].CohortDate {
			return result[i].CohortDate < result[j].CohortDate
		}
		return result[i].DayOffset < result[j].DayOffset
	})
	return result, http.StatusFound
}

func (store *MemStore) ReplaceRevenueMetric(date string, metric *model.RevenueMetric) int {
	store.lock.Lock()
	defer store.lock.Unlock()

	if metric == nil {
		delete(store.revenueMetrics, date)
		return http.StatusAccepted
	}
	store.revenueMetrics[date] = *metric
	return http.StatusAccepted
}

func (store *MemStore) GetRevenueMetricsBetween(from, to string) ([]model.RevenueMetric, int) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	result := make([]model.RevenueMetric, 0)
	for date, metric := range store.revenueMetrics {
		if date >= from && date <= to {
			result = append(result, metric)
		}
	}
	if len(result) == 0 {
		return nil, http.StatusNotFound
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})
	return result, http.StatusFound
}

func (store *MemStore) ReplaceRevenueAudit(date string, records []model.RevenueAuditRecord) int {
	store.lock.Lock()
	defer store.lock.Unlock()

	replaced := make([]model.RevenueAuditRecord, len(records))
	copy(replaced, records)
	store.revenueAudit[date] = replaced
	return http.StatusAccepted
}

func (store *MemStore) GetRevenueAuditForDate(date string) ([]model.RevenueAuditRecord, int) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	records, exists := store.revenueAudit[date]
	if !exists || len(records) == 0 {
		return nil, http.StatusNotFound
	}
	result := make([]model.RevenueAuditRecord, len(records))
	copy(result, records)
	return result, http.StatusFound
}

func (store *MemStore) CreateQualityRun(run *model.QualityRun) int {
	store.lock.Lock()
	defer store.lock.Unlock()

	store.qualityRuns[run.ID] = *run
	store.qualityRunsByDate[run.Date] = append(store.qualityRunsByDate[run.Date], run.ID)
	return http.StatusCreated
}

func (store *MemStore) UpdateQualityRun(run *model.QualityRun) int {
	store.lock.Lock()
	defer store.lock.Unlock()

	if _, exists := store.qualityRuns[run.ID]; !exists {
		return http.StatusNotFound
	}
	store.qualityRuns[run.ID] = *run
	return http.StatusAccepted
}

func (store *MemStore) GetLatestQualityRunForDate(date string) (*model.QualityRun, int) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	runIDs := store.qualityRunsByDate[date]
	if len(runIDs) == 0 {
		return nil, http.StatusNotFound
	}
	run := store.qualityRuns[runIDs[len(runIDs)-1]]
	return &run, http.StatusFound
}

func (store *MemStore) CreateQualityCheckResults(results []model.QualityCheckResult) int {
	store.lock.Lock()
	defer store.lock.Unlock()

	for i := range results {
		store.qualityResults[results[i].RunID] = append(store.qualityResults[results[i].RunID], results[i])
	}
	return http.StatusCreated
}

func (store *MemStore) GetQualityCheckResultsForRun(runID string) ([]model.QualityCheckResult, int) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	results, exists := store.qualityResults[runID]
	if !exists {
		return nil, http.StatusNotFound
	}
	result := make([]model.QualityCheckResult, len(results))
	copy(result, results)
	return result, http.StatusFound
}

func (store *MemStore) ReplacePipelineRun(run *model.PipelineRun) int {
	store.lock.Lock()
	defer store.lock.Unlock()

	store.pipelineRuns[run.Date] = *run
	return http.StatusAccepted
}

func (store *MemStore) GetPipelineRunsBetween(from, to string) ([]model.PipelineRun, int) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	result := make([]model.PipelineRun, 0)
	for date, run := range store.pipelineRuns {
		if date >= from && date <= to {
			result = append(result, run)
		}
	}
	if len(result) == 0 {
		return nil, http.StatusNotFound
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})
	return result, http.StatusFound
}
