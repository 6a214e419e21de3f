package funnel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"daymart/model/model"
)

const testDate = "2024-01-02"

func sessionsReaching(segment string, count int, stepNames ...string) []model.SessionRecord {
	sessions := make([]model.SessionRecord, 0, count)
	for i := 0; i < count; i++ {
		reached := make(map[string]bool, len(stepNames))
		for _, name := range stepNames {
			reached[name] = true
		}
		sessions = append(sessions, model.SessionRecord{
			Segment: segment,
			Reached: reached,
		})
	}
	return sessions
}

func metricForSegment(t *testing.T, metrics []model.FunnelMetric, segment string) model.FunnelMetric {
	for i := range metrics {
		if metrics[i].Segment == segment {
			return metrics[i]
		}
	}
	t.Fatalf("no metric for segment %s", segment)
	return model.FunnelMetric{}
}

func TestComputeConversions(t *testing.T) {
	// 100 view, 80 select, 60 submit, 50 complete.
	sessions := sessionsReaching(model.SegmentIOS, 20, "view")
	sessions = append(sessions, sessionsReaching(model.SegmentIOS, 20, "view", "select")...)
	sessions = append(sessions, sessionsReaching(model.SegmentIOS, 10, "view", "select", "submit")...)
	sessions = append(sessions, sessionsReaching(model.SegmentIOS, 50, "view", "select", "submit", "complete")...)

	metrics := Compute(testDate, sessions, model.DefaultFunnelSteps())
	assert.Len(t, metrics, 2)

	ios := metricForSegment(t, metrics, model.SegmentIOS)
	assert.Equal(t, []int64{100, 80, 60, 50}, ios.StepCounts)
	assert.Equal(t, []float64{80.0, 75.0, 83.3}, ios.StepConversions)
	assert.Equal(t, 50.0, ios.OverallConversion)

	// Rollup row carries the same sessions.
	all := metricForSegment(t, metrics, model.SegmentAll)
	assert.Equal(t, ios.StepCounts, all.StepCounts)
}

func TestComputeBiggestDrop(t *testing.T) {
	sessions := sessionsReaching(model.SegmentIOS, 5, "view")
	sessions = append(sessions, sessionsReaching(model.SegmentIOS, 40, "view", "select")...)
	sessions = append(sessions, sessionsReaching(model.SegmentIOS, 5, "view", "select", "submit", "complete")...)

	metrics := Compute(testDate, sessions, model.DefaultFunnelSteps())
	ios := metricForSegment(t, metrics, model.SegmentIOS)

	// view=50 select=45 submit=5 complete=5; select->submit loses 40.
	assert.Equal(t, "submit", ios.BiggestDropStep)
	assert.Equal(t, int64(40), ios.BiggestDropCount)
}

func TestComputeCountsNonIncreasing(t *testing.T) {
	// Reaching submit without select counts only through view.
	sessions := sessionsReaching(model.SegmentAndroid, 3, "view", "submit")
	sessions = append(sessions, sessionsReaching(model.SegmentAndroid, 2, "view", "select")...)

	metrics := Compute(testDate, sessions, model.DefaultFunnelSteps())
	android := metricForSegment(t, metrics, model.SegmentAndroid)

	assert.Equal(t, []int64{5, 2, 0, 0}, android.StepCounts)
	for i := 1; i < len(android.StepCounts); i++ {
		assert.LessOrEqual(t, android.StepCounts[i], android.StepCounts[i-1])
	}
}

func TestComputeEntryStepFilter(t *testing.T) {
	// Sessions that never reached the entry step do not participate.
	sessions := sessionsReaching(model.SegmentIOS, 4, "select", "submit")

	metrics := Compute(testDate, sessions, model.DefaultFunnelSteps())
	assert.Len(t, metrics, 0)
}

func TestComputeZeroDenominator(t *testing.T) {
	sessions := sessionsReaching(model.SegmentIOS, 2, "view")

	metrics := Compute(testDate, sessions, model.DefaultFunnelSteps())
	ios := metricForSegment(t, metrics, model.SegmentIOS)

	// select count is 0, so submit conversion divides by zero.
	assert.Equal(t, []float64{0.0, 0.0, 0.0}, ios.StepConversions)
	assert.Equal(t, 0.0, ios.OverallConversion)
	for _, rate := range ios.StepConversions {
		assert.GreaterOrEqual(t, rate, 0.0)
		assert.LessOrEqual(t, rate, 100.0)
	}
}

func TestComputeSegmentsSorted(t *testing.T) {
	sessions := sessionsReaching(model.SegmentWebMobile, 1, "view")
	sessions = append(sessions, sessionsReaching(model.SegmentAndroid, 1, "view")...)

	metrics := Compute(testDate, sessions, model.DefaultFunnelSteps())

	assert.Len(t, metrics, 3)
	assert.Equal(t, model.SegmentAll, metrics[0].Segment)
	assert.Equal(t, model.SegmentAndroid, metrics[1].Segment)
	assert.Equal(t, model.SegmentWebMobile, metrics[2].Segment)
}
