package model

import (
	U "daymart/util"
)

// FunnelStep binds a step name to the taxonomy event name a session must
// have seen to reach it. Steps are evaluated in fixed slice order,
// entry first.
type FunnelStep struct {
	Name      string `yaml:"name" json:"name"`
	EventName string `yaml:"event" json:"event"`
}

// DefaultFunnelSteps is the product funnel: entry page view through
// completed payment.
func DefaultFunnelSteps() []FunnelStep {
	return []FunnelStep{
		{Name: "view", EventName: "screen.view.main"},
		{Name: "select", EventName: "product.select.item"},
		{Name: "submit", EventName: "order.submit.checkout"},
		{Name: "complete", EventName: "payment.complete.success"},
	}
}

// Segment value for the cross-segment rollup row.
const SegmentAll = "all"

// FunnelMetric is the published funnel snapshot for one (date, segment).
// Step counts are non-increasing along step order; rates are percentages
// in [0, 100].
type FunnelMetric struct {
	Date    string `json:"date"`
	Segment string `json:"segment"`

	StepNames  []string `json:"step_names"`
	StepCounts []int64  `json:"step_counts"`
	// StepConversions[i] converts StepCounts[i] -> StepCounts[i+1];
	// len(StepConversions) == len(StepCounts)-1.
	StepConversions   []float64 `json:"step_conversions"`
	OverallConversion float64   `json:"overall_conversion"`

	// The step with the greatest absolute count loss from its predecessor.
	// Not necessarily the step with the lowest rate.
	BiggestDropStep  string `json:"biggest_drop_step"`
	BiggestDropCount int64  `json:"biggest_drop_count"`
}

// ConversionPercentage returns the funnel conversion between two adjacent
// step counts as a percentage with one decimal. 0 when the earlier step
// count is 0.
func ConversionPercentage(prevCount, curCount int64) float64 {
	return U.SafeDividePercentage(float64(curCount), float64(prevCount))
}
