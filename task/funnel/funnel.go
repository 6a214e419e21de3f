package funnel

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"daymart/model/model"
)

// Compute aggregates sessions into one FunnelMetric per (date, segment),
// plus the cross-segment rollup row. Only sessions that reached the entry
// step participate. A session counts at step i+1 only if it also counted
// at step i, which keeps step counts non-increasing by construction.
func Compute(date string, sessions []model.SessionRecord, steps []model.FunnelStep) []model.FunnelMetric {
	if len(steps) == 0 {
		return nil
	}

	bySegment := make(map[string][]model.SessionRecord)
	for i := range sessions {
		if !sessions[i].Reached[steps[0].Name] {
			continue
		}
		bySegment[sessions[i].Segment] = append(bySegment[sessions[i].Segment], sessions[i])
		bySegment[model.SegmentAll] = append(bySegment[model.SegmentAll], sessions[i])
	}

	segments := make([]string, 0, len(bySegment))
	for segment := range bySegment {
		segments = append(segments, segment)
	}
	sort.Strings(segments)

	metrics := make([]model.FunnelMetric, 0, len(segments))
	for _, segment := range segments {
		metrics = append(metrics, computeSegment(date, segment, bySegment[segment], steps))
	}

	log.WithFields(log.Fields{
		"date":           date,
		"no_of_segments": len(metrics),
		"no_of_sessions": len(sessions),
	}).Info("Computed funnel metrics.")

	return metrics
}

func computeSegment(date, segment string, sessions []model.SessionRecord,
	steps []model.FunnelStep) model.FunnelMetric {

	metric := model.FunnelMetric{
		Date:            date,
		Segment:         segment,
		StepNames:       make([]string, 0, len(steps)),
		StepCounts:      make([]int64, 0, len(steps)),
		StepConversions: make([]float64, 0, len(steps)-1),
	}

	for _, step := range steps {
		metric.StepNames = append(metric.StepNames, step.Name)
	}

	for si := range steps {
		var count int64
		for i := range sessions {
			if reachedThrough(&sessions[i], steps, si) {
				count++
			}
		}
		metric.StepCounts = append(metric.StepCounts, count)
	}

	for si := 1; si < len(steps); si++ {
		prevCount := metric.StepCounts[si-1]
		curCount := metric.StepCounts[si]
		metric.StepConversions = append(metric.StepConversions,
			model.ConversionPercentage(prevCount, curCount))

		// Greatest absolute loss, not lowest rate.
		if drop := prevCount - curCount; drop > metric.BiggestDropCount {
			metric.BiggestDropCount = drop
			metric.BiggestDropStep = steps[si].Name
		}
	}

	metric.OverallConversion = model.ConversionPercentage(
		metric.StepCounts[0], metric.StepCounts[len(metric.StepCounts)-1])

	return metric
}

// reachedThrough reports whether the session reached every step up to and
// including index through.
func reachedThrough(session *model.SessionRecord, steps []model.FunnelStep, through int) bool {
	for si := 0; si <= through; si++ {
		if !session.Reached[steps[si].Name] {
			return false
		}
	}
	return true
}
