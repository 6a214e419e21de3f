package quality

import (
	"fmt"
	"sort"
	"strings"

	"daymart/model/model"
	U "daymart/util"
)

// buildAlert produces the single payload for a failing run, built from the
// worst failing rule. Delivery belongs to the notification collaborator.
func buildAlert(run *model.QualityRun, worst *model.QualityCheckResult) *model.AlertPayload {
	summary := worst.Details
	if run.MaxSeverity == model.SeverityP0 {
		summary = fmt.Sprintf("%s; publication of %s blocked", summary, run.Date)
	}
	return &model.AlertPayload{
		Severity:       run.MaxSeverity,
		RuleName:       worst.RuleName,
		TargetTable:    worst.TargetTable,
		FailurePercent: U.SafeDividePercentage(float64(run.FailedRules), float64(run.TotalRules)),
		Summary:        summary,
	}
}

// BuildDailySummary renders the informational failures of recent runs into
// one digest line per rule, for the periodic report. P0 and P1 findings are
// alerted at run time and excluded here.
func BuildDailySummary(results []model.QualityCheckResult) string {
	type digest struct {
		count int
		last  string
	}
	byRule := make(map[string]*digest)

	for i := range results {
		if results[i].Passed || results[i].Severity != model.SeverityP2 {
			continue
		}
		key := results[i].RuleName + " on " + results[i].TargetTable
		if byRule[key] == nil {
			byRule[key] = &digest{}
		}
		byRule[key].count++
		byRule[key].last = results[i].Details
	}

	if len(byRule) == 0 {
		return "no informational findings"
	}

	keys := make([]string, 0, len(byRule))
	for key := range byRule {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("%s: %d occurrence(s), last: %s",
			key, byRule[key].count, byRule[key].last))
	}
	return strings.Join(lines, "\n")
}
