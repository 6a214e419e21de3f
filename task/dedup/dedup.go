package dedup

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"daymart/model/model"
)

type Result struct {
	Records []model.DedupRecord `json:"-"`
	// Copies dropped as duplicate_record. Expected under at-least-once
	// delivery, informational.
	Duplicates int `json:"duplicates"`
	// Distinct logical keys seen in the input. Always equals len(Records);
	// the quality gate fails the partition at P0 when it does not.
	DistinctKeys int `json:"distinct_keys"`
}

// Run collapses records sharing a logical key down to one survivor each.
// The survivor is the first copy by (ingested_at, source_offset, id)
// ascending, so the outcome is independent of processing order.
func Run(records []model.NormalizedRecord) *Result {
	groups := make(map[string][]model.NormalizedRecord)
	keys := make([]string, 0)

	for i := range records {
		key := records[i].LogicalKey()
		if _, exists := groups[key]; !exists {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], records[i])
	}

	// Output ordered by logical key so recomputation is byte identical.
	sort.Strings(keys)

	result := &Result{
		Records:      make([]model.DedupRecord, 0, len(keys)),
		DistinctKeys: len(keys),
	}

	for _, key := range keys {
		copies := groups[key]
		sort.Slice(copies, func(i, j int) bool {
			if copies[i].IngestedAt != copies[j].IngestedAt {
				return copies[i].IngestedAt < copies[j].IngestedAt
			}
			if copies[i].SourceOffset != copies[j].SourceOffset {
				return copies[i].SourceOffset < copies[j].SourceOffset
			}
			return copies[i].ID < copies[j].ID
		})

		result.Records = append(result.Records, model.DedupRecord{
			NormalizedRecord: copies[0],
			FirstSeenAt:      copies[0].IngestedAt,
		})
		result.Duplicates += len(copies) - 1
	}

	log.WithFields(log.Fields{
		"no_of_records": len(records),
		"distinct_keys": result.DistinctKeys,
		"duplicates":    result.Duplicates,
	}).Info("Deduplicated records.")

	return result
}
