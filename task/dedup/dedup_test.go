package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"daymart/model/model"
	U "daymart/util"
)

func eventRecord(id, name string, ingestedAt, sourceOffset int64) model.NormalizedRecord {
	return model.NormalizedRecord{
		RawRecord: model.RawRecord{
			ID:           id,
			Name:         name,
			IngestedAt:   ingestedAt,
			SourceOffset: sourceOffset,
		},
		Taxonomy: model.ParseEventName(name),
	}
}

func monetaryRecord(t *testing.T, id, name, transactionID string,
	ingestedAt int64) model.NormalizedRecord {

	properties := U.PropertiesMap{model.PropertyTransactionID: transactionID}
	encoded, err := U.EncodePropertiesToJsonb(&properties)
	assert.Nil(t, err)

	record := eventRecord(id, name, ingestedAt, 0)
	record.Properties = *encoded
	return record
}

func TestRunEarliestCopyWins(t *testing.T) {
	t0 := int64(1704189600)
	records := []model.NormalizedRecord{
		eventRecord("evt_1", "screen.view.main", t0+2, 7),
		eventRecord("evt_1", "screen.view.main", t0, 3),
	}

	result := Run(records)

	assert.Len(t, result.Records, 1)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 1, result.DistinctKeys)
	assert.Equal(t, t0, result.Records[0].FirstSeenAt)
	assert.Equal(t, t0, result.Records[0].IngestedAt)
}

func TestRunTieBreakBySourceOffset(t *testing.T) {
	t0 := int64(1704189600)
	records := []model.NormalizedRecord{
		eventRecord("evt_1", "screen.view.main", t0, 9),
		eventRecord("evt_1", "screen.view.main", t0, 2),
	}

	result := Run(records)

	assert.Len(t, result.Records, 1)
	assert.Equal(t, int64(2), result.Records[0].SourceOffset)
}

func TestRunCompletionsCollapseByTransaction(t *testing.T) {
	records := []model.NormalizedRecord{
		monetaryRecord(t, "evt_1", "payment.complete.success", "txn_1", 100),
		monetaryRecord(t, "evt_2", "payment.complete.success", "txn_1", 200),
	}

	result := Run(records)

	assert.Len(t, result.Records, 1)
	assert.Equal(t, "evt_1", result.Records[0].ID)
	assert.Equal(t, 1, result.Duplicates)
}

func TestRunRefundsSurviveIndividually(t *testing.T) {
	records := []model.NormalizedRecord{
		monetaryRecord(t, "evt_1", "payment.refund.request", "txn_1", 100),
		monetaryRecord(t, "evt_2", "payment.refund.request", "txn_1", 200),
	}

	result := Run(records)

	assert.Len(t, result.Records, 2)
	assert.Equal(t, 0, result.Duplicates)
	assert.Equal(t, 2, result.DistinctKeys)
}

func TestRunCountEqualsDistinctKeys(t *testing.T) {
	records := []model.NormalizedRecord{
		eventRecord("evt_1", "screen.view.main", 100, 0),
		eventRecord("evt_1", "screen.view.main", 105, 1),
		eventRecord("evt_2", "product.select.item", 101, 2),
		eventRecord("evt_3", "order.submit.checkout", 102, 3),
	}

	result := Run(records)

	assert.Equal(t, result.DistinctKeys, len(result.Records))
	assert.Equal(t, 3, result.DistinctKeys)
	assert.Equal(t, 1, result.Duplicates)
}

func TestRunDeterministicOrder(t *testing.T) {
	records := []model.NormalizedRecord{
		eventRecord("evt_b", "screen.view.main", 100, 0),
		eventRecord("evt_a", "screen.view.main", 101, 1),
	}
	reversed := []model.NormalizedRecord{records[1], records[0]}

	first := Run(records)
	second := Run(reversed)

	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, "evt_a", first.Records[0].ID)
}
