package revenue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"daymart/model/model"
	U "daymart/util"
)

const testDate = "2024-01-02"

func paymentEvent(t *testing.T, id, name, actorID, transactionID string,
	amount int64, timestamp int64) model.DedupRecord {

	properties := U.PropertiesMap{
		model.PropertyTransactionID: transactionID,
		model.PropertyAmount:        amount,
		model.PropertyMethod:        "card",
	}
	encoded, err := U.EncodePropertiesToJsonb(&properties)
	assert.Nil(t, err)

	return model.DedupRecord{
		NormalizedRecord: model.NormalizedRecord{
			RawRecord: model.RawRecord{
				ID:         id,
				Name:       name,
				Timestamp:  timestamp,
				ActorID:    actorID,
				Properties: *encoded,
			},
			Taxonomy: model.ParseEventName(name),
		},
	}
}

func TestComputePartialRefundIncluded(t *testing.T) {
	records := []model.DedupRecord{
		paymentEvent(t, "evt_1", "payment.complete.success", "user_1", "txn_1", 50000, 1000),
		paymentEvent(t, "evt_2", "payment.refund.request", "user_1", "txn_1", 20000, 2000),
	}

	out := Compute(testDate, records)

	assert.Len(t, out.Transactions, 1)
	transaction := out.Transactions[0]
	assert.Equal(t, int64(50000), transaction.Gross)
	assert.Equal(t, int64(20000), transaction.Refund)
	assert.Equal(t, int64(30000), transaction.Net)
	assert.Equal(t, transaction.Gross-transaction.Refund, transaction.Net)

	assert.Equal(t, int64(1), out.Metric.PayingActors)
	assert.Equal(t, int64(1), out.Metric.TransactionCount)
	assert.Equal(t, int64(30000), out.Metric.Net)
	assert.Equal(t, 30000.0, out.Metric.ARPPU)
	assert.Len(t, out.Audit, 0)
}

func TestComputeFullRefundAudited(t *testing.T) {
	records := []model.DedupRecord{
		paymentEvent(t, "evt_1", "payment.complete.success", "user_2", "txn_2", 10000, 1000),
		paymentEvent(t, "evt_2", "payment.refund.request", "user_2", "txn_2", 10000, 2000),
	}

	out := Compute(testDate, records)

	assert.Len(t, out.Transactions, 0)
	assert.Equal(t, int64(0), out.Metric.Net)
	assert.Equal(t, int64(0), out.Metric.PayingActors)

	assert.Len(t, out.Audit, 1)
	assert.Equal(t, model.AuditReasonFullyRefunded, out.Audit[0].Reason)
	assert.Equal(t, "txn_2", out.Audit[0].TransactionID)
	assert.Equal(t, int64(0), out.Audit[0].Net)
}

func TestComputeOverRefundFlaggedNotClamped(t *testing.T) {
	records := []model.DedupRecord{
		paymentEvent(t, "evt_1", "payment.complete.success", "user_3", "txn_3", 10000, 1000),
		paymentEvent(t, "evt_2", "payment.refund.request", "user_3", "txn_3", 9000, 2000),
		paymentEvent(t, "evt_3", "payment.refund.request", "user_3", "txn_3", 6000, 3000),
	}

	out := Compute(testDate, records)

	assert.Len(t, out.Transactions, 0)
	assert.Equal(t, 1, out.OverRefunds)
	assert.Len(t, out.Audit, 1)
	assert.Equal(t, model.AuditReasonOverRefund, out.Audit[0].Reason)
	// Negative net is preserved for inspection, not clamped to zero.
	assert.Equal(t, int64(-5000), out.Audit[0].Net)
	assert.Equal(t, int64(15000), out.Audit[0].Refund)
}

func TestComputeOrphanRefund(t *testing.T) {
	records := []model.DedupRecord{
		paymentEvent(t, "evt_1", "payment.refund.request", "user_4", "txn_9", 5000, 1000),
	}

	out := Compute(testDate, records)

	assert.Len(t, out.Transactions, 0)
	assert.Equal(t, 1, out.OrphanRefunds)
	assert.Len(t, out.Audit, 1)
	assert.Equal(t, model.AuditReasonOrphanRefund, out.Audit[0].Reason)
	assert.Equal(t, "txn_9", out.Audit[0].TransactionID)
	assert.Equal(t, int64(0), out.Metric.Gross)
}

func TestComputeUnknownActorExcludedFromARPPU(t *testing.T) {
	records := []model.DedupRecord{
		paymentEvent(t, "evt_1", "payment.complete.success", "anon-88", "txn_5", 5000, 1000),
		paymentEvent(t, "evt_2", "payment.complete.success", "user_5", "txn_6", 10000, 2000),
	}

	out := Compute(testDate, records)

	// Both transactions count in the transaction-keyed totals.
	assert.Len(t, out.Transactions, 2)
	assert.Equal(t, int64(2), out.Metric.TransactionCount)
	assert.Equal(t, int64(15000), out.Metric.Gross)
	assert.Equal(t, int64(15000), out.Metric.Net)

	// Only the authenticated actor is a paying actor.
	assert.Equal(t, int64(1), out.Metric.PayingActors)
	assert.Equal(t, 15000.0, out.Metric.ARPPU)

	assert.Equal(t, 1, out.UnknownActors)
	assert.Len(t, out.Audit, 1)
	assert.Equal(t, model.AuditReasonUnknownActor, out.Audit[0].Reason)
}

func TestComputeARPPUSafeDivide(t *testing.T) {
	out := Compute(testDate, nil)
	assert.Equal(t, int64(0), out.Metric.PayingActors)
	assert.Equal(t, 0.0, out.Metric.ARPPU)
	assert.Equal(t, testDate, out.Metric.Date)
}

func TestComputeDeterministicOrder(t *testing.T) {
	records := []model.DedupRecord{
		paymentEvent(t, "evt_1", "payment.complete.success", "user_1", "txn_b", 100, 1000),
		paymentEvent(t, "evt_2", "payment.complete.success", "user_1", "txn_a", 100, 1000),
	}
	reversed := []model.DedupRecord{records[1], records[0]}

	first := Compute(testDate, records)
	second := Compute(testDate, reversed)

	assert.Equal(t, first.Transactions, second.Transactions)
	assert.Equal(t, "txn_a", first.Transactions[0].TransactionID)
}
