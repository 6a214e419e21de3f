package revenue

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"daymart/model/model"
	U "daymart/util"
)

type Output struct {
	// Netted transactions included in the published aggregates.
	Transactions []model.TransactionRecord
	// Sideline rows for the revenue_audit partition.
	Audit  []model.RevenueAuditRecord
	Metric *model.RevenueMetric

	// Refund sums exceeding gross. Flagged, never clamped.
	OverRefunds int
	// Refunds with no matching completion in the window.
	OrphanRefunds int
	// Transactions completed by an unauthenticated actor.
	UnknownActors int
}

// Compute joins payment completions with their refunds by transaction id
// and nets the amounts for the date partition. Transactions netting to
// zero or below are audited and excluded from the aggregates. Unknown
// actor transactions stay in the transaction-keyed totals but never in
// paying_actors or arppu.
func Compute(date string, records []model.DedupRecord) *Output {
	out := &Output{Metric: &model.RevenueMetric{Date: date}}

	completions := make(map[string]*model.TransactionRecord)
	refunds := make(map[string]int64)
	transactionIDs := make([]string, 0)

	for i := range records {
		if records[i].Taxonomy.Category != model.MonetaryCategory {
			continue
		}

		properties := records[i].PropertiesMap()
		transactionID := U.GetPropertyValueAsString(properties, model.PropertyTransactionID)
		if transactionID == "" {
			continue
		}
		amount := U.GetPropertyValueAsInt64(properties, model.PropertyAmount)

		switch records[i].Taxonomy.Action {
		case model.PaymentCompleteAction:
			if _, exists := completions[transactionID]; !exists {
				transactionIDs = append(transactionIDs, transactionID)
			}
			completions[transactionID] = &model.TransactionRecord{
				TransactionID: transactionID,
				ActorID:       records[i].ActorID,
				Method:        U.GetPropertyValueAsString(properties, model.PropertyMethod),
				Gross:         amount,
				CompletedAt:   records[i].Timestamp,
			}
		case model.PaymentRefundAction:
			refunds[transactionID] += amount
		}
	}

	sort.Strings(transactionIDs)

	payingActors := make(map[string]bool)
	for _, transactionID := range transactionIDs {
		transaction := completions[transactionID]
		transaction.Refund = refunds[transactionID]
		transaction.Net = transaction.Gross - transaction.Refund
		delete(refunds, transactionID)

		unknownActor := model.IsAnonymousActor(transaction.ActorID)
		if unknownActor {
			out.UnknownActors++
			out.Audit = append(out.Audit,
				auditRow(date, transaction, model.AuditReasonUnknownActor))
		}

		if transaction.Net <= 0 {
			reason := model.AuditReasonFullyRefunded
			if transaction.Net < 0 {
				reason = model.AuditReasonOverRefund
				out.OverRefunds++
			}
			out.Audit = append(out.Audit, auditRow(date, transaction, reason))
			continue
		}

		out.Transactions = append(out.Transactions, *transaction)
		out.Metric.TransactionCount++
		out.Metric.Gross += transaction.Gross
		out.Metric.Refunds += transaction.Refund
		out.Metric.Net += transaction.Net
		if !unknownActor {
			payingActors[transaction.ActorID] = true
		}
	}

	// Remaining refunds reference no completion in the window.
	orphanIDs := make([]string, 0, len(refunds))
	for transactionID := range refunds {
		orphanIDs = append(orphanIDs, transactionID)
	}
	sort.Strings(orphanIDs)
	for _, transactionID := range orphanIDs {
		out.OrphanRefunds++
		out.Audit = append(out.Audit, model.RevenueAuditRecord{
			Date:          date,
			TransactionID: transactionID,
			Refund:        refunds[transactionID],
			Net:           -refunds[transactionID],
			Reason:        model.AuditReasonOrphanRefund,
		})
	}

	out.Metric.PayingActors = int64(len(payingActors))
	out.Metric.ARPPU = U.FloatRoundOffWithPrecision(
		U.SafeDivide(float64(out.Metric.Net), float64(out.Metric.PayingActors)), 2)

	log.WithFields(log.Fields{
		"date":           date,
		"transactions":   out.Metric.TransactionCount,
		"net":            out.Metric.Net,
		"audited":        len(out.Audit),
		"over_refunds":   out.OverRefunds,
		"orphan_refunds": out.OrphanRefunds,
		"unknown_actors": out.UnknownActors,
	}).Info("Computed revenue netting.")

	return out
}

func auditRow(date string, t *model.TransactionRecord, reason string) model.RevenueAuditRecord {
	return model.RevenueAuditRecord{
		Date:          date,
		TransactionID: t.TransactionID,
		ActorID:       t.ActorID,
		Gross:         t.Gross,
		Refund:        t.Refund,
		Net:           t.Net,
		Reason:        reason,
	}
}
