package model

// Monetary event actions within the payment category.
const (
	PaymentCompleteAction = "complete"
	PaymentRefundAction   = "refund"
)

// Audit sideline reasons. Audited transactions are retained for inspection
// but excluded from revenue aggregates (or from user-keyed aggregates for
// referential gaps).
const (
	AuditReasonFullyRefunded = "fully_refunded"
	AuditReasonOverRefund    = "over_refund"
	AuditReasonOrphanRefund  = "orphan_refund"
	AuditReasonUnknownActor  = "unknown_actor"
)

// TransactionRecord is a netted monetary event: one payment completion
// joined with the sum of its refunds. Net = Gross - Refund always holds.
type TransactionRecord struct {
	TransactionID string `json:"transaction_id"`
	ActorID       string `json:"actor_id"`
	Method        string `json:"method"`
	Gross         int64  `json:"gross"`
	Refund        int64  `json:"refund"`
	Net           int64  `json:"net"`
	CompletedAt   int64  `json:"completed_at"`
}

// RevenueAuditRecord is one audit sideline row, published to the
// revenue_audit table for the partition.
type RevenueAuditRecord struct {
	Date          string `gorm:"primary_key:true" json:"date"`
	TransactionID string `gorm:"primary_key:true" json:"transaction_id"`
	ActorID       string `json:"actor_id"`
	Gross         int64  `json:"gross"`
	Refund        int64  `json:"refund"`
	Net           int64  `json:"net"`
	Reason        string `gorm:"primary_key:true" json:"reason"`
}

func (RevenueAuditRecord) TableName() string {
	return "revenue_audit"
}

// RevenueMetric is the published daily revenue row. ARPPU = Net over
// distinct paying actors, safe-divide.
type RevenueMetric struct {
	Date             string  `gorm:"primary_key:true" json:"date"`
	PayingActors     int64   `json:"paying_actors"`
	TransactionCount int64   `json:"transaction_count"`
	Gross            int64   `json:"gross"`
	Refunds          int64   `json:"refunds"`
	Net              int64   `json:"net"`
	ARPPU            float64 `gorm:"column:arppu" json:"arppu"`
}

func (RevenueMetric) TableName() string {
	return "revenue_metrics"
}
