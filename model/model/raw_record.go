package model

import (
	"strings"

	"github.com/jinzhu/gorm/dialects/postgres"

	U "daymart/util"
)

// Segments are device classes, the enumerated values of the
// ingestion contract.
const (
	SegmentIOS        = "ios"
	SegmentAndroid    = "android"
	SegmentWebMobile  = "web_mobile"
	SegmentWebDesktop = "web_desktop"
)

var ValidSegments = []string{SegmentIOS, SegmentAndroid, SegmentWebMobile, SegmentWebDesktop}

// Category carrying monetary records. Their logical identity is the
// transaction id, not the event id.
const MonetaryCategory = "payment"

const (
	PropertyTransactionID = "transaction_id"
	PropertyAmount        = "amount"
	PropertyMethod        = "method"
)

// Actor ids with this prefix (or empty) are unauthenticated and are
// excluded from all user-keyed computation.
const anonymousActorPrefix = "anon"

// RawRecord is an event or transaction as received from the collector/CDC
// collaborator. Immutable once emitted; rows live in the raw_events table
// partitioned by event date.
type RawRecord struct {
	ID            string         `gorm:"primary_key:true" json:"id"`
	Name          string         `json:"name"`
	Timestamp     int64          `json:"timestamp"`
	ActorID       string         `json:"actor_id"`
	SessionID     string         `json:"session_id"`
	Segment       string         `json:"segment"`
	ClientVersion string         `json:"client_version"`
	Properties    postgres.Jsonb `json:"properties"`
	// Warehouse-assigned ingestion metadata, the dedup tie-break keys.
	IngestedAt   int64 `json:"ingested_at"`
	SourceOffset int64 `json:"source_offset"`
}

func (RawRecord) TableName() string {
	return "raw_events"
}

func (r *RawRecord) PropertiesMap() U.PropertiesMap {
	properties, err := U.DecodePostgresJsonb(&r.Properties)
	if err != nil {
		return U.PropertiesMap{}
	}
	return *properties
}

// NormalizedRecord is a RawRecord that passed schema validation, with the
// taxonomy parsed and the UTC event date derived.
type NormalizedRecord struct {
	RawRecord
	Taxonomy  Taxonomy `json:"taxonomy"`
	EventDate string   `json:"event_date"`
}

// DedupRecord is the single surviving copy of one logical occurrence.
type DedupRecord struct {
	NormalizedRecord
	// Earliest ingestion timestamp among all copies of the logical key.
	FirstSeenAt int64 `json:"first_seen_at"`
}

// LogicalKey returns the identity used for deduplication: the transaction id
// for payment completions, the event id otherwise. Refunds keep their event
// identity so several refunds against one transaction survive dedup.
// Completions without a transaction id fall back to the event id.
func (r *NormalizedRecord) LogicalKey() string {
	if r.Taxonomy.Category == MonetaryCategory && r.Taxonomy.Action == PaymentCompleteAction {
		if tid := U.GetPropertyValueAsString(r.PropertiesMap(), PropertyTransactionID); tid != "" {
			return tid
		}
	}
	return r.ID
}

// IsAnonymousActor reports whether an actor id is unauthenticated.
func IsAnonymousActor(actorID string) bool {
	return actorID == "" || strings.HasPrefix(actorID, anonymousActorPrefix)
}
