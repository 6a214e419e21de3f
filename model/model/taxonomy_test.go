package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	U "daymart/util"
)

func TestIsValidEventName(t *testing.T) {
	assert.True(t, IsValidEventName("screen.view.main"))
	assert.True(t, IsValidEventName("payment.complete.success"))
	assert.True(t, IsValidEventName("auth.login.success"))
	assert.True(t, IsValidEventName("order.submit.check_out"))

	assert.False(t, IsValidEventName(""))
	assert.False(t, IsValidEventName("view"))
	assert.False(t, IsValidEventName("screen.view"))
	assert.False(t, IsValidEventName("screen.view.main.extra"))
	assert.False(t, IsValidEventName("Screen.View.Main"))
	assert.False(t, IsValidEventName("screen.view.main2"))
	assert.False(t, IsValidEventName("screen..main"))
}

func TestParseEventName(t *testing.T) {
	taxonomy := ParseEventName("payment.complete.success")
	assert.Equal(t, "payment", taxonomy.Category)
	assert.Equal(t, "complete", taxonomy.Action)
	assert.Equal(t, "success", taxonomy.Label)
	assert.Equal(t, "payment.complete.success", taxonomy.Name())

	assert.Equal(t, Taxonomy{}, ParseEventName("malformed"))
}

func buildMonetaryRecord(t *testing.T, id, name string, properties U.PropertiesMap) NormalizedRecord {
	encoded, err := U.EncodePropertiesToJsonb(&properties)
	assert.Nil(t, err)
	return NormalizedRecord{
		RawRecord: RawRecord{ID: id, Name: name, Properties: *encoded},
		Taxonomy:  ParseEventName(name),
	}
}

func TestLogicalKey(t *testing.T) {
	// Completions are identified by their transaction.
	completion := buildMonetaryRecord(t, "evt_1", "payment.complete.success",
		U.PropertiesMap{PropertyTransactionID: "txn_1", PropertyAmount: 50000})
	assert.Equal(t, "txn_1", completion.LogicalKey())

	// Refunds keep event identity so several refunds per transaction
	// survive dedup.
	refund := buildMonetaryRecord(t, "evt_2", "payment.refund.request",
		U.PropertiesMap{PropertyTransactionID: "txn_1", PropertyAmount: 20000})
	assert.Equal(t, "evt_2", refund.LogicalKey())

	// Non-monetary records are identified by event id.
	view := NormalizedRecord{
		RawRecord: RawRecord{ID: "evt_3", Name: "screen.view.main"},
		Taxonomy:  ParseEventName("screen.view.main"),
	}
	assert.Equal(t, "evt_3", view.LogicalKey())

	// Completion without a transaction id falls back to event id.
	orphaned := buildMonetaryRecord(t, "evt_4", "payment.complete.success",
		U.PropertiesMap{PropertyAmount: 100})
	assert.Equal(t, "evt_4", orphaned.LogicalKey())
}

func TestIsAnonymousActor(t *testing.T) {
	assert.True(t, IsAnonymousActor(""))
	assert.True(t, IsAnonymousActor("anon-5533"))
	assert.False(t, IsAnonymousActor("user_1"))
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, SeverityP0, MaxSeverity(SeverityP0, SeverityP1))
	assert.Equal(t, SeverityP0, MaxSeverity(SeverityP2, SeverityP0))
	assert.Equal(t, SeverityP1, MaxSeverity(SeverityP1, SeverityP2))
	assert.Equal(t, SeverityP1, MaxSeverity("", SeverityP1))
	assert.Equal(t, "", MaxSeverity("", ""))
}

func TestConversionPercentage(t *testing.T) {
	assert.Equal(t, 75.0, ConversionPercentage(80, 60))
	assert.Equal(t, 0.0, ConversionPercentage(0, 10))
}
