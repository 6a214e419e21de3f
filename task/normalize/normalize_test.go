package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"daymart/model/model"
)

const testDate = "2024-01-02"

// 2024-01-02 10:00:00 UTC.
const testTimestamp = int64(1704189600)

func validRecord(id string) model.RawRecord {
	return model.RawRecord{
		ID:            id,
		Name:          "screen.view.main",
		Timestamp:     testTimestamp,
		ActorID:       "user_1",
		SessionID:     "session_1",
		Segment:       model.SegmentIOS,
		ClientVersion: "2.4.1",
	}
}

func TestRunAcceptsValidRecord(t *testing.T) {
	result := Run([]model.RawRecord{validRecord("evt_1")}, testDate)

	assert.Len(t, result.Records, 1)
	assert.Equal(t, 0, result.RejectCount())
	assert.Equal(t, 0, result.OutOfWindow)

	normalized := result.Records[0]
	assert.Equal(t, testDate, normalized.EventDate)
	assert.Equal(t, "screen", normalized.Taxonomy.Category)
	assert.Equal(t, "view", normalized.Taxonomy.Action)
	assert.Equal(t, "main", normalized.Taxonomy.Label)
}

func TestRunRejectReasons(t *testing.T) {
	missingID := validRecord("")
	missingTimestamp := validRecord("evt_2")
	missingTimestamp.Timestamp = 0
	badName := validRecord("evt_3")
	badName.Name = "not-a-taxonomy-name"
	missingActor := validRecord("evt_4")
	missingActor.ActorID = ""
	missingSession := validRecord("evt_5")
	missingSession.SessionID = ""
	badSegment := validRecord("evt_6")
	badSegment.Segment = "desktop"
	missingVersion := validRecord("evt_7")
	missingVersion.ClientVersion = ""

	result := Run([]model.RawRecord{missingID, missingTimestamp, badName,
		missingActor, missingSession, badSegment, missingVersion}, testDate)

	assert.Len(t, result.Records, 0)
	assert.Equal(t, 7, result.RejectCount())
	assert.Equal(t, 1, result.Rejects[RejectMissingID])
	assert.Equal(t, 1, result.Rejects[RejectMissingTimestamp])
	assert.Equal(t, 1, result.Rejects[RejectInvalidName])
	assert.Equal(t, 1, result.Rejects[RejectMissingActorID])
	assert.Equal(t, 1, result.Rejects[RejectMissingSessionID])
	assert.Equal(t, 1, result.Rejects[RejectInvalidSegment])
	assert.Equal(t, 1, result.Rejects[RejectMissingClientVersion])
}

func TestRunDropsOutOfWindow(t *testing.T) {
	nextDay := validRecord("evt_1")
	nextDay.Timestamp = testTimestamp + 24*3600

	result := Run([]model.RawRecord{validRecord("evt_0"), nextDay}, testDate)

	assert.Len(t, result.Records, 1)
	assert.Equal(t, 1, result.OutOfWindow)
	assert.Equal(t, 0, result.RejectCount())
}

func TestRunEmptyInput(t *testing.T) {
	result := Run(nil, testDate)
	assert.Len(t, result.Records, 0)
	assert.Equal(t, 0, result.RejectCount())
}
