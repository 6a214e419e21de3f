package sessionagg

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"daymart/model/model"
)

// Labels that mark an event as a failure for the session error flag.
var errorLabels = map[string]bool{"error": true, "failure": true}

type Status struct {
	NoOfSessions        int `json:"no_of_sessions"`
	NoOfEventsProcessed int `json:"no_of_events_processed"`
}

// Run groups deduplicated records by session id and derives one
// SessionRecord per session. Step flags are an OR across the session's
// events; only the timing fields depend on event order. Sessions without
// events are never created.
func Run(records []model.DedupRecord, steps []model.FunnelStep) ([]model.SessionRecord, *Status) {
	bySession := make(map[string][]model.DedupRecord)
	sessionIDs := make([]string, 0)

	for i := range records {
		sessionID := records[i].SessionID
		if _, exists := bySession[sessionID]; !exists {
			sessionIDs = append(sessionIDs, sessionID)
		}
		bySession[sessionID] = append(bySession[sessionID], records[i])
	}

	sort.Strings(sessionIDs)

	status := &Status{NoOfEventsProcessed: len(records)}
	sessions := make([]model.SessionRecord, 0, len(sessionIDs))

	for _, sessionID := range sessionIDs {
		events := bySession[sessionID]
		sort.Slice(events, func(i, j int) bool {
			if events[i].Timestamp != events[j].Timestamp {
				return events[i].Timestamp < events[j].Timestamp
			}
			return events[i].ID < events[j].ID
		})

		sessions = append(sessions, aggregate(sessionID, events, steps))
	}

	status.NoOfSessions = len(sessions)
	log.WithFields(log.Fields{
		"no_of_sessions": status.NoOfSessions,
		"no_of_events":   status.NoOfEventsProcessed,
	}).Info("Aggregated sessions.")

	return sessions, status
}

func aggregate(sessionID string, events []model.DedupRecord, steps []model.FunnelStep) model.SessionRecord {
	session := model.SessionRecord{
		SessionID:      sessionID,
		Segment:        events[0].Segment,
		Reached:        make(map[string]bool, len(steps)),
		StartTimestamp: events[0].Timestamp,
		EndTimestamp:   events[len(events)-1].Timestamp,
		EventCount:     len(events),
	}

	stepByEventName := make(map[string]string, len(steps))
	for _, step := range steps {
		stepByEventName[step.EventName] = step.Name
	}

	for i := range events {
		if stepName, exists := stepByEventName[events[i].Taxonomy.Name()]; exists {
			session.Reached[stepName] = true
		}
		if errorLabels[events[i].Taxonomy.Label] {
			session.HadError = true
		}
		// First authenticated actor in event order identifies the session.
		if session.ActorID == "" && !model.IsAnonymousActor(events[i].ActorID) {
			session.ActorID = events[i].ActorID
		}
	}

	return session
}
