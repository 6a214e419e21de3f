package model

// SessionRecord is one session's aggregated activity, the unit the funnel
// is counted over. Sessions only exist when at least one qualifying event
// exists; the aggregator never creates empty sessions.
type SessionRecord struct {
	SessionID string `json:"session_id"`
	ActorID   string `json:"actor_id"`
	Segment   string `json:"segment"`

	// Step name -> session reached the step, an OR across the session's
	// events. Order within the session does not affect flags.
	Reached map[string]bool `json:"reached"`

	StartTimestamp int64 `json:"start_timestamp"`
	EndTimestamp   int64 `json:"end_timestamp"`
	EventCount     int   `json:"event_count"`
	HadError       bool  `json:"had_error"`
}
