package pubsub

import (
	"encoding/json"
	"time"
)

// Event types published by the draft service
const (
	EventSessionUpdate    = "session:update"
	EventRosterSubmit     = "roster:submit"
	EventPricesUpdate     = "prices:update"
	EventCandidatesUpdate = "candidates:update"
)

// Event represents a pubsub event
type Event struct {
	Type      string         `json:"type"`
	RoundID   string         `json:"roundId,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	TS        int64          `json:"ts"`
}

// NewEvent builds an event whose payload is the JSON object form of v, so
// it survives a trip through NATS unchanged
func NewEvent(typ string, v any) Event {
	e := Event{Type: typ, TS: time.Now().UnixMilli()}
	if v == nil {
		return e
	}
	data, err := json.Marshal(v)
	if err != nil {
		return e
	}
	var payload map[string]any
	if json.Unmarshal(data, &payload) == nil {
		e.Payload = payload
	}
	return e
}

// Matches reports whether the event may be delivered to userID and concerns
// the given round and session. Events owned by another user never match.
// Empty round and session arguments match everything; round-wide events
// carry no session and match every session of the round.
func (e Event) Matches(userID, roundID, sessionID string) bool {
	if e.UserID != "" && e.UserID != userID {
		return false
	}
	if roundID != "" && e.RoundID != "" && e.RoundID != roundID {
		return false
	}
	if sessionID != "" && e.SessionID != "" && e.SessionID != sessionID {
		return false
	}
	return true
}
