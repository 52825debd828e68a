package events

import (
	"encoding/json"
	"time"
)

const (
	TypePing              = "ping"
	TypeTriggered         = "triggered"
	TypeEmployersRendered = "employers_rendered"
	TypeEmployersFailed   = "employers_failed"
	TypeRegionUpdated     = "region_updated"
)

// Event is the envelope sent on /events.
type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// MakeEvent encodes an envelope. reqID is the HTTP request id or the
// loader cycle id that produced the event.
func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
