package domain

import (
	"encoding/json"
	"time"
)

// RelayCommand is one accepted relay request, routed by sender role.
type RelayCommand struct {
	Code    RoomCode
	Sender  Role
	Payload json.RawMessage
	At      time.Time
}

// ChatPayload is the only relayed payload the relay looks inside of:
// chat text passes through moderation before broadcast. Everything else
// (game state, actions) stays opaque.
type ChatPayload struct {
	From string `json:"from"`
	Text string `json:"text"`
	Lang string `json:"lang,omitempty"`
}
