// Package event defines the push vocabulary delivered over a participant's
// channel. One event per frame, encoded as a single JSON payload.
package event

import (
	"encoding/json"
	"time"

	"github.com/murat48/zktexasholdem-sub001/domain"
)

type Type string

const (
	// Waiting is emitted to a freshly opened channel while no guest has joined.
	Waiting Type = "waiting"
	// SessionStart carries both identities; re-emitted on every (re)connection
	// so a reloading client can rebuild its view of the opponent.
	SessionStart Type = "session_start"
	// StateUpdate carries the host's authoritative snapshot.
	StateUpdate Type = "state_update"
	// ActionRequest carries a guest action towards the host (best-effort push;
	// the poll endpoint is the durable path).
	ActionRequest Type = "action_request"
	// StateRequest asks the host to rebroadcast its current state. Pushed to
	// the host when a guest connects before any snapshot exists.
	StateRequest Type = "state_request"
	Chat         Type = "chat"
	// OpponentDisconnected is broadcast only on a genuine deregistration,
	// never on a stale close superseded by a reconnect.
	OpponentDisconnected Type = "opponent_disconnected"
	Ping                 Type = "ping"
)

type Event struct {
	Type    Type      `json:"type"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

type SessionStartPayload struct {
	Host  domain.Identity `json:"host"`
	Guest domain.Identity `json:"guest"`
}

type DisconnectPayload struct {
	Address string `json:"address"`
}

func NewWaiting() Event {
	return Event{Type: Waiting, At: time.Now().UTC()}
}

func NewSessionStart(host, guest domain.Identity) Event {
	return Event{
		Type:    SessionStart,
		Payload: SessionStartPayload{Host: host, Guest: guest},
		At:      time.Now().UTC(),
	}
}

func NewStateUpdate(state json.RawMessage) Event {
	return Event{Type: StateUpdate, Payload: state, At: time.Now().UTC()}
}

func NewActionRequest(action json.RawMessage) Event {
	return Event{Type: ActionRequest, Payload: action, At: time.Now().UTC()}
}

func NewStateRequest() Event {
	return Event{Type: StateRequest, At: time.Now().UTC()}
}

func NewChat(payload domain.ChatPayload) Event {
	return Event{Type: Chat, Payload: payload, At: time.Now().UTC()}
}

func NewOpponentDisconnected(address string) Event {
	return Event{
		Type:    OpponentDisconnected,
		Payload: DisconnectPayload{Address: address},
		At:      time.Now().UTC(),
	}
}

func NewPing() Event {
	return Event{Type: Ping, At: time.Now().UTC()}
}
