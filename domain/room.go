package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// RoomCode is a short, human-shareable session identifier.
// Codes are case-insensitive: every code is normalized before use as a key.
type RoomCode string

// NormalizeCode maps any case variant of a code onto its canonical form.
func NormalizeCode(raw string) RoomCode {
	return RoomCode(strings.ToUpper(strings.TrimSpace(raw)))
}

// Room is one active two-player session.
//
// GameState is an opaque snapshot, authoritative only when written by the
// host and overwritten wholesale on each update. PendingAction is a
// single-slot mailbox from guest to host: a new submission overwrites an
// unconsumed older one, nothing is ever queued.
type Room struct {
	Code          RoomCode
	Host          Identity
	Guest         *Identity
	GameState     json.RawMessage
	PendingAction json.RawMessage
	CreatedAt     time.Time
}

func (r *Room) HasGuest() bool {
	return r.Guest != nil
}

// Snapshot is the read model served to clients resynchronizing outside the
// push channel, e.g. on initial load racing with stream setup.
type Snapshot struct {
	GameState json.RawMessage `json:"gameState"`
	Host      *Identity       `json:"host"`
	Guest     *Identity       `json:"guest"`
	HasGuest  bool            `json:"hasGuest"`
}

// RoomView is a copy of a room's bookkeeping for operator tooling.
type RoomView struct {
	Code        RoomCode  `json:"code"`
	Host        Identity  `json:"host"`
	Guest       *Identity `json:"guest,omitempty"`
	HasGuest    bool      `json:"hasGuest"`
	HasState    bool      `json:"hasState"`
	HasPending  bool      `json:"hasPending"`
	Subscribers int       `json:"subscribers"`
	CreatedAt   time.Time `json:"createdAt"`
}
