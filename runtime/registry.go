package runtime

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/murat48/zktexasholdem-sub001/contract"
	"github.com/murat48/zktexasholdem-sub001/domain"
	"github.com/murat48/zktexasholdem-sub001/errors"
)

const codeLength = 6

// Registry is the process-wide session store: room code -> room state plus
// the live subscriber sink per participant. It is memory-resident and
// single-process by design; a restart loses every session.
//
// Eviction is lazy: Sweep runs on the create and lookup paths, not on a
// guaranteed timer, so a room may outlive its window when no triggering
// traffic occurs. Deployments needing bounded staleness run the
// workers.Sweeper alongside.
type Registry struct {
	log *slog.Logger
	ttl time.Duration

	mu    sync.RWMutex
	rooms map[domain.RoomCode]*roomEntry
	now   func() time.Time
}

type roomEntry struct {
	room        domain.Room
	subscribers map[string]contract.PushSink
}

func NewRegistry(log *slog.Logger, ttl time.Duration) *Registry {
	return &Registry{
		log:   log,
		ttl:   ttl,
		rooms: make(map[domain.RoomCode]*roomEntry),
		now:   time.Now,
	}
}

// Create registers a new room under a previously unused code and returns it.
func (r *Registry) Create(host domain.Identity) domain.RoomCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	code := r.unusedCodeLocked()
	r.rooms[code] = &roomEntry{
		room: domain.Room{
			Code:      code,
			Host:      host,
			CreatedAt: r.now(),
		},
		subscribers: make(map[string]contract.PushSink),
	}
	return code
}

// Lookup resolves a code case-insensitively and returns a copy of the room.
func (r *Registry) Lookup(code domain.RoomCode) (domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	entry, ok := r.rooms[domain.NormalizeCode(string(code))]
	if !ok {
		return domain.Room{}, fmt.Errorf("lookup %q: %w", code, errors.ErrRoomNotFound)
	}
	return entry.room, nil
}

// SetGuest seats a guest. Re-joining under the same address is a no-op;
// a different address against an occupied seat is refused.
func (r *Registry) SetGuest(code domain.RoomCode, guest domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rooms[domain.NormalizeCode(string(code))]
	if !ok {
		return fmt.Errorf("set guest %q: %w", code, errors.ErrRoomNotFound)
	}
	if entry.room.Guest != nil && entry.room.Guest.Address != guest.Address {
		return fmt.Errorf("set guest %q: %w", code, errors.ErrSeatTaken)
	}
	entry.room.Guest = &guest
	return nil
}

// SetGameState overwrites the authoritative snapshot wholesale.
func (r *Registry) SetGameState(code domain.RoomCode, state []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rooms[domain.NormalizeCode(string(code))]
	if !ok {
		return fmt.Errorf("set state %q: %w", code, errors.ErrRoomNotFound)
	}
	entry.room.GameState = state
	return nil
}

// SetPendingAction fills the guest->host mailbox, overwriting any
// unconsumed older action.
func (r *Registry) SetPendingAction(code domain.RoomCode, action []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rooms[domain.NormalizeCode(string(code))]
	if !ok {
		return fmt.Errorf("set pending action %q: %w", code, errors.ErrRoomNotFound)
	}
	entry.room.PendingAction = action
	return nil
}

// ConsumePendingAction reads and clears the mailbox as a single step, so two
// back-to-back consumptions never both observe the same action. A missing
// room or empty mailbox both yield nil: a poller must never treat transient
// absence as fatal.
func (r *Registry) ConsumePendingAction(code domain.RoomCode) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rooms[domain.NormalizeCode(string(code))]
	if !ok {
		return nil
	}
	action := entry.room.PendingAction
	entry.room.PendingAction = nil
	return action
}

// Subscribe registers sink as the one live channel for identity, superseding
// and returning any previous sink so the caller can close it. At most one
// channel per identity exists at any instant.
func (r *Registry) Subscribe(code domain.RoomCode, identity domain.Identity, sink contract.PushSink) (contract.PushSink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rooms[domain.NormalizeCode(string(code))]
	if !ok {
		return nil, fmt.Errorf("subscribe %q: %w", code, errors.ErrRoomNotFound)
	}
	prev := entry.subscribers[identity.Address]
	entry.subscribers[identity.Address] = sink
	return prev, nil
}

// Unsubscribe deregisters only if sink is still the one recorded for the
// address. A stale close racing behind a fast reconnect finds a newer sink
// registered and must leave it untouched.
func (r *Registry) Unsubscribe(code domain.RoomCode, address string, sink contract.PushSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rooms[domain.NormalizeCode(string(code))]
	if !ok {
		return false
	}
	if entry.subscribers[address] != sink {
		return false
	}
	delete(entry.subscribers, address)
	return true
}

// IsSubscribed reports whether sink is still the registered channel for the
// address. Keepalive loops use this to self-terminate.
func (r *Registry) IsSubscribed(code domain.RoomCode, address string, sink contract.PushSink) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.rooms[domain.NormalizeCode(string(code))]
	if !ok {
		return false
	}
	return entry.subscribers[address] == sink
}

func (r *Registry) SinkFor(code domain.RoomCode, address string) (contract.PushSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.rooms[domain.NormalizeCode(string(code))]
	if !ok {
		return nil, false
	}
	sink, ok := entry.subscribers[address]
	return sink, ok
}

// Sinks returns the current subscribers of a room, address -> sink.
func (r *Registry) Sinks(code domain.RoomCode) map[string]contract.PushSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.rooms[domain.NormalizeCode(string(code))]
	if !ok {
		return nil
	}
	out := make(map[string]contract.PushSink, len(entry.subscribers))
	for addr, s := range entry.subscribers {
		out[addr] = s
	}
	return out
}

// Rooms returns a copy of the bookkeeping for operator tooling.
func (r *Registry) Rooms() []domain.RoomView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	views := make([]domain.RoomView, 0, len(r.rooms))
	for _, entry := range r.rooms {
		views = append(views, domain.RoomView{
			Code:        entry.room.Code,
			Host:        entry.room.Host,
			Guest:       entry.room.Guest,
			HasGuest:    entry.room.HasGuest(),
			HasState:    entry.room.GameState != nil,
			HasPending:  entry.room.PendingAction != nil,
			Subscribers: len(entry.subscribers),
			CreatedAt:   entry.room.CreatedAt,
		})
	}
	return views
}

// Sweep removes every room past the inactivity window and closes its
// subscribers. Returns the number of rooms evicted.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked()
}

func (r *Registry) sweepLocked() int {
	cutoff := r.now().Add(-r.ttl)
	evicted := 0
	for code, entry := range r.rooms {
		if entry.room.CreatedAt.After(cutoff) {
			continue
		}
		for _, s := range entry.subscribers {
			s.Close()
		}
		delete(r.rooms, code)
		evicted++
		r.log.Info("Room evicted", "code", code, "created_at", entry.room.CreatedAt)
	}
	return evicted
}

func (r *Registry) unusedCodeLocked() domain.RoomCode {
	for {
		raw := strings.ReplaceAll(uuid.NewString(), "-", "")
		code := domain.NormalizeCode(raw[:codeLength])
		if _, taken := r.rooms[code]; !taken {
			return code
		}
	}
}
