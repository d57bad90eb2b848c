package services

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/murat48/zktexasholdem-sub001/auth"
	"github.com/murat48/zktexasholdem-sub001/contract"
	"github.com/murat48/zktexasholdem-sub001/domain"
	"github.com/murat48/zktexasholdem-sub001/domain/event"
	"github.com/murat48/zktexasholdem-sub001/errors"
	"github.com/murat48/zktexasholdem-sub001/moderation"
	"github.com/murat48/zktexasholdem-sub001/observability"
	"github.com/murat48/zktexasholdem-sub001/sink"
)

type IRelayService interface {
	CreateRoom(host domain.Identity) (domain.RoomCode, string, error)
	JoinRoom(code domain.RoomCode, guest domain.Identity) (string, error)
	Submit(cmd domain.RelayCommand) error
	PollAction(code domain.RoomCode) json.RawMessage
	Snapshot(code domain.RoomCode) domain.Snapshot
	OpenChannel(code domain.RoomCode, identity domain.Identity) (*sink.StreamSink, error)
	CloseChannel(code domain.RoomCode, address string, s contract.PushSink)
	ChannelAlive(code domain.RoomCode, address string, s contract.PushSink) bool
	Rooms() []domain.RoomView
}

// RelayService owns the routing and authority rules between the two peers of
// a session. It never blocks on delivery: pushes are fire-and-forget, and the
// poll endpoint is the durable fallback for guest actions.
type RelayService struct {
	log        *slog.Logger
	registry   contract.IRegistry
	moderator  *moderation.Moderator
	tokens     *auth.Authenticator
	monitor    *observability.Monitor
	bufferSize int
}

func NewRelayService(
	log *slog.Logger,
	registry contract.IRegistry,
	moderator *moderation.Moderator,
	tokens *auth.Authenticator,
	monitor *observability.Monitor,
	bufferSize int,
) *RelayService {
	return &RelayService{
		log:        log,
		registry:   registry,
		moderator:  moderator,
		tokens:     tokens,
		monitor:    monitor,
		bufferSize: bufferSize,
	}
}

func (s *RelayService) CreateRoom(host domain.Identity) (domain.RoomCode, string, error) {
	code := s.registry.Create(host)
	s.monitor.RoomsCreated.Add(1)
	s.log.Info("Room created", "code", code, "host", host.Address)

	token, err := s.tokens.Mint(code, host, domain.RoleHost)
	if err != nil {
		return "", "", fmt.Errorf("mint host token: %w", err)
	}
	return code, token, nil
}

// JoinRoom seats the guest and announces the now-complete session to every
// channel already open, so a connected host learns about its opponent
// without reconnecting.
func (s *RelayService) JoinRoom(code domain.RoomCode, guest domain.Identity) (string, error) {
	room, err := s.registry.Lookup(code)
	if err != nil {
		return "", err
	}
	firstJoin := !room.HasGuest()

	if err := s.registry.SetGuest(code, guest); err != nil {
		return "", err
	}
	s.log.Info("Guest joined", "code", code, "guest", guest.Address)

	if firstJoin {
		started := event.NewSessionStart(room.Host, guest)
		for addr, sub := range s.registry.Sinks(code) {
			s.push(sub, started, addr)
		}
	}

	token, err := s.tokens.Mint(code, guest, domain.RoleGuest)
	if err != nil {
		return "", fmt.Errorf("mint guest token: %w", err)
	}
	return token, nil
}

// Submit applies the routing rules for one relay request:
//
//	host  -> overwrite gameState, push state_update to the guest only
//	guest -> overwrite pendingGuestAction, best-effort action_request to host
//	chat  -> no persistence, broadcast to every current subscriber
func (s *RelayService) Submit(cmd domain.RelayCommand) error {
	room, err := s.registry.Lookup(cmd.Code)
	if err != nil {
		return err
	}

	switch cmd.Sender {
	case domain.RoleHost:
		if err := s.registry.SetGameState(cmd.Code, cmd.Payload); err != nil {
			return err
		}
		if room.HasGuest() {
			if sub, ok := s.registry.SinkFor(cmd.Code, room.Guest.Address); ok {
				s.push(sub, event.NewStateUpdate(cmd.Payload), room.Guest.Address)
			}
		}
		return nil

	case domain.RoleGuest:
		if !room.HasGuest() {
			return fmt.Errorf("relay guest action in %q: %w", cmd.Code, errors.ErrNoGuest)
		}
		if err := s.registry.SetPendingAction(cmd.Code, cmd.Payload); err != nil {
			return err
		}
		if sub, ok := s.registry.SinkFor(cmd.Code, room.Host.Address); ok {
			s.push(sub, event.NewActionRequest(cmd.Payload), room.Host.Address)
		}
		return nil

	case domain.RoleChat:
		evt := event.NewChat(s.chatPayload(cmd.Payload))
		for addr, sub := range s.registry.Sinks(cmd.Code) {
			s.push(sub, evt, addr)
		}
		return nil

	default:
		return fmt.Errorf("unsupported sender role %q", cmd.Sender)
	}
}

// PollAction is the durable pull half of guest->host delivery. Consuming is
// the side effect of a successful read; nothing pending and an unknown or
// evicted room both yield nil so a slow poller never mistakes quiescence for
// a crash.
func (s *RelayService) PollAction(code domain.RoomCode) json.RawMessage {
	action := s.registry.ConsumePendingAction(code)
	if action == nil {
		s.monitor.PollMisses.Add(1)
		return nil
	}
	s.monitor.PollHits.Add(1)
	return action
}

// Snapshot downgrades not-found to an empty result, mirroring PollAction.
func (s *RelayService) Snapshot(code domain.RoomCode) domain.Snapshot {
	room, err := s.registry.Lookup(code)
	if err != nil {
		return domain.Snapshot{}
	}
	return domain.Snapshot{
		GameState: room.GameState,
		Host:      &room.Host,
		Guest:     room.Guest,
		HasGuest:  room.HasGuest(),
	}
}

// OpenChannel registers a fresh sink as the one live channel for identity,
// superseding any previous one, and runs the catch-up choreography:
//
//  1. no guest yet: waiting, to this channel only;
//  2. otherwise session_start with both identities, on every (re)connection;
//  3. an existing snapshot is replayed immediately;
//  4. a guest connecting before any snapshot exists nudges the host to
//     broadcast its state instead of waiting for it to act spontaneously.
func (s *RelayService) OpenChannel(code domain.RoomCode, identity domain.Identity) (*sink.StreamSink, error) {
	room, err := s.registry.Lookup(code)
	if err != nil {
		return nil, err
	}

	ch := sink.NewStreamSink(s.bufferSize)
	prev, err := s.registry.Subscribe(code, identity, ch)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		// The superseded channel's teardown must not unregister us; the
		// registry compares sinks on deregistration.
		prev.Close()
	}
	s.log.Info("Channel opened", "code", code, "address", identity.Address)

	if !room.HasGuest() {
		s.push(ch, event.NewWaiting(), identity.Address)
	} else {
		s.push(ch, event.NewSessionStart(room.Host, *room.Guest), identity.Address)
	}

	if room.GameState != nil {
		s.push(ch, event.NewStateUpdate(room.GameState), identity.Address)
	} else if room.HasGuest() && identity.Address == room.Guest.Address {
		if hostSink, ok := s.registry.SinkFor(code, room.Host.Address); ok {
			s.push(hostSink, event.NewStateRequest(), room.Host.Address)
		}
	}
	return ch, nil
}

// CloseChannel tears down a channel. When the closing sink has already been
// superseded by a reconnect the call is a no-op: the newer registration
// stays, and no disconnect is announced for a session that is still
// connected. Only a genuine removal broadcasts opponent_disconnected.
func (s *RelayService) CloseChannel(code domain.RoomCode, address string, ch contract.PushSink) {
	if !s.registry.Unsubscribe(code, address, ch) {
		return
	}
	ch.Close()
	s.log.Info("Channel closed", "code", code, "address", address)

	evt := event.NewOpponentDisconnected(address)
	for addr, sub := range s.registry.Sinks(code) {
		s.push(sub, evt, addr)
	}
}

// ChannelAlive lets per-connection keepalive loops self-terminate once their
// sink is no longer the registered subscriber.
func (s *RelayService) ChannelAlive(code domain.RoomCode, address string, ch contract.PushSink) bool {
	return s.registry.IsSubscribed(code, address, ch)
}

func (s *RelayService) Rooms() []domain.RoomView {
	return s.registry.Rooms()
}

// push is fire-and-forget: a failed enqueue is counted and logged, never
// surfaced to the sender.
func (s *RelayService) push(sub contract.PushSink, evt event.Event, address string) {
	if sub.Send(evt) {
		s.monitor.EventsDelivered.Add(1)
		return
	}
	s.monitor.EventsDropped.Add(1)
	s.log.Debug("Push dropped", "type", evt.Type, "address", address)
}

func (s *RelayService) chatPayload(raw json.RawMessage) domain.ChatPayload {
	var payload domain.ChatPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Text == "" {
		// Unrecognized chat shape: relay the raw text untouched.
		return domain.ChatPayload{Text: string(raw)}
	}
	censored, masked := s.moderator.Censor(payload.Text)
	if masked {
		s.monitor.ChatCensored.Add(1)
	}
	payload.Text = censored
	payload.Lang = s.moderator.Language(censored)
	return payload
}
