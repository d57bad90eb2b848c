package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"github.com/murat48/zktexasholdem-sub001/auth"
	"github.com/murat48/zktexasholdem-sub001/domain"
	"github.com/murat48/zktexasholdem-sub001/domain/event"
	"github.com/murat48/zktexasholdem-sub001/errors"
	"github.com/murat48/zktexasholdem-sub001/moderation"
	"github.com/murat48/zktexasholdem-sub001/observability"
	"github.com/murat48/zktexasholdem-sub001/runtime"
	"github.com/murat48/zktexasholdem-sub001/sink"
)

func newTestRelay(t *testing.T) *RelayService {
	t.Helper()
	log := logs.GetLoggerFromString("ERROR")
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', log)
	require.NoError(t, err)
	return NewRelayService(
		log,
		runtime.NewRegistry(log, 2*time.Hour),
		moderator,
		auth.NewAuthenticator("", 0),
		observability.NewMonitor(),
		32,
	)
}

func identity() domain.Identity {
	return domain.Identity{Address: uuid.NewString(), SessionPubKey: uuid.NewString()}
}

// drain collects everything already enqueued on a channel. Pushes happen
// synchronously inside the relay calls, so no waiting is involved.
func drain(ch *sink.StreamSink) []event.Event {
	var out []event.Event
	for {
		select {
		case e := <-ch.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func types(events []event.Event) []event.Type {
	out := make([]event.Type, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestOpenChannel_Emits_Waiting_Before_A_Guest_Joins(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay(t)
	host := identity()
	code, _, err := relay.CreateRoom(host)
	req.NoError(err)

	ch, err := relay.OpenChannel(code, host)
	req.NoError(err)

	req.Equal([]event.Type{event.Waiting}, types(drain(ch)))
}

func TestOpenChannel_Replays_SessionStart_On_Every_Reconnection(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay(t)
	host, guest := identity(), identity()
	code, _, err := relay.CreateRoom(host)
	req.NoError(err)
	_, err = relay.JoinRoom(code, guest)
	req.NoError(err)

	// When the guest connects, reloads, and connects again
	first, err := relay.OpenChannel(code, guest)
	req.NoError(err)
	second, err := relay.OpenChannel(code, guest)
	req.NoError(err)

	// Then session_start arrives on both connections, never waiting
	for _, ch := range []*sink.StreamSink{first, second} {
		events := drain(ch)
		req.NotEmpty(events)
		req.Equal(event.SessionStart, events[0].Type)
		payload, ok := events[0].Payload.(event.SessionStartPayload)
		req.True(ok)
		req.Equal(host, payload.Host)
		req.Equal(guest, payload.Guest)
	}
}

func TestOpenChannel_Replays_Existing_State_To_A_Late_Joiner(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay(t)
	host, guest := identity(), identity()
	code, _, err := relay.CreateRoom(host)
	req.NoError(err)
	_, err = relay.JoinRoom(code, guest)
	req.NoError(err)

	// Given an authoritative snapshot already exists
	req.NoError(relay.Submit(domain.RelayCommand{
		Code: code, Sender: domain.RoleHost, Payload: []byte(`{"round":3}`),
	}))

	// When the guest opens a channel afterwards
	ch, err := relay.OpenChannel(code, guest)
	req.NoError(err)

	// Then the state is delivered immediately, without any sender action
	events := drain(ch)
	req.Equal([]event.Type{event.SessionStart, event.StateUpdate}, types(events))
	req.JSONEq(`{"round":3}`, string(events[1].Payload.(json.RawMessage)))
}

func TestOpenChannel_Nudges_The_Host_When_No_State_Exists(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay(t)
	host, guest := identity(), identity()
	code, _, err := relay.CreateRoom(host)
	req.NoError(err)

	hostCh, err := relay.OpenChannel(code, host)
	req.NoError(err)
	_, err = relay.JoinRoom(code, guest)
	req.NoError(err)
	drain(hostCh)

	// When the guest connects before any snapshot exists
	_, err = relay.OpenChannel(code, guest)
	req.NoError(err)

	// Then the host is asked to broadcast its current state
	req.Contains(types(drain(hostCh)), event.StateRequest)
}

func TestOpenChannel_Unknown_Room_Is_A_Hard_Error(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay(t)

	_, err := relay.OpenChannel("NOPE42", identity())

	req.ErrorIs(err, errors.ErrRoomNotFound)
}

func TestSubmit_Host_State_Goes_To_The_Guest_Only(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay(t)
	host, guest := identity(), identity()
	code, _, err := relay.CreateRoom(host)
	req.NoError(err)
	_, err = relay.JoinRoom(code, guest)
	req.NoError(err)

	hostCh, err := relay.OpenChannel(code, host)
	req.NoError(err)
	guestCh, err := relay.OpenChannel(code, guest)
	req.NoError(err)
	drain(hostCh)
	drain(guestCh)

	// When the host pushes a new authoritative state
	req.NoError(relay.Submit(domain.RelayCommand{
		Code: code, Sender: domain.RoleHost, Payload: []byte(`{"round":1}`),
	}))

	// Then only the guest receives state_update
	guestEvents := drain(guestCh)
	req.Equal([]event.Type{event.StateUpdate}, types(guestEvents))
	req.JSONEq(`{"round":1}`, string(guestEvents[0].Payload.(json.RawMessage)))
	req.Empty(drain(hostCh))

	// And the snapshot read reflects the overwrite
	snapshot := relay.Snapshot(code)
	req.JSONEq(`{"round":1}`, string(snapshot.GameState))
}

func TestSubmit_Guest_Action_Before_A_Guest_Joined_Is_Invalid(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay(t)
	code, _, err := relay.CreateRoom(identity())
	req.NoError(err)

	err = relay.Submit(domain.RelayCommand{
		Code: code, Sender: domain.RoleGuest, Payload: []byte(`{"type":"call"}`),
	})

	req.ErrorIs(err, errors.ErrNoGuest)
}

func TestSubmit_Guest_Action_Reaches_Host_By_Push_And_Poll(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay(t)
	host, guest := identity(), identity()
	code, _, err := relay.CreateRoom(host)
	req.NoError(err)
	_, err = relay.JoinRoom(code, guest)
	req.NoError(err)

	hostCh, err := relay.OpenChannel(code, host)
	req.NoError(err)
	drain(hostCh)

	// When the guest submits an action
	req.NoError(relay.Submit(domain.RelayCommand{
		Code: code, Sender: domain.RoleGuest, Payload: []byte(`{"type":"call"}`),
	}))

	// Then the push path delivers best-effort
	hostEvents := drain(hostCh)
	req.Equal([]event.Type{event.ActionRequest}, types(hostEvents))

	// And the poll path consumes the same action exactly once
	req.JSONEq(`{"type":"call"}`, string(relay.PollAction(code)))
	req.Nil(relay.PollAction(code))
}

func TestSubmit_Guest_Push_Failure_Is_Swallowed(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay(t)
	host, guest := identity(), identity()
	code, _, err := relay.CreateRoom(host)
	req.NoError(err)
	_, err = relay.JoinRoom(code, guest)
	req.NoError(err)

	// Given the host has no open channel at all

	// When the guest submits an action
	err = relay.Submit(domain.RelayCommand{
		Code: code, Sender: domain.RoleGuest, Payload: []byte(`{"type":"raise"}`),
	})

	// Then the relay still acknowledges; the poll path remains
	req.NoError(err)
	req.JSONEq(`{"type":"raise"}`, string(relay.PollAction(code)))
}

func TestSubmit_Chat_Fans_Out_To_Every_Subscriber(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay(t)
	host, guest := identity(), identity()
	code, _, err := relay.CreateRoom(host)
	req.NoError(err)
	_, err = relay.JoinRoom(code, guest)
	req.NoError(err)

	hostCh, err := relay.OpenChannel(code, host)
	req.NoError(err)
	guestCh, err := relay.OpenChannel(code, guest)
	req.NoError(err)
	drain(hostCh)
	drain(guestCh)

	payload, err := json.Marshal(domain.ChatPayload{From: guest.Address, Text: "nice hand"})
	req.NoError(err)
	req.NoError(relay.Submit(domain.RelayCommand{Code: code, Sender: domain.RoleChat, Payload: payload}))

	// Every open channel, the sender's included, receives the identical event
	hostEvents, guestEvents := drain(hostCh), drain(guestCh)
	req.Equal([]event.Type{event.Chat}, types(hostEvents))
	req.Equal([]event.Type{event.Chat}, types(guestEvents))
	req.Equal(hostEvents[0].Payload, guestEvents[0].Payload)

	// And no chat history exists for later snapshot reads
	req.Nil(relay.Snapshot(code).GameState)
}

func TestSubmit_Chat_Text_Is_Censored(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay(t)
	host := identity()
	code, _, err := relay.CreateRoom(host)
	req.NoError(err)

	hostCh, err := relay.OpenChannel(code, host)
	req.NoError(err)
	drain(hostCh)

	payload, err := json.Marshal(domain.ChatPayload{From: host.Address, Text: "you sneaky badger"})
	req.NoError(err)
	req.NoError(relay.Submit(domain.RelayCommand{Code: code, Sender: domain.RoleChat, Payload: payload}))

	events := drain(hostCh)
	req.Len(events, 1)
	chat, ok := events[0].Payload.(domain.ChatPayload)
	req.True(ok)
	req.Equal("you sneaky ******", chat.Text)
}

func TestCloseChannel_Genuine_Removal_Broadcasts_Disconnect(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay(t)
	host, guest := identity(), identity()
	code, _, err := relay.CreateRoom(host)
	req.NoError(err)
	_, err = relay.JoinRoom(code, guest)
	req.NoError(err)

	hostCh, err := relay.OpenChannel(code, host)
	req.NoError(err)
	guestCh, err := relay.OpenChannel(code, guest)
	req.NoError(err)
	drain(hostCh)
	drain(guestCh)

	// When the guest's channel genuinely closes
	relay.CloseChannel(code, guest.Address, guestCh)

	// Then the host is told its opponent disconnected
	events := drain(hostCh)
	req.Equal([]event.Type{event.OpponentDisconnected}, types(events))
	req.Equal(event.DisconnectPayload{Address: guest.Address}, events[0].Payload)
}

func TestCloseChannel_Stale_Close_After_Reconnect_Is_A_NoOp(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay(t)
	host, guest := identity(), identity()
	code, _, err := relay.CreateRoom(host)
	req.NoError(err)
	_, err = relay.JoinRoom(code, guest)
	req.NoError(err)

	hostCh, err := relay.OpenChannel(code, host)
	req.NoError(err)

	// Given the guest reconnected before its old channel tore down
	oldCh, err := relay.OpenChannel(code, guest)
	req.NoError(err)
	newCh, err := relay.OpenChannel(code, guest)
	req.NoError(err)
	drain(hostCh)

	// When the stale close is delivered
	relay.CloseChannel(code, guest.Address, oldCh)

	// Then the new channel stays registered and no disconnect is announced
	req.True(relay.ChannelAlive(code, guest.Address, newCh))
	req.Empty(drain(hostCh))

	// And the superseded channel was closed so its keepalive loop ends
	select {
	case <-oldCh.Done():
	default:
		t.Fatal("superseded channel must be closed")
	}
}

func TestJoinRoom_Announces_Session_To_The_Connected_Host(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay(t)
	host, guest := identity(), identity()
	code, _, err := relay.CreateRoom(host)
	req.NoError(err)

	hostCh, err := relay.OpenChannel(code, host)
	req.NoError(err)
	drain(hostCh)

	_, err = relay.JoinRoom(code, guest)
	req.NoError(err)

	req.Equal([]event.Type{event.SessionStart}, types(drain(hostCh)))
}

func TestJoinRoom_Seat_Conflicts(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay(t)
	code, _, err := relay.CreateRoom(identity())
	req.NoError(err)
	guest := identity()

	_, err = relay.JoinRoom(code, guest)
	req.NoError(err)

	// Re-joining under the same identity is fine; a different one conflicts
	_, err = relay.JoinRoom(code, guest)
	req.NoError(err)
	_, err = relay.JoinRoom(code, identity())
	req.ErrorIs(err, errors.ErrSeatTaken)
}

func TestSnapshot_Unknown_Room_Is_Empty_Not_An_Error(t *testing.T) {
	req := require.New(t)
	relay := newTestRelay(t)

	snapshot := relay.Snapshot("GONE99")

	req.Nil(snapshot.GameState)
	req.Nil(snapshot.Host)
	req.False(snapshot.HasGuest)
}
