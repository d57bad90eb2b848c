package contract

import (
	"context"
	"reflect"

	"github.com/murat48/zktexasholdem-sub001/domain"
	"github.com/murat48/zktexasholdem-sub001/domain/event"
)

// PushSink is a live, one-way delivery target bound to one (room, identity)
// pair. Send is best-effort and must never block: it reports false when the
// event could not be enqueued (sink full or closed), and callers observe
// that flag for diagnostics only, never as an error.
type PushSink interface {
	Send(e event.Event) bool
	Close()
}

// IRegistry is the process-wide session store. Every mutation executes as
// one atomic step relative to other requests touching the same room.
type IRegistry interface {
	Create(host domain.Identity) domain.RoomCode
	Lookup(code domain.RoomCode) (domain.Room, error)
	SetGuest(code domain.RoomCode, guest domain.Identity) error
	SetGameState(code domain.RoomCode, state []byte) error
	SetPendingAction(code domain.RoomCode, action []byte) error
	ConsumePendingAction(code domain.RoomCode) []byte

	Subscribe(code domain.RoomCode, identity domain.Identity, sink PushSink) (PushSink, error)
	Unsubscribe(code domain.RoomCode, address string, sink PushSink) bool
	IsSubscribed(code domain.RoomCode, address string, sink PushSink) bool
	SinkFor(code domain.RoomCode, address string) (PushSink, bool)
	Sinks(code domain.RoomCode) map[string]PushSink

	Rooms() []domain.RoomView
	Sweep() int
}

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision purposes.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
