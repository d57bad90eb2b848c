package sink

import (
	"sync"

	"github.com/murat48/zktexasholdem-sub001/domain/event"
)

// StreamSink carries events from the relay to one connected participant.
// The transport handler drains Events until either side closes.
//
// Send is non-blocking: when the buffer is full or the sink is closed the
// event is dropped and Send reports false. Push delivery has no guarantee;
// the poll endpoint is the durable fallback.
type StreamSink struct {
	events chan event.Event
	done   chan struct{}
	once   sync.Once
}

func NewStreamSink(bufferSize int) *StreamSink {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &StreamSink{
		events: make(chan event.Event, bufferSize),
		done:   make(chan struct{}),
	}
}

func (s *StreamSink) Send(e event.Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- e:
		return true
	case <-s.done:
		return false
	default:
		// Buffer full: backpressure is resolved by dropping.
		return false
	}
}

// Close is idempotent. A superseded sink may be closed by the relay while
// its handler is concurrently closing it after a disconnect.
func (s *StreamSink) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *StreamSink) Events() <-chan event.Event { return s.events }

func (s *StreamSink) Done() <-chan struct{} { return s.done }
