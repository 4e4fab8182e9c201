package socket

import (
	"container/list"
	"fmt"
	"sync"

	events "github.com/docker/go-events"

	"github.com/ambercast/relay/transport"
)

// frame is one outbound wire event: a frame kind and its bytes. It
// implements events.Event so the queue can be built directly on top of
// docker/go-events' Sink contract, the way the teacher's notification
// dispatch does for its own outbound events.
type frame struct {
	kind transport.FrameKind
	data []byte
}

// transportSink adapts a transport.Conn into an events.Sink.
type transportSink struct {
	conn transport.Conn
}

func (s *transportSink) Write(event events.Event) error {
	f, ok := event.(frame)
	if !ok {
		return fmt.Errorf("socket: unexpected event type %T", event)
	}
	return s.conn.Send(f.kind, f.data)
}

func (s *transportSink) Close() error {
	return nil
}

// outboundQueue accepts frames for asynchronous delivery to a sink, so a
// caller's emit never blocks on a slow or stuck transport write. It is
// unbounded and thread safe but the sink must eventually keep up or frames
// will pile up in memory.
type outboundQueue struct {
	sink       events.Sink
	events     *list.List
	cond       *sync.Cond
	mu         sync.Mutex
	closed     bool
	onWriteErr func(error)
}

func newOutboundQueue(sink events.Sink, onWriteErr func(error)) *outboundQueue {
	q := &outboundQueue{
		sink:       sink,
		events:     list.New(),
		onWriteErr: onWriteErr,
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// errQueueClosed is returned by Write once Close has been called.
var errQueueClosed = fmt.Errorf("socket: outbound queue closed")

// Write enqueues a frame, failing only if the queue has already closed.
func (q *outboundQueue) Write(f frame) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return errQueueClosed
	}

	q.events.PushBack(f)
	q.cond.Signal()
	return nil
}

// Close marks the queue closed and waits for the drain goroutine to flush
// whatever was already queued before returning.
func (q *outboundQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.cond.Signal()
	q.cond.Wait()
	q.mu.Unlock()

	return q.sink.Close()
}

// run is the single drain goroutine; it flushes events to the sink in
// submission order until the queue is closed and empty.
func (q *outboundQueue) run() {
	for {
		q.mu.Lock()
		for q.events.Len() == 0 && !q.closed {
			q.cond.Wait()
		}

		next := q.events.Front()
		if next == nil {
			// closed with nothing left to flush.
			q.cond.Signal()
			q.mu.Unlock()
			return
		}
		q.events.Remove(next)
		q.mu.Unlock()

		f := next.Value.(frame)
		if err := q.sink.Write(f); err != nil && q.onWriteErr != nil {
			q.onWriteErr(err)
		}
	}
}
