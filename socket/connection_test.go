package socket

import (
	"sync"
	"testing"
	"time"

	"github.com/ambercast/relay/transport"
)

// fakeConn is an in-memory transport.Conn used to exercise Connection
// without a real socket.
type fakeConn struct {
	mu       sync.Mutex
	id       string
	sent     []fakeFrame
	onMsg    transport.MessageHandler
	onClose  transport.CloseHandler
	closed   bool
	closedBy string
}

type fakeFrame struct {
	kind transport.FrameKind
	data []byte
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) OnMessage(h transport.MessageHandler) { f.onMsg = h }
func (f *fakeConn) OnClose(h transport.CloseHandler)     { f.onClose = h }

func (f *fakeConn) Send(kind transport.FrameKind, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, fakeFrame{kind: kind, data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Close(reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closedBy = reason
	return nil
}

func (f *fakeConn) deliver(kind transport.FrameKind, data []byte) {
	f.onMsg(kind, data)
}

func (f *fakeConn) snapshot() []fakeFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeFrame, len(f.sent))
	copy(out, f.sent)
	return out
}

// waitForFrames polls until at least n frames have been sent, or fails the
// test after a short timeout; emits are delivered asynchronously via the
// outbound queue's drain goroutine.
func waitForFrames(t *testing.T, fc *fakeConn, n int) []fakeFrame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if frames := fc.snapshot(); len(frames) >= n {
			return frames
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d frames, got %d", n, len(fc.snapshot()))
	return nil
}

// fakeRegistrar is a minimal Registrar used by tests that do not need a
// real hub.Registry.
type fakeRegistrar struct {
	mu             sync.Mutex
	joined         []string
	left           []string
	unregistered   bool
	unregisteredBy *Connection
}

func (r *fakeRegistrar) JoinRoom(c *Connection, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joined = append(r.joined, room)
	c.NoteJoined(room)
}

func (r *fakeRegistrar) LeaveRoom(c *Connection, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.left = append(r.left, room)
	c.NoteLeft(room)
}

func (r *fakeRegistrar) Unregister(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregistered = true
	r.unregisteredBy = c
}

func TestEmitSendsBinaryEventWithAttachments(t *testing.T) {
	fc := newFakeConn("peer-1")
	reg := &fakeRegistrar{}
	c := New(fc, reg)

	if err := c.Emit("upload", []interface{}{[]byte{0xde, 0xad}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frames := waitForFrames(t, fc, 2)
	if frames[0].kind != transport.Text {
		t.Fatalf("expected first frame to be text, got %v", frames[0].kind)
	}
	if string(frames[0].data[:2]) != "51" {
		t.Fatalf("expected a BinaryEvent prefix, got %q", frames[0].data)
	}
	if frames[1].kind != transport.Binary || frames[1].data[0] != 0xde {
		t.Fatalf("unexpected attachment frame: %+v", frames[1])
	}
}

func TestJoinLeaveDelegatesToRegistrarAndTracksLocally(t *testing.T) {
	fc := newFakeConn("peer-1")
	reg := &fakeRegistrar{}
	c := New(fc, reg)

	c.Join("room-a")
	if len(reg.joined) != 1 || reg.joined[0] != "room-a" {
		t.Fatalf("expected registrar to observe the join: %+v", reg.joined)
	}
	if rooms := c.Rooms(); len(rooms) != 1 || rooms[0] != "room-a" {
		t.Fatalf("expected local room tracking to include room-a: %+v", rooms)
	}

	c.Leave("room-a")
	if len(reg.left) != 1 || reg.left[0] != "room-a" {
		t.Fatalf("expected registrar to observe the leave: %+v", reg.left)
	}
	if rooms := c.Rooms(); len(rooms) != 0 {
		t.Fatalf("expected room-a to be gone locally: %+v", rooms)
	}
}

func TestInboundEventWithAckRepliesAck(t *testing.T) {
	fc := newFakeConn("peer-1")
	reg := &fakeRegistrar{}
	c := New(fc, reg)

	var gotParams []interface{}
	c.On("greet", func(params []interface{}, binary [][]byte) []interface{} {
		gotParams = params
		return []interface{}{"hello"}
	})

	fc.deliver(transport.Text, []byte(`2/,1["greet","world"]`))

	frames := waitForFrames(t, fc, 1)
	if string(frames[0].data) != `3/,1["hello"]` {
		t.Fatalf("unexpected ack frame: %q", frames[0].data)
	}
	if len(gotParams) != 1 || gotParams[0] != "world" {
		t.Fatalf("unexpected params delivered to handler: %+v", gotParams)
	}
}

func TestInboundAckInvokesPendingContinuationOnce(t *testing.T) {
	fc := newFakeConn("peer-1")
	reg := &fakeRegistrar{}
	c := New(fc, reg)

	calls := 0
	var got []interface{}
	if err := c.EmitAck("ping", nil, func(params []interface{}, binary [][]byte) {
		calls++
		got = params
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitForFrames(t, fc, 1)

	fc.deliver(transport.Text, []byte(`30["pong"]`))
	// A second ack for the same (already-consumed) id must be dropped.
	fc.deliver(transport.Text, []byte(`30["pong"]`))

	if calls != 1 {
		t.Fatalf("expected the continuation to fire exactly once, got %d", calls)
	}
	if len(got) != 1 || got[0] != "pong" {
		t.Fatalf("unexpected ack params: %+v", got)
	}
}

func TestCloseDropsPendingAcksAndUnregisters(t *testing.T) {
	fc := newFakeConn("peer-1")
	reg := &fakeRegistrar{}
	c := New(fc, reg)

	invoked := false
	if err := c.EmitAck("ping", nil, func(params []interface{}, binary [][]byte) {
		invoked = true
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForFrames(t, fc, 1)

	var closeReason string
	var closeWG sync.WaitGroup
	closeWG.Add(1)
	c.OnClose(func(reason string) {
		closeReason = reason
		closeWG.Done()
	})

	if err := c.Close("shutting down"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	closeWG.Wait()

	if !fc.closed {
		t.Fatal("expected the transport to be closed")
	}
	if !reg.unregistered {
		t.Fatal("expected the registrar to observe Unregister")
	}
	if closeReason != "shutting down" {
		t.Fatalf("unexpected close reason: %q", closeReason)
	}
	if invoked {
		t.Fatal("pending ack must be dropped, not invoked, on close")
	}
}

func TestConnectSetsCurrentNamespace(t *testing.T) {
	fc := newFakeConn("peer-1")
	reg := &fakeRegistrar{}
	c := New(fc, reg)

	fc.deliver(transport.Text, []byte("0/chat"))

	if ns := c.namespaceSnapshot(); ns == nil || *ns != "/chat" {
		t.Fatalf("expected current namespace to be set: %v", ns)
	}
}

func TestFramingErrorRepliesWithErrorPacketAndStaysOpen(t *testing.T) {
	fc := newFakeConn("peer-1")
	reg := &fakeRegistrar{}
	c := New(fc, reg)

	fc.deliver(transport.Text, []byte("2[]")) // NoEvent

	frames := waitForFrames(t, fc, 1)
	if frames[0].data[0] != '4' {
		t.Fatalf("expected an Error opcode reply, got %q", frames[0].data)
	}
	if fc.closed {
		t.Fatal("a framing error must not close the connection")
	}

	// The connection must still be usable afterward.
	if err := c.Emit("still-alive", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForFrames(t, fc, 2)
}
