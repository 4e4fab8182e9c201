// Package socket implements the protocol-level Connection: the per-peer
// state machine that turns reassembled wire.Packets into event dispatch,
// and turns outbound emits into framed, queued writes to a transport.Conn.
package socket

import (
	"sync"
	"sync/atomic"

	"github.com/ambercast/relay/common"
	"github.com/ambercast/relay/stream"
	"github.com/ambercast/relay/transport"
	"github.com/ambercast/relay/wire"
)

// EventHandler handles an inbound Event/BinaryEvent. params are the
// payload elements following the event name, with any attachment
// placeholders already resolved to their raw bytes; binary is the same
// attachments in wire order, offered separately for convenience. The
// return value becomes the Ack/BinaryAck payload when the inbound packet
// carried an id.
type EventHandler func(params []interface{}, binary [][]byte) []interface{}

// AckHandler is invoked exactly once when the peer acknowledges an
// emit_ack, with the ack payload and its attachments.
type AckHandler func(params []interface{}, binary [][]byte)

// CloseHandler is invoked once when a Connection finishes closing.
type CloseHandler func(reason string)

// ErrorHandler is invoked for each inbound Error opcode packet (an
// ApplicationError surfaced by the peer); it has no automatic side effect.
type ErrorHandler func(message string)

// Registrar is the narrow view of a room/client registry that a
// Connection needs. hub.Registry implements it; it is declared here,
// rather than imported from hub, so that socket has no dependency on hub.
type Registrar interface {
	JoinRoom(c *Connection, room string)
	LeaveRoom(c *Connection, room string)
	Unregister(c *Connection)
}

// Connection is one peer's live session: the callbacks it has registered,
// the acks it is waiting on, the rooms it has joined, and the queue that
// serializes its outbound writes.
type Connection struct {
	id        string
	conn      transport.Conn
	registrar Registrar

	callbacksMu sync.RWMutex
	callbacks   map[string]EventHandler

	pendingMu   sync.Mutex
	pendingAcks map[uint64]AckHandler
	nextAckID   uint64

	roomsMu     sync.RWMutex
	roomsJoined common.StringSet

	nsMu             sync.RWMutex
	currentNamespace *string

	reassembler *stream.Reassembler
	outbound    *outboundQueue

	closeOnce    sync.Once
	closeMu      sync.Mutex
	onCloseFn    CloseHandler
	onErrorFn    ErrorHandler
}

// New wraps a transport.Conn into a Connection and wires its message/close
// handlers. The Connection is registered only when the embedder calls
// hub.Registry.Register (which is also where clients/rooms bookkeeping
// lives); New itself performs no registry side effects.
func New(conn transport.Conn, registrar Registrar) *Connection {
	c := &Connection{
		id:          conn.ID(),
		conn:        conn,
		registrar:   registrar,
		callbacks:   make(map[string]EventHandler),
		pendingAcks: make(map[uint64]AckHandler),
		roomsJoined: common.NewStringSet(),
		reassembler: stream.New(),
	}
	c.outbound = newOutboundQueue(&transportSink{conn: conn}, c.handleWriteError)

	conn.OnMessage(c.handleFrame)
	conn.OnClose(c.handleTransportClose)

	return c
}

// ID returns the connection's stable session identifier.
func (c *Connection) ID() string {
	return c.id
}

// On registers or replaces the handler for event.
func (c *Connection) On(event string, handler EventHandler) {
	c.callbacksMu.Lock()
	defer c.callbacksMu.Unlock()
	c.callbacks[event] = handler
}

// OnClose registers the single close-notification handler.
func (c *Connection) OnClose(handler CloseHandler) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	c.onCloseFn = handler
}

// OnError registers the handler invoked for inbound Error opcode packets.
func (c *Connection) OnError(handler ErrorHandler) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	c.onErrorFn = handler
}

// Emit sends a (Binary)Event with no ack expectation.
func (c *Connection) Emit(event string, params []interface{}) error {
	return c.emit(nil, event, params)
}

// EmitAck sends event with a fresh ack id and registers onAck to be
// invoked when the peer replies.
func (c *Connection) EmitAck(event string, params []interface{}, onAck AckHandler) error {
	id := atomic.AddUint64(&c.nextAckID, 1) - 1

	c.pendingMu.Lock()
	c.pendingAcks[id] = onAck
	c.pendingMu.Unlock()

	return c.emit(&id, event, params)
}

func (c *Connection) emit(id *uint64, event string, params []interface{}) error {
	payload := make([]interface{}, 0, len(params)+1)
	payload = append(payload, event)
	payload = append(payload, params...)

	extracted, attachments := wire.Extract(payload)

	opcode := wire.Event
	if len(attachments) > 0 {
		opcode = wire.BinaryEvent
	}

	p := &wire.Packet{
		Opcode:              opcode,
		Namespace:           c.namespaceSnapshot(),
		ID:                  id,
		AttachmentsExpected: len(attachments),
		HasPayload:          true,
		Payload:             extracted,
		Attachments:         attachments,
	}

	return c.sendPacket(p)
}

// Join adds the connection to room, both locally and in the Registry.
// Idempotent.
func (c *Connection) Join(room string) {
	c.registrar.JoinRoom(c, room)
}

// Leave removes the connection from room, both locally and in the
// Registry. Idempotent.
func (c *Connection) Leave(room string) {
	c.registrar.LeaveRoom(c, room)
}

// Rooms returns a snapshot of the rooms this connection has joined.
func (c *Connection) Rooms() []string {
	c.roomsMu.RLock()
	defer c.roomsMu.RUnlock()
	return c.roomsJoined.Keys()
}

// NoteJoined records room as joined without talking back to the
// Registrar; it exists for hub.Registry to call once it has updated its
// own rooms index, keeping the two sides consistent without a circular
// import.
func (c *Connection) NoteJoined(room string) {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	c.roomsJoined.Add(room)
}

// NoteLeft is the inverse of NoteJoined.
func (c *Connection) NoteLeft(room string) {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	c.roomsJoined.Remove(room)
}

// SendRaw passes data straight to the outbound queue as a single frame of
// the given kind, bypassing packet construction. It is the primitive
// sendPacket itself is built on.
func (c *Connection) SendRaw(kind transport.FrameKind, data []byte) error {
	return c.outbound.Write(frame{kind: kind, data: data})
}

func (c *Connection) sendPacket(p *wire.Packet) error {
	encoded, err := wire.Encode(p)
	if err != nil {
		return err
	}
	if err := c.SendRaw(transport.Text, encoded); err != nil {
		return err
	}
	for _, att := range p.Attachments {
		if err := c.SendRaw(transport.Binary, att); err != nil {
			return err
		}
	}
	return nil
}

// Close tears the connection down: the transport is closed, every pending
// ack continuation is dropped without being invoked, the reassembler is
// reset, the connection is removed from the Registry, the outbound queue
// is drained and stopped, and the registered close handler (if any) is
// invoked exactly once.
func (c *Connection) Close(reason string) error {
	var closeErr error
	c.closeOnce.Do(func() {
		closeErr = c.conn.Close(reason)
		c.finish(reason)
	})
	return closeErr
}

// handleTransportClose is registered with the transport so that a
// peer-initiated or transport-level close runs the same teardown as an
// explicit Close, without calling transport.Close again.
func (c *Connection) handleTransportClose(reason string) {
	c.closeOnce.Do(func() {
		c.finish(reason)
	})
}

func (c *Connection) finish(reason string) {
	c.pendingMu.Lock()
	c.pendingAcks = make(map[uint64]AckHandler)
	c.pendingMu.Unlock()

	c.reassembler.Reset()
	c.registrar.Unregister(c)
	_ = c.outbound.Close()

	c.closeMu.Lock()
	handler := c.onCloseFn
	c.closeMu.Unlock()
	if handler != nil {
		handler(reason)
	}
}

// handleWriteError implements the §7 policy that any transport write
// failure is fatal for the Connection: it triggers Close. It runs on the
// outbound queue's own drain goroutine, so the teardown itself — which
// waits for that goroutine to finish draining — must happen on another
// goroutine to avoid the drain goroutine deadlocking on its own exit.
func (c *Connection) handleWriteError(err error) {
	go c.Close("write failed: " + err.Error())
}

func (c *Connection) namespaceSnapshot() *string {
	c.nsMu.RLock()
	defer c.nsMu.RUnlock()
	return c.currentNamespace
}

func (c *Connection) setNamespace(ns *string) {
	c.nsMu.Lock()
	defer c.nsMu.Unlock()
	c.currentNamespace = ns
}

func (c *Connection) errorHandler() ErrorHandler {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.onErrorFn
}
