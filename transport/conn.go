// Package transport defines the boundary between the protocol core and
// whatever moves bytes between peers. The core never imports a concrete
// transport; transport/tcp is a reference implementation used by cmd/relayd
// and the integration tests.
package transport

// FrameKind distinguishes a text frame (an encoded wire.Packet) from a
// binary frame (a raw attachment).
type FrameKind int

const (
	Text FrameKind = iota
	Binary
)

// MessageHandler receives one inbound frame.
type MessageHandler func(kind FrameKind, data []byte)

// CloseHandler is invoked once when the underlying connection goes away,
// whether the peer closed it, the local side called Close, or the
// transport observed an I/O error.
type CloseHandler func(reason string)

// Conn is the contract the protocol core requires of a transport. A
// connection's ID is stable for its lifetime and does not need to be
// globally unique beyond what the embedding Registry requires.
type Conn interface {
	// OnMessage registers the handler invoked for every inbound frame.
	// Only one handler is supported; a second call replaces the first.
	OnMessage(handler MessageHandler)

	// OnClose registers the handler invoked exactly once when the
	// connection closes, for any reason.
	OnClose(handler CloseHandler)

	// Send transmits one frame. It may be called concurrently with
	// itself; implementations must serialize writes internally.
	Send(kind FrameKind, data []byte) error

	// ID returns the connection's stable session identifier.
	ID() string

	// Close initiates shutdown of the underlying connection. reason is
	// informational and is passed to the registered CloseHandler.
	Close(reason string) error
}
