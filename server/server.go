// Package server wires the protocol core into the single embedding
// surface: accept a transport.Conn, hand back a live socket.Connection,
// and offer the process-wide Broadcast/Room-emit/Close operations.
package server

import (
	"sync"

	"github.com/ambercast/relay/hub"
	"github.com/ambercast/relay/socket"
	"github.com/ambercast/relay/transport"
)

// ConnectionHandler is invoked once for every Connection the Server
// accepts, right after the Connection is registered. The Connection is
// already wired to its transport by then, so a frame that arrives in the
// meantime is dispatched before the handler runs.
type ConnectionHandler func(*socket.Connection)

// Server is the embedding surface over a Registry: New, OnConnection,
// Broadcast, Close.
type Server struct {
	registry *hub.Registry

	mu     sync.RWMutex
	onConn ConnectionHandler
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithBroadcaster attaches a distributed broadcast strategy to the
// Server's Registry; see hub.Registry.SetBroadcaster.
func WithBroadcaster(b hub.Broadcaster) Option {
	return func(s *Server) {
		s.registry.SetBroadcaster(b)
	}
}

// New returns a Server with an empty, in-process-only Registry unless
// overridden by an Option.
func New(opts ...Option) *Server {
	s := &Server{registry: hub.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the Server's underlying Registry. Embedders that need
// to construct a Broadcaster whose target is this Registry (e.g.
// hub.NewRedisBroadcaster) before attaching it with WithBroadcaster use
// this to get a reference to wire up first.
func (s *Server) Registry() *hub.Registry {
	return s.registry
}

// OnConnection registers the handler invoked for every newly accepted
// Connection. Only one handler is supported; a second call replaces the
// first.
func (s *Server) OnConnection(handler ConnectionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConn = handler
}

// Accept wraps conn as a Connection, registers it with the Registry, and
// invokes the OnConnection handler, if any. Embedding transports (e.g.
// transport/tcp's accept loop) call this for every new peer.
func (s *Server) Accept(conn transport.Conn) *socket.Connection {
	c := socket.New(conn, s.registry)
	s.registry.Register(c)

	s.mu.RLock()
	handler := s.onConn
	s.mu.RUnlock()

	if handler != nil {
		handler(c)
	}
	return c
}

// Broadcast applies emit(event, params) to every connected peer.
func (s *Server) Broadcast(event string, params []interface{}) {
	s.registry.Broadcast(event, params)
}

// RoomEmit applies emit(event, params) to every peer that has joined
// room, plus any sibling processes reachable through the configured
// Broadcaster.
func (s *Server) RoomEmit(room, event string, params []interface{}) {
	s.registry.RoomEmit(room, event, params)
}

// Close closes every currently connected peer. It does not stop whatever
// is feeding Accept (e.g. a transport/tcp listener); the embedder is
// responsible for that.
func (s *Server) Close() error {
	for _, c := range s.registry.Clients() {
		_ = c.Close("server closing")
	}
	return nil
}
