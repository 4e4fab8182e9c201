// Package hub implements the Registry (C5): the process-wide index of
// live Connections and the rooms they have joined, plus room/broadcast
// fan-out.
package hub

import (
	"sync"

	"github.com/ambercast/relay/metrics"
	"github.com/ambercast/relay/socket"
)

// Envelope is the compact room-emit description published to sibling
// processes by a Broadcaster.
type Envelope struct {
	Room   string
	Event  string
	Params []interface{}
}

// Broadcaster widens which sockets ultimately receive a Room-emit, beyond
// the Connections registered in this process. It never affects what this
// process considers to be in clients/rooms.
type Broadcaster interface {
	Publish(Envelope) error
}

// Registry tracks every live Connection and the rooms they belong to. The
// zero value is not usable; construct with New.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*socket.Connection
	rooms   map[string]map[string]*socket.Connection

	broadcaster Broadcaster
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithBroadcaster attaches a distributed broadcast strategy; without one,
// Registry behaves as the in-process-only "memory" strategy described in
// the room fan-out model.
func WithBroadcaster(b Broadcaster) Option {
	return func(r *Registry) {
		r.broadcaster = b
	}
}

// SetBroadcaster attaches or replaces the distributed broadcast strategy
// after construction. This lets an embedder build the Registry first,
// hand it to a Broadcaster (e.g. NewRedisBroadcaster's target argument),
// and only then wire the Broadcaster back onto the Registry.
func (r *Registry) SetBroadcaster(b Broadcaster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcaster = b
}

// New returns an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		clients: make(map[string]*socket.Connection),
		rooms:   make(map[string]map[string]*socket.Connection),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds conn to the client list and creates its implicit
// self-named room.
func (r *Registry) Register(conn *socket.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[conn.ID()] = conn
	r.rooms[conn.ID()] = map[string]*socket.Connection{conn.ID(): conn}

	metrics.ActiveConnections.Inc(1)
	metrics.ActiveRooms.Inc(1)
}

// Unregister removes conn from the client list and from every room it
// appears in, including its self-room. Rooms left empty are dropped.
func (r *Registry) Unregister(conn *socket.Connection) {
	rooms := append(conn.Rooms(), conn.ID())

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.clients, conn.ID())
	metrics.ActiveConnections.Dec(1)
	for _, room := range rooms {
		members := r.rooms[room]
		if members == nil {
			continue
		}
		delete(members, conn.ID())
		if len(members) == 0 {
			delete(r.rooms, room)
			metrics.ActiveRooms.Dec(1)
		}
	}
}

// JoinRoom implements socket.Registrar: it adds conn to rooms[room] if not
// already present, then tells conn to track the membership locally.
// Idempotent.
func (r *Registry) JoinRoom(conn *socket.Connection, room string) {
	r.mu.Lock()
	members := r.rooms[room]
	isNewRoom := members == nil
	if members == nil {
		members = make(map[string]*socket.Connection)
		r.rooms[room] = members
	}
	_, already := members[conn.ID()]
	if !already {
		members[conn.ID()] = conn
	}
	r.mu.Unlock()

	if isNewRoom {
		metrics.ActiveRooms.Inc(1)
	}
	if !already {
		conn.NoteJoined(room)
	}
}

// LeaveRoom implements socket.Registrar: the inverse of JoinRoom.
// Idempotent.
func (r *Registry) LeaveRoom(conn *socket.Connection, room string) {
	r.mu.Lock()
	members := r.rooms[room]
	var wasMember, emptied bool
	if members != nil {
		_, wasMember = members[conn.ID()]
		delete(members, conn.ID())
		if len(members) == 0 {
			delete(r.rooms, room)
			emptied = true
		}
	}
	r.mu.Unlock()

	if emptied {
		metrics.ActiveRooms.Dec(1)
	}
	if wasMember {
		conn.NoteLeft(room)
	}
}

// Clients returns a snapshot of every currently registered Connection.
func (r *Registry) Clients() []*socket.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]*socket.Connection, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

// Rooms returns the names of every room with at least one member,
// including each connection's implicit self-room.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms := make([]string, 0, len(r.rooms))
	for room := range r.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// RoomSize returns the number of connections currently in room.
func (r *Registry) RoomSize(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// Broadcast applies emit(event, params) to every registered client.
func (r *Registry) Broadcast(event string, params []interface{}) {
	r.mu.RLock()
	targets := make([]*socket.Connection, 0, len(r.clients))
	for _, c := range r.clients {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	metrics.EventsEmitted.WithValues("broadcast").Inc(float64(len(targets)))
	for _, c := range targets {
		_ = c.Emit(event, params)
	}
}

// RoomEmit applies emit(event, params) to every Connection in room in
// this process, and additionally publishes the emit to the configured
// Broadcaster, if any, so sibling processes can replay it to their own
// locally-registered Connections. The local half is a no-op if the room
// is absent here; the publish to the Broadcaster happens regardless.
func (r *Registry) RoomEmit(room, event string, params []interface{}) {
	r.emitRoomLocal(room, event, params)

	if r.broadcaster != nil {
		_ = r.broadcaster.Publish(Envelope{Room: room, Event: event, Params: params})
	}
}

// emitRoomLocal is the in-process-only half of RoomEmit; a Broadcaster
// calls this directly (never RoomEmit) when replaying an envelope it
// received from a sibling process, so a replayed emit is never
// republished.
func (r *Registry) emitRoomLocal(room, event string, params []interface{}) {
	r.mu.RLock()
	members := r.rooms[room]
	targets := make([]*socket.Connection, 0, len(members))
	for _, c := range members {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	metrics.EventsEmitted.WithValues("room").Inc(float64(len(targets)))
	for _, c := range targets {
		_ = c.Emit(event, params)
	}
}
