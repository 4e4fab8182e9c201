// Package metrics defines the Prometheus namespace and instruments
// exposed by the relay server, registered with docker/go-metrics the way
// the teacher's own metrics package registers its storage/middleware
// namespaces, and exposed to Prometheus scrapers via metrics.Handler()
// mounted on the debug server's /debug/metrics route.
package metrics

import "github.com/docker/go-metrics"

// NamespacePrefix is the namespace under which all relay metrics are
// registered.
const NamespacePrefix = "relay"

var (
	// ConnectionsNamespace covers gauges tracking live Connections and
	// rooms tracked by the Registry.
	ConnectionsNamespace = metrics.NewNamespace(NamespacePrefix, "connections", nil)

	// EventsNamespace covers counters for dispatched events and the
	// FramingError/ProtocolStateError replies sent back to peers.
	EventsNamespace = metrics.NewNamespace(NamespacePrefix, "events", nil)
)

var (
	// ActiveConnections is the number of Connections currently
	// registered with the Registry.
	ActiveConnections = ConnectionsNamespace.NewGauge("active", "The number of currently registered connections", metrics.Total)

	// ActiveRooms is the number of rooms, including self-rooms, with at
	// least one member.
	ActiveRooms = ConnectionsNamespace.NewGauge("rooms", "The number of rooms with at least one member", metrics.Total)

	// EventsDispatched counts Event/BinaryEvent packets delivered to a
	// registered callback, labeled by event name.
	EventsDispatched = EventsNamespace.NewLabeledCounter("dispatched", "The number of events dispatched to a registered handler", "event")

	// EventsEmitted counts Broadcast/RoomEmit fan-out sends.
	EventsEmitted = EventsNamespace.NewLabeledCounter("emitted", "The number of emit sends fanned out by Broadcast/RoomEmit", "scope")

	// FramingErrors counts Error-opcode replies sent back to a peer
	// after a FramingError or ProtocolStateError, labeled by errcode
	// Value.
	FramingErrors = EventsNamespace.NewLabeledCounter("framing_errors", "The number of FramingError/ProtocolStateError replies sent to peers", "code")
)

func init() {
	metrics.Register(ConnectionsNamespace)
	metrics.Register(EventsNamespace)
}
