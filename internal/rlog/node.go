package rlog

import "context"

type nodeIDKey struct{}

func (nodeIDKey) String() string { return "node.id" }

// WithNodeID tags ctx with the identifier of the relay process handling the
// current connection. Every log line derived from it then carries which
// process emitted it, which matters once a Registry replays room emits it
// received from sibling processes over its Broadcaster.
func WithNodeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, nodeIDKey{}, id)
}

// GetNodeID returns the node id stored by WithNodeID, or "" if none was set.
func GetNodeID(ctx context.Context) string {
	return GetStringValue(ctx, nodeIDKey{})
}
