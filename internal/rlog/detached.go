package rlog

import "context"

// DetachedContext returns a context that won't be canceled when the parent
// context is canceled. Used for work that must finish even after the
// triggering connection is gone, such as a redis publish following a room
// emit whose Connection has already closed.
func DetachedContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
