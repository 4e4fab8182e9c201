// Package rlog carries the ambient per-connection logging context: a
// structured logrus.Entry threaded through context.Context, a trace helper
// for timing a call, and a server-version tag attached once at startup.
package rlog

import "context"

// Background returns a non-nil, empty Context, matching context.Background
// but giving callers a single import to reach for within this package's
// family of helpers.
func Background() context.Context {
	return context.Background()
}

// GetStringValue returns ctx.Value(key) coerced to a string, or the empty
// string if the key is absent or not a string.
func GetStringValue(ctx context.Context, key interface{}) string {
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
