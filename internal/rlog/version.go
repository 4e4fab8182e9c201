package rlog

import "context"

type versionKey struct{}

func (versionKey) String() string { return "version" }

// WithVersion stores the running server's version string on ctx. Pass
// versionKey{} to GetLogger's keys to have it included as a log field.
func WithVersion(ctx context.Context, version string) context.Context {
	return context.WithValue(ctx, versionKey{}, version)
}

// GetVersion returns the version string stored by WithVersion, or the empty
// string if none was set.
func GetVersion(ctx context.Context) string {
	return GetStringValue(ctx, versionKey{})
}
