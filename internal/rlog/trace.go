package rlog

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/ambercast/relay/internal/uuid"
)

type traceKey struct{}

func (traceKey) String() string { return "trace" }

type traceInfo struct {
	id       string
	parentID string
	file     string
	line     int
	fn       string
	start    time.Time
}

// WithTrace injects a traceInfo identifying the caller's location into ctx
// and returns a done function that logs the elapsed time plus msg when
// called, typically via defer. Traces nest: a trace created from another
// traced context records the parent's id as "trace.parent.id".
func WithTrace(ctx context.Context) (context.Context, func(format string, a ...any)) {
	pc, file, line, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)

	info := traceInfo{
		id:    uuid.NewString(),
		file:  file,
		line:  line,
		fn:    fn.Name(),
		start: time.Now(),
	}
	if parent, ok := ctx.Value(traceKey{}).(traceInfo); ok {
		info.parentID = parent.id
	}

	traced := context.WithValue(ctx, traceKey{}, info)
	traced = context.WithValue(traced, "trace.id", info.id)
	traced = context.WithValue(traced, "trace.file", info.file)
	traced = context.WithValue(traced, "trace.line", info.line)
	traced = context.WithValue(traced, "trace.start", info.start)
	traced = context.WithValue(traced, "trace.func", info.fn)
	if info.parentID != "" {
		traced = context.WithValue(traced, "trace.parent.id", info.parentID)
	}

	logger := GetLogger(traced, "trace.id", "trace.file", "trace.line", "trace.func", "trace.parent.id")

	return traced, func(format string, a ...any) {
		logger.Debugf("%s (%v)", fmt.Sprintf(format, a...), time.Since(info.start))
	}
}
