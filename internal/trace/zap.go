package trace

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapTracer forwards events to a zap.Logger. Span ends and points log at
// debug level; heartbeats log at info level so a stuck run stays visible
// with a less verbose logger.
type ZapTracer struct {
	log   *zap.Logger
	level Level
}

// NewZapTracer creates a tracer writing to log. A nil logger discards events.
func NewZapTracer(log *zap.Logger, level Level) *ZapTracer {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapTracer{log: log.Named("trace"), level: level}
}

// NewConsoleLogger builds a development-style console logger on w.
func NewConsoleLogger(w io.Writer) *zap.Logger {
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel)
	return zap.New(core)
}

// Emit logs ev with its identifiers and extras as fields.
func (t *ZapTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	// Span begins carry nothing the matching end does not.
	if ev.Kind == KindSpanBegin && t.level < LevelDebug {
		return
	}

	fields := make([]zap.Field, 0, 6+len(ev.Extra))
	fields = append(fields,
		zap.String("kind", ev.Kind.String()),
		zap.String("scope", ev.Scope.String()),
		zap.Uint64("span", ev.SpanID),
	)
	if ev.ParentID != 0 {
		fields = append(fields, zap.Uint64("parent", ev.ParentID))
	}
	if ev.Detail != "" {
		fields = append(fields, zap.String("detail", ev.Detail))
	}
	if ev.Kind == KindSpanEnd && !ev.Time.IsZero() {
		fields = append(fields, zap.Time("at", ev.Time))
	}
	for k, v := range ev.Extra {
		fields = append(fields, zap.String(k, v))
	}

	if ev.Kind == KindHeartbeat {
		t.log.Info(ev.Name, fields...)
		return
	}
	t.log.Debug(ev.Name, fields...)
}

// Flush syncs the underlying logger.
func (t *ZapTracer) Flush() error {
	// Sync on a terminal returns EINVAL on some platforms; ignore it.
	_ = t.log.Sync() //nolint:errcheck
	return nil
}

// Close flushes the logger. The logger itself is owned by the caller.
func (t *ZapTracer) Close() error {
	return t.Flush()
}

// Level returns the current tracing level.
func (t *ZapTracer) Level() Level {
	return t.level
}

// Enabled returns true if tracing is active.
func (t *ZapTracer) Enabled() bool {
	return t.level > LevelOff
}
