package internal

import "log/slog"

// Logger is embedded by the engine's stateful types (TCB, Handler-alikes) to
// give them debug/trace/info/error logging methods gated on whether a logger
// was actually configured, without requiring a nil check at every call site.
type Logger struct {
	Log *slog.Logger
}

func (l *Logger) SetLog(log *slog.Logger) { l.Log = log }

func (l *Logger) Enabled(lvl slog.Level) bool {
	return HeapAllocDebugging || LogEnabled(l.Log, lvl)
}

func (l *Logger) LogAttrs(lvl slog.Level, msg string, attrs ...slog.Attr) {
	LogAttrs(l.Log, lvl, msg, attrs...)
}

func (l *Logger) Debug(msg string, attrs ...slog.Attr) { l.LogAttrs(slog.LevelDebug, msg, attrs...) }
func (l *Logger) Trace(msg string, attrs ...slog.Attr) { l.LogAttrs(LevelTrace, msg, attrs...) }
func (l *Logger) Info(msg string, attrs ...slog.Attr)  { l.LogAttrs(slog.LevelInfo, msg, attrs...) }
func (l *Logger) Err(msg string, attrs ...slog.Attr)   { l.LogAttrs(slog.LevelError, msg, attrs...) }
