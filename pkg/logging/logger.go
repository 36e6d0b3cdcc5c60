// Package logging provides the structured JSON logger used by the engine
// and its hosts.
package logging

import (
	"encoding/json"
	"io"
	"os"
	"slices"
	"sync"
	"time"
)

// NewJSONLogger writes entries at level and above to writer
func NewJSONLogger(writer io.Writer, level Level) *JSONLogger {
	l := &JSONLogger{sink: &sink{w: writer}}
	l.sink.level.Store(int32(level))
	return l
}

// NewStderrLogger creates a logger on stderr. Hosts write rendered output
// to stdout, so logs stay out of the way.
func NewStderrLogger(level Level) *JSONLogger {
	return NewJSONLogger(os.Stderr, level)
}

func (l *JSONLogger) log(level Level, msg string, fields []Field) {
	if !l.Enabled(level) {
		return
	}
	line := l.encode(LogEntry{
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
		Fields:  mergeFields(l.fields, fields),
	})

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.w.Write(line)
}

// encode never fails: an entry whose fields cannot be marshalled is
// replaced by an error entry carrying the original message.
func (l *JSONLogger) encode(entry LogEntry) []byte {
	data, err := json.Marshal(entry)
	if err != nil {
		data, _ = json.Marshal(LogEntry{
			Time:    entry.Time,
			Level:   ErrorLevel.String(),
			Message: "unencodable log entry",
			Fields:  map[string]any{"msg": entry.Message, "error": err.Error()},
		})
	}
	return append(data, '\n')
}

// mergeFields flattens preset and call fields; call fields win on key clashes
func mergeFields(preset, call []Field) map[string]any {
	if len(preset)+len(call) == 0 {
		return nil
	}
	out := make(map[string]any, len(preset)+len(call))
	for _, fs := range [][]Field{preset, call} {
		for _, f := range fs {
			out[f.Key] = f.Value
		}
	}
	return out
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *JSONLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *JSONLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

// With returns a logger that adds fields to every entry
func (l *JSONLogger) With(fields ...Field) Logger {
	return &JSONLogger{
		sink:   l.sink,
		fields: append(slices.Clip(l.fields), fields...),
	}
}

// Enabled is lock-free so per-tick callers can check it cheaply
func (l *JSONLogger) Enabled(level Level) bool {
	return level >= l.GetLevel()
}

func (l *JSONLogger) SetLevel(level Level) { l.sink.level.Store(int32(level)) }

func (l *JSONLogger) GetLevel() Level { return Level(l.sink.level.Load()) }

var (
	defaultMu     sync.Mutex
	defaultLogger Logger
)

// LevelFromEnv reads LOG_LEVEL, falling back to fallback when unset
func LevelFromEnv(fallback Level) Level {
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		return ParseLevel(s)
	}
	return fallback
}

// DefaultLogger returns the process logger, a stderr JSON logger at
// LOG_LEVEL unless replaced with SetDefaultLogger
func DefaultLogger() Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewStderrLogger(LevelFromEnv(InfoLevel))
	}
	return defaultLogger
}

// SetDefaultLogger replaces the process logger
func SetDefaultLogger(logger Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// StartTimer begins timing an operation
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{
		logger: logger,
		msg:    msg,
		start:  time.Now(),
		fields: fields,
	}
}

// End logs the operation with its duration
func (t *TimedOperation) End(extra ...Field) {
	fields := append(append([]Field{}, t.fields...), extra...)
	t.logger.Info(t.msg, append(fields, Latency(time.Since(t.start)))...)
}

// EndError logs the operation as an error with its duration
func (t *TimedOperation) EndError(err error) {
	fields := append([]Field{}, t.fields...)
	t.logger.Error(t.msg, append(fields, Latency(time.Since(t.start)), Error(err))...)
}
