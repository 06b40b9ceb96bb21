package extension

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hyperion-engine/hyperion/version"
)

// ---------------------------------------------------------------------------
// Logging extension: a diagnostic sink capability
// ---------------------------------------------------------------------------

// LogLevel is the severity of a log message.
type LogLevel int32

const (
	LevelTrace LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("LogLevel(%d)", l)
	}
}

// LogMessage is one diagnostic event: an event value, not persisted state.
// Origin identifies the emitting component, e.g. "ssa_validator".
type LogMessage struct {
	Time   time.Time
	Level  LogLevel
	Origin string
	Text   string
}

// LogCallback receives log messages synchronously, in emission order.
//
// The engine does not serialize delivery: when compilations run
// concurrently against one instance, the callback must be reentrant and
// thread-safe. That responsibility lies with the callback implementer.
type LogCallback func(LogMessage)

// LogConfig is the logging extension's activation payload.
type LogConfig struct {
	Level    LogLevel
	Callback LogCallback
}

func (LogConfig) extensionConfig() {}

// Stable identity of the logging extension.
var LogUUID = uuid.MustParse("6d0c2f52-9d4e-45a1-bd29-0cf6cfbd3b2f")

// LogName is the logging extension's symbolic name.
const LogName = "hyperion_logger"

var logVersion = version.New(0, 1, 1)

// LogExtension delivers engine diagnostics at or above a configured
// threshold to a caller-supplied callback.
type LogExtension struct {
	level    LogLevel
	callback LogCallback
	dropped  atomic.Uint64
}

// NewLogExtension is the logging capability factory.
func NewLogExtension() Extension {
	return &LogExtension{level: LevelTrace}
}

func (l *LogExtension) UUID() uuid.UUID {
	return LogUUID
}

func (l *LogExtension) Name() string {
	return LogName
}

func (l *LogExtension) Version() version.Version {
	return logVersion
}

func (l *LogExtension) Compatible() version.Range {
	return version.AtLeast(version.New(0, 1, 0))
}

// Activate applies the LogConfig payload. A nil payload leaves the
// extension at its defaults (trace threshold, no callback).
func (l *LogExtension) Activate(cfg Config) error {
	if cfg == nil {
		return nil
	}
	lc, ok := cfg.(LogConfig)
	if !ok {
		return fmt.Errorf("expected LogConfig payload, got %T", cfg)
	}
	l.level = lc.Level
	l.callback = lc.Callback
	return nil
}

// Deactivate detaches the callback. Delivery is synchronous, so there are
// no buffered messages to flush; anything received before this call has
// already reached the callback.
func (l *LogExtension) Deactivate() {
	l.callback = nil
}

// Receive delivers one message to the callback if it clears the threshold.
// Messages below the threshold, or arriving with no callback attached, are
// counted and dropped.
func (l *LogExtension) Receive(msg LogMessage) {
	if msg.Level < l.level || l.callback == nil {
		l.dropped.Add(1)
		return
	}
	l.callback(msg)
}

// Dropped returns the number of messages below the threshold or without a
// callback.
func (l *LogExtension) Dropped() uint64 {
	return l.dropped.Load()
}
