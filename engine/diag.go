package engine

import (
	"time"

	"github.com/tliron/commonlog"

	"github.com/hyperion-engine/hyperion/compiler"
	"github.com/hyperion-engine/hyperion/extension"
)

var fallbackLog = commonlog.GetLogger("hyperion")

// instanceSink adapts the compile pipeline's diagnostic stream onto the
// instance's active extensions.
type instanceSink struct {
	in *Instance
}

func (s instanceSink) Diag(level compiler.DiagLevel, origin, msg string) {
	s.in.emit(toLogLevel(level), origin, msg)
}

func toLogLevel(level compiler.DiagLevel) extension.LogLevel {
	switch level {
	case compiler.DiagTrace:
		return extension.LevelTrace
	case compiler.DiagDebug:
		return extension.LevelDebug
	case compiler.DiagInfo:
		return extension.LevelInfo
	case compiler.DiagWarn:
		return extension.LevelWarn
	default:
		return extension.LevelError
	}
}

// emit delivers one message to every extension that consumes diagnostics.
// Delivery is synchronous and in activation order. When no such extension
// is active the message falls through to the process logger so that
// diagnostics are never silently lost.
func (in *Instance) emit(level extension.LogLevel, origin, text string) {
	msg := extension.LogMessage{
		Time:   time.Now(),
		Level:  level,
		Origin: origin,
		Text:   text,
	}

	if len(in.receivers) == 0 {
		switch level {
		case extension.LevelTrace, extension.LevelDebug:
			fallbackLog.Debugf("%s: %s", origin, text)
		case extension.LevelInfo:
			fallbackLog.Infof("%s: %s", origin, text)
		case extension.LevelWarn:
			fallbackLog.Warningf("%s: %s", origin, text)
		default:
			fallbackLog.Errorf("%s: %s", origin, text)
		}
		return
	}

	for _, r := range in.receivers {
		r.Receive(msg)
	}
}
