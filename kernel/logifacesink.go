package kernel

import (
	"io"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// logifaceSink adapts a github.com/joeycumines/logiface Logger (backed by
// stumpy's JSON writer) onto this package's Logger interface, so kernel
// diagnostics can flow through a real structured-logging backend instead
// of DefaultLogger's plain lines.
type logifaceSink struct {
	logger *logiface.Logger[*stumpy.Event]
}

// NewLogifaceLogger builds a Logger backed by stumpy, writing newline-
// delimited JSON to w.
func NewLogifaceLogger(w io.Writer, level LogLevel) Logger {
	l := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		logiface.WithLevel[*stumpy.Event](toLogifaceLevel(level)),
	)
	return &logifaceSink{logger: l}
}

func toLogifaceLevel(l LogLevel) logiface.Level {
	switch l {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

func (s *logifaceSink) IsEnabled(level LogLevel) bool {
	return toLogifaceLevel(level) <= s.logger.Level()
}

func (s *logifaceSink) Log(r LogRecord) {
	var b *logiface.Builder[*stumpy.Event]
	switch r.Level {
	case LevelDebug:
		b = s.logger.Debug()
	case LevelInfo:
		b = s.logger.Info()
	case LevelWarn:
		b = s.logger.Warning()
	case LevelError:
		b = s.logger.Err()
	default:
		b = s.logger.Info()
	}
	if !b.Enabled() {
		b.Release()
		return
	}
	b = b.Str("category", r.Category).Int("pid", int(r.PID))
	for k, v := range r.Fields {
		b = b.Interface(k, v)
	}
	if r.Err != nil {
		b = b.Err(r.Err)
	}
	b.Log(r.Message)
}
