package temporal

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// Logger routes Temporal SDK logs into zerolog.
type Logger struct {
	logger zerolog.Logger
}

var (
	_ log.Logger     = (*Logger)(nil)
	_ log.WithLogger = (*Logger)(nil)
)

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger.With().Str("component", "temporal").Logger()}
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.emit(l.logger.Debug(), msg, keyvals)
}

func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.emit(l.logger.Info(), msg, keyvals)
}

func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.emit(l.logger.Warn(), msg, keyvals)
}

func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.emit(l.logger.Error(), msg, keyvals)
}

func (l *Logger) With(keyvals ...interface{}) log.Logger {
	ctx := l.logger.With()
	for i := 0; i < len(keyvals); i += 2 {
		key, val := pair(keyvals, i)
		ctx = ctx.Interface(key, val)
	}
	return &Logger{logger: ctx.Logger()}
}

func (l *Logger) emit(event *zerolog.Event, msg string, keyvals []interface{}) {
	for i := 0; i < len(keyvals); i += 2 {
		key, val := pair(keyvals, i)
		if err, ok := val.(error); ok {
			event = event.AnErr(key, err)
			continue
		}
		event = event.Interface(key, val)
	}
	event.Msg(msg)
}

// pair returns the key/value at i. An odd trailing value is logged under
// "extra".
func pair(keyvals []interface{}, i int) (string, interface{}) {
	if i+1 >= len(keyvals) {
		return "extra", keyvals[i]
	}
	key, ok := keyvals[i].(string)
	if !ok {
		key = fmt.Sprint(keyvals[i])
	}
	return key, keyvals[i+1]
}
