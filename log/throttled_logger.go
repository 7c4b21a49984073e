/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import "fmt"

// SuppressedFieldKey is the key of the field that holds the number of dropped messages.
const SuppressedFieldKey = "suppressed"

// MessageThrottle decides whether a message with the given key should be written.
// Suppressed is the number of messages with the same key dropped since the last written one.
type MessageThrottle interface {
	AllowMessage(key string) (allowed bool, suppressed int64, err error)
}

// ThrottledLogger is a logger that drops messages when the same message is logged too often.
// Messages are keyed by level and text (or format for Debugf, Infof and so on), fields are not taken into account.
// The first written message after a series of dropped ones carries the "suppressed" field.
// If the throttle fails, the message is written.
type ThrottledLogger struct {
	log      FieldLogger
	throttle MessageThrottle
}

// NewThrottledLogger returns a new ThrottledLogger.
func NewThrottledLogger(l FieldLogger, throttle MessageThrottle) FieldLogger {
	return &ThrottledLogger{l, throttle}
}

// With returns a new logger with the given additional fields. The throttle is shared.
func (l *ThrottledLogger) With(fs ...Field) FieldLogger {
	return &ThrottledLogger{l.log.With(fs...), l.throttle}
}

// Debug logs a message at "debug" level.
func (l *ThrottledLogger) Debug(text string, fs ...Field) {
	l.logAtLevel(LevelDebug, text, text, fs)
}

// Info logs a message at "info" level.
func (l *ThrottledLogger) Info(text string, fs ...Field) {
	l.logAtLevel(LevelInfo, text, text, fs)
}

// Warn logs a message at "warn" level.
func (l *ThrottledLogger) Warn(text string, fs ...Field) {
	l.logAtLevel(LevelWarn, text, text, fs)
}

// Error logs a message at "error" level.
func (l *ThrottledLogger) Error(text string, fs ...Field) {
	l.logAtLevel(LevelError, text, text, fs)
}

// Debugf logs a formatted message at "debug" level.
func (l *ThrottledLogger) Debugf(format string, args ...interface{}) {
	l.logfAtLevel(LevelDebug, format, args)
}

// Infof logs a formatted message at "info" level.
func (l *ThrottledLogger) Infof(format string, args ...interface{}) {
	l.logfAtLevel(LevelInfo, format, args)
}

// Warnf logs a formatted message at "warn" level.
func (l *ThrottledLogger) Warnf(format string, args ...interface{}) {
	l.logfAtLevel(LevelWarn, format, args)
}

// Errorf logs a formatted message at "error" level.
func (l *ThrottledLogger) Errorf(format string, args ...interface{}) {
	l.logfAtLevel(LevelError, format, args)
}

// AtLevel calls the given fn if logging a message at the specified level is enabled,
// passing a LogFunc that writes only admitted messages.
func (l *ThrottledLogger) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.log.AtLevel(level, func(logFunc LogFunc) {
		fn(func(text string, fs ...Field) {
			if admittedFields, ok := l.admit(level, text, fs); ok {
				logFunc(text, admittedFields...)
			}
		})
	})
}

// WithLevel returns a new logger with additional level check. The throttle is shared.
func (l *ThrottledLogger) WithLevel(level Level) FieldLogger {
	return &ThrottledLogger{l.log.WithLevel(level), l.throttle}
}

func (l *ThrottledLogger) logfAtLevel(level Level, format string, args []interface{}) {
	l.log.AtLevel(level, func(logFunc LogFunc) {
		if admittedFields, ok := l.admit(level, format, nil); ok {
			logFunc(fmt.Sprintf(format, args...), admittedFields...)
		}
	})
}

func (l *ThrottledLogger) logAtLevel(level Level, key, text string, fs []Field) {
	l.log.AtLevel(level, func(logFunc LogFunc) {
		if admittedFields, ok := l.admit(level, key, fs); ok {
			logFunc(text, admittedFields...)
		}
	})
}

func (l *ThrottledLogger) admit(level Level, key string, fs []Field) ([]Field, bool) {
	allowed, suppressed, err := l.throttle.AllowMessage(string(level) + ":" + key)
	if err != nil {
		return fs, true
	}
	if !allowed {
		return nil, false
	}
	if suppressed > 0 {
		fs = append(fs[:len(fs):len(fs)], Int64(SuppressedFieldKey, suppressed))
	}
	return fs, true
}
