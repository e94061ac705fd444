// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// SlogHandler adapts slog records onto a zerolog backend so libraries
// that only speak slog (sutureslog in particular) share the process-wide
// log stream. Attributes from WithAttrs are folded into the underlying
// logger's context immediately; only per-record attributes are translated
// at Handle time. Group names become dot-prefixed keys.
type SlogHandler struct {
	logger zerolog.Logger
	prefix string
}

// NewSlogHandler wraps the global zerolog logger.
func NewSlogHandler() *SlogHandler {
	return NewSlogHandlerWithLogger(Logger())
}

// NewSlogHandlerWithLogger wraps a specific zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSlogHandlerWithLogger(logger zerolog.Logger) *SlogHandler {
	return &SlogHandler{logger: logger}
}

// Enabled reports whether records at the given level would be written.
func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.GetLevel() <= levelToZerolog(level)
}

// Handle writes one record through zerolog.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface
func (h *SlogHandler) Handle(_ context.Context, record slog.Record) error {
	event := h.logger.WithLevel(levelToZerolog(record.Level))
	record.Attrs(func(attr slog.Attr) bool {
		event = appendAttr(event, h.prefix, attr)
		return true
	})
	event.Msg(record.Message)
	return nil
}

// WithAttrs binds the attributes into the wrapped logger's context.
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	logger := h.logger
	for _, attr := range attrs {
		logger = logger.With().Interface(h.prefix+attr.Key, attr.Value.Resolve().Any()).Logger()
	}
	return &SlogHandler{logger: logger, prefix: h.prefix}
}

// WithGroup extends the key prefix for subsequent attributes.
func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SlogHandler{logger: h.logger, prefix: h.prefix + name + "."}
}

// appendAttr translates one slog attribute, expanding groups recursively.
func appendAttr(event *zerolog.Event, prefix string, attr slog.Attr) *zerolog.Event {
	v := attr.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, member := range v.Group() {
			event = appendAttr(event, prefix+attr.Key+".", member)
		}
		return event
	}

	key := prefix + attr.Key
	switch v.Kind() {
	case slog.KindString:
		return event.Str(key, v.String())
	case slog.KindInt64:
		return event.Int64(key, v.Int64())
	case slog.KindUint64:
		return event.Uint64(key, v.Uint64())
	case slog.KindFloat64:
		return event.Float64(key, v.Float64())
	case slog.KindBool:
		return event.Bool(key, v.Bool())
	case slog.KindDuration:
		return event.Dur(key, v.Duration())
	case slog.KindTime:
		return event.Time(key, v.Time())
	default:
		return event.Interface(key, v.Any())
	}
}

// levelToZerolog maps slog levels onto zerolog's scale. Levels below
// debug collapse to trace, above error to error.
func levelToZerolog(level slog.Level) zerolog.Level {
	switch {
	case level < slog.LevelDebug:
		return zerolog.TraceLevel
	case level < slog.LevelInfo:
		return zerolog.DebugLevel
	case level < slog.LevelWarn:
		return zerolog.InfoLevel
	case level < slog.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// NewSlogLogger returns an slog.Logger backed by the global zerolog
// logger, for handing to sutureslog:
//
//	tree := supervisor.NewTree(logging.NewSlogLogger(), cfg)
func NewSlogLogger() *slog.Logger {
	return slog.New(NewSlogHandler())
}
