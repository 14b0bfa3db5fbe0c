// Package slog implements observability.Observer on top of log/slog.
// Spans are rendered as log records: one at start, one per event or error,
// and one at end carrying the accumulated attributes and the duration.
package slog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/woodman33/llmbridge/providers/observability"
)

// LevelTrace sits below slog.LevelDebug and is filtered out unless enabled.
const LevelTrace = slog.LevelDebug - 4

// Observer is an observability.Observer writing to a *slog.Logger.
type Observer struct {
	logger *slog.Logger
}

var _ observability.Observer = (*Observer)(nil)

// New returns an Observer; a nil logger means slog.Default().
func New(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{logger: logger}
}

func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	span := &span{
		ctx:       ctx,
		name:      name,
		startTime: time.Now(),
		logger:    o.logger,
		attrs:     append([]observability.Attribute(nil), attrs...),
	}
	o.logger.LogAttrs(ctx, slog.LevelDebug, "span started", span.logAttrs("span.start", attrs)...)
	return ctx, span
}

func (o *Observer) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, LevelTrace, msg, attrs)
}

func (o *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelDebug, msg, attrs)
}

func (o *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelInfo, msg, attrs)
}

func (o *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelWarn, msg, attrs)
}

func (o *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelError, msg, attrs)
}

func (o *Observer) log(ctx context.Context, level slog.Level, msg string, attrs []observability.Attribute) {
	if !o.logger.Enabled(ctx, level) {
		return
	}
	o.logger.LogAttrs(ctx, level, msg, toSlog(attrs)...)
}

type span struct {
	ctx       context.Context
	name      string
	startTime time.Time
	logger    *slog.Logger

	mu     sync.Mutex
	attrs  []observability.Attribute
	status string
	ended  bool
}

func (s *span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true

	level := slog.LevelInfo
	if s.status == "error" {
		level = slog.LevelWarn
	}
	logAttrs := s.logAttrs("span.end", s.attrs)
	logAttrs = append(logAttrs, slog.Duration("duration", time.Since(s.startTime)))
	if s.status != "" {
		logAttrs = append(logAttrs, slog.String("status", s.status))
	}
	s.logger.LogAttrs(s.ctx, level, "span ended", logAttrs...)
}

func (s *span) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *span) SetStatus(code observability.StatusCode, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch code {
	case observability.StatusOK:
		s.status = "ok"
	case observability.StatusError:
		s.status = "error"
	default:
		s.status = "unset"
	}
	if description != "" {
		s.attrs = append(s.attrs, observability.String("status.description", description))
	}
}

func (s *span) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attrs = append(s.attrs, observability.Error(err))
	s.logger.LogAttrs(s.ctx, slog.LevelDebug, "span error", s.logAttrs("error", []observability.Attribute{observability.Error(err)})...)
}

func (s *span) AddEvent(name string, attrs ...observability.Attribute) {
	s.logger.LogAttrs(s.ctx, slog.LevelDebug, "span event", s.logAttrs(name, attrs)...)
}

func (s *span) logAttrs(event string, attrs []observability.Attribute) []slog.Attr {
	logAttrs := make([]slog.Attr, 0, len(attrs)+2)
	logAttrs = append(logAttrs, slog.String("span", s.name), slog.String("event", event))
	return append(logAttrs, toSlog(attrs)...)
}

func toSlog(attrs []observability.Attribute) []slog.Attr {
	logAttrs := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	return logAttrs
}
