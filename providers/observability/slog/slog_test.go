package slog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woodman33/llmbridge/providers/observability"
)

func newJSONObserver(level slog.Level) (*Observer, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})
	return New(slog.New(handler)), &buf
}

func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		out = append(out, record)
	}
	return out
}

func TestObserver_LevelsFilter(t *testing.T) {
	observer, buf := newJSONObserver(slog.LevelDebug)
	ctx := context.Background()

	observer.Trace(ctx, "hidden")
	observer.Debug(ctx, "retrying request", observability.String(observability.AttrProvider, "openai"), observability.Int("attempt", 2))
	observer.Warn(ctx, "limiter store unavailable")

	logged := records(t, buf)
	require.Len(t, logged, 2)
	assert.Equal(t, "retrying request", logged[0]["msg"])
	assert.Equal(t, "openai", logged[0][observability.AttrProvider])
	assert.EqualValues(t, 2, logged[0]["attempt"])
	assert.Equal(t, "WARN", logged[1]["level"])
}

func TestObserver_TraceEnabled(t *testing.T) {
	observer, buf := newJSONObserver(LevelTrace)

	observer.Trace(context.Background(), "preparing request")

	assert.Len(t, records(t, buf), 1)
}

func TestSpan_Lifecycle(t *testing.T) {
	observer, buf := newJSONObserver(slog.LevelDebug)
	ctx := observability.ContextWithObserver(context.Background(), observer)

	ctx, span := observability.StartSpan(ctx, observability.SpanProviderSend, observability.String(observability.AttrProvider, "mistral"))
	require.NotNil(t, span)
	assert.Same(t, span, observability.SpanFromContext(ctx))

	span.AddEvent("retry", observability.Int("attempt", 1))
	span.RecordError(errors.New("connection reset"))
	span.SetAttributes(observability.Int(observability.AttrTokensPrompt, 12))
	span.SetStatus(observability.StatusError, "gave up")
	span.End()
	span.End()

	logged := records(t, buf)
	require.Len(t, logged, 4)
	assert.Equal(t, "span started", logged[0]["msg"])
	assert.Equal(t, "span event", logged[1]["msg"])
	assert.Equal(t, "retry", logged[1]["event"])
	assert.Equal(t, "span error", logged[2]["msg"])

	end := logged[3]
	assert.Equal(t, "span ended", end["msg"])
	assert.Equal(t, "WARN", end["level"])
	assert.Equal(t, "error", end["status"])
	assert.Equal(t, "gave up", end["status.description"])
	assert.Equal(t, "mistral", end[observability.AttrProvider])
	assert.EqualValues(t, 12, end[observability.AttrTokensPrompt])
	assert.Equal(t, "connection reset", end[observability.AttrError])
	assert.Contains(t, end, "duration")
}

func TestStartSpan_WithoutObserver(t *testing.T) {
	ctx, span := observability.StartSpan(context.Background(), "noop")

	assert.Nil(t, span)
	assert.Nil(t, observability.SpanFromContext(ctx))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"trace":   LevelTrace,
		"DEBUG":   slog.LevelDebug,
		" info ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for input, want := range tests {
		assert.Equal(t, want, ParseLevel(input), input)
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LLMBRIDGE_LOG_LEVEL", "")
	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, slog.LevelDebug, LevelFromEnv())

	t.Setenv("LLMBRIDGE_LOG_LEVEL", "error")
	assert.Equal(t, slog.LevelError, LevelFromEnv())
}
