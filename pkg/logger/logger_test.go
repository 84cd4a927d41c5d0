package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New("warn", buf)

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept", "account_id", "a-1")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "a-1", entry["account_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestFromContext(t *testing.T) {
	fallback := Discard()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))
	assert.Same(t, slog.Default(), FromContext(context.Background(), nil))

	buf := &bytes.Buffer{}
	ctx := ToContext(context.Background(), New("info", buf))
	_, ctx = With(ctx, "request_id", "req-7")

	FromContext(ctx, fallback).Info("hello")
	assert.Contains(t, buf.String(), `"request_id":"req-7"`)
}
