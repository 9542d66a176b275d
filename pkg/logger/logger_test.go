package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext_AddsCorrelationID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	defer Set(zap.NewNop())

	ctx := WithCorrelationID(context.Background(), "req-123")
	FromContext(ctx).Event("booking.created", zap.String("booking_id", "b1"))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "booking.created", entries[0].Message)
		assert.Equal(t, "req-123", fields[CorrelationIDField])
		assert.Equal(t, "b1", fields["booking_id"])
		assert.Equal(t, "booking.created", fields["event"])
	}
}

func TestFromContext_WithoutCorrelationID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	defer Set(zap.NewNop())

	FromContext(context.Background()).Info("plain")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		_, ok := entries[0].ContextMap()[CorrelationIDField]
		assert.False(t, ok)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("development"))
}

func TestInit(t *testing.T) {
	err := Init(&Config{Level: "debug", ServiceName: "test", Development: true})
	assert.NoError(t, err)
	assert.NotNil(t, Get())
	Set(zap.NewNop())
}
