package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	l, err := New(true, true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New(false, false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  phase  ", Value: "  connecting  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	require.Len(t, fields, 1)
	assert.Equal(t, "phase", fields[0].Key)
	assert.Equal(t, "connecting", fields[0].String)
	assert.Empty(t, StringFields())
}

func TestWithRequest(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithRequest(zap.New(core), "req-1").Info("hello")

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0].ContextMap()[FieldRequestID])
}

func TestWithLLM_SkipsEmpty(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithLLM(zap.New(core), "gemini", "").Info("call")

	ctx := observed.All()[0].ContextMap()
	assert.Equal(t, "gemini", ctx[FieldProvider])
	_, ok := ctx[FieldModel]
	assert.False(t, ok)
}

func TestWithFields_NilLogger(t *testing.T) {
	l := WithFields(nil, zap.String("a", "b"))
	require.NotNil(t, l)
	l.Info("does not panic")
	assert.NotNil(t, OrNop(nil))
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "hello", TruncateForLog("  hello  ", 10))
	assert.Equal(t, "hel...", TruncateForLog("hello", 3))
	assert.Equal(t, "", TruncateForLog("hello", 0))
}
