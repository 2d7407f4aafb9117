package logger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapAdapter_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"taskType": "select-chart"})

	log.Info("processing job", map[string]interface{}{
		"jobKey": int64(42),
		"error":  fmt.Errorf("boom"),
	})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "processing job", entry.Message)

	ctx := entry.ContextMap()
	assert.Equal(t, "select-chart", ctx["taskType"])
	assert.Equal(t, int64(42), ctx["jobKey"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestZapAdapter_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := NewZapAdapter(zap.New(core))

	log.Debug("hidden", nil)
	log.Info("hidden", nil)
	log.Warn("shown", nil)
	log.WithError(fmt.Errorf("x")).Error("shown", nil)

	assert.Equal(t, 2, logs.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestBuild(t *testing.T) {
	l := Build(Options{Level: "debug", Format: "json", OutputPaths: []string{"stdout"}, ServiceName: "query-insight-workers"})
	require.NotNil(t, l)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	assert.NotNil(t, NewStructured("info", "console"))
	assert.NotNil(t, NewNoOpLogger())
	NewTestLogger(t).Info("test logger works", nil)
}
