package logger_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"quest-maker/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesISOTimestampAndCapitalLevel(t *testing.T) {
	out := filepath.Join(t.TempDir(), "app.log")
	log, err := logger.New(logger.Config{Level: "debug", Encoding: "json", OutputPath: out, Service: logger.ServiceServer})
	require.NoError(t, err)

	log.Named("GraphStore").Debug("Scenario created", zap.String("scenarioID", "cave"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "GraphStore", entry["logger"])
	assert.Equal(t, "cave", entry["scenarioID"])
	assert.Equal(t, "quest-maker", entry["service"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewFallsBackToInfo(t *testing.T) {
	log, err := logger.New(logger.Config{Level: "verbose", Encoding: "xml"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
}
