package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/voidmaw/regflow/internal/config"
)

func TestInitializeConsoleLogger(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	sink := &zaptest.Buffer{}
	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "regflow-test",
	}, sink)

	GetLogger().Named("unit").Info("console sink check")

	out := sink.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "regflow-test.unit.")
	assert.Contains(t, out, "console sink check")
}

func TestInitializeFileSinkIsJSON(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logFile := filepath.Join(t.TempDir(), "regflow.log")
	Initialize(config.LoggerConfig{
		Level:       "info",
		Format:      "console",
		ServiceName: "regflow-test",
		LogFile:     logFile,
		MaxSize:     1,
	}, &zaptest.Buffer{})

	GetLogger().Info("file sink check")
	Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)

	line := strings.TrimSpace(strings.Split(string(data), "\n")[0])
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "file sink check", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestInitializeRunsOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	first := &zaptest.Buffer{}
	second := &zaptest.Buffer{}
	Initialize(config.LoggerConfig{Level: "info", ServiceName: "one"}, first)
	Initialize(config.LoggerConfig{Level: "info", ServiceName: "two"}, second)

	GetLogger().Info("routed to the first sink")

	assert.Contains(t, first.String(), "routed to the first sink")
	assert.Empty(t, second.String())
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	sink := &zaptest.Buffer{}
	Initialize(config.LoggerConfig{Level: "shouting", ServiceName: "x"}, sink)

	GetLogger().Debug("suppressed")
	GetLogger().Info("visible")

	assert.NotContains(t, sink.String(), "suppressed")
	assert.Contains(t, sink.String(), "visible")
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	assert.NotNil(t, GetLogger())
}
