package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "apurimacd.log")
	logger, err := New(path, "work", "")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("started", zap.String("socket", "/tmp/s"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "started", entry["msg"])
	assert.Equal(t, "work", entry["session"])
	assert.Equal(t, "/tmp/s", entry["socket"])
	assert.Contains(t, entry, "ts")
	assert.Contains(t, entry, "pid")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "d.log"), "main", "loud")
	assert.Error(t, err)
}
