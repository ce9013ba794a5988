package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "checkout.log")

	logger, err := NewLogger(Options{Service: "checkout", Env: "test", File: path})
	require.NoError(t, err)

	WithTrace(logger, "", "").Info("order_placed")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"order_placed"`)
	assert.Contains(t, string(data), `"service":"checkout"`)
	assert.Contains(t, string(data), `"trace_id":"unknown"`)
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger(Options{Service: "checkout", Level: "loud"})
	assert.Error(t, err)
}
