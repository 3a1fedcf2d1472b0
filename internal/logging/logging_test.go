package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	l, err := New(Config{Outputs: []string{filepath.Join(t.TempDir(), "a.log")}})
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, l.Level())

	l.SetDebug(true)
	assert.Equal(t, zapcore.DebugLevel, l.Level())
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l.SetDebug(false)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestComponentWritesToOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retrofit.log")
	l, err := New(Config{Debug: true, Outputs: []string{path}})
	require.NoError(t, err)

	l.Component("patcher").Debug("patched")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.Contains(line, `"logger":"patcher"`), line)
	assert.True(t, strings.Contains(line, `"msg":"patched"`), line)
}

func TestNewBadOutput(t *testing.T) {
	_, err := New(Config{Outputs: []string{filepath.Join(t.TempDir(), "missing", "dir", "x.log")}})
	assert.Error(t, err)
}
