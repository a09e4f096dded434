package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesDailyJSON(t *testing.T) {
	dir := t.TempDir()
	log, err := New(Options{Dir: dir, Level: "debug"})
	require.NoError(t, err)
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	log.Debugw("tenant pool opened", "tenant_id", 7)
	_ = log.Sync()

	b, err := os.ReadFile(filepath.Join(dir, time.Now().Format(time.DateOnly)+".log"))
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, `"msg":"tenant pool opened"`)
	assert.Contains(t, out, `"tenant_id":7`)
	assert.Contains(t, out, `"service":"tenancy"`)
	assert.Equal(t, 2, strings.Count(out, "\n"), "logger online + debug line")
}

func TestNew_LevelFilters(t *testing.T) {
	dir := t.TempDir()
	log, err := New(Options{Dir: dir, Level: "warn"})
	require.NoError(t, err)
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	log.Infow("dropped")
	log.Warnw("kept")
	_ = log.Sync()

	b, err := os.ReadFile(filepath.Join(dir, time.Now().Format(time.DateOnly)+".log"))
	require.NoError(t, err)
	assert.NotContains(t, string(b), "dropped")
	assert.Contains(t, string(b), "kept")
}

func TestNew_RejectsBadLevel(t *testing.T) {
	_, err := New(Options{Dir: t.TempDir(), Level: "loud"})
	require.Error(t, err)
}
