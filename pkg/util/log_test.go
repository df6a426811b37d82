package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level   string
		want    logrus.Level
		wantErr bool
	}{
		{"debug", logrus.DebugLevel, false},
		{"info", logrus.InfoLevel, false},
		{"warn", logrus.WarnLevel, false},
		{"warning", logrus.WarnLevel, false},
		{"WARNING", logrus.WarnLevel, false},
		{"error", logrus.ErrorLevel, false},
		{"invalid", logrus.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := ParseLevel(tt.level)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "config.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("stale line from a previous run\n"), 0644))

	sink, err := NewLogger("info", path)
	require.NoError(t, err)

	WithDevice(sink, "r1").Info("is open!")
	WithDevice(sink, "r1").Debug("filtered out")
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "stale line")
	assert.Contains(t, out, "is open!")
	assert.Contains(t, out, "device=r1")
	assert.NotContains(t, out, "filtered out")
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := NewLogger("loud", "")
	assert.Error(t, err)
}

func TestNullLogger(t *testing.T) {
	log := NewNullLogger()
	WithPhase(log, "connect").Warn("nothing to see")
}
