// Package logging tests for the structured logger.
package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"ERROR", logrus.ErrorLevel},
		{"nonsense", logrus.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "debug")

	l.WithFields(Fields{"user_id": "u1", "count": 3}).Info("pull completed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "pull completed", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "u1", entry["user_id"])
	assert.Equal(t, float64(3), entry["count"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn")

	l.Info("suppressed")
	assert.Zero(t, buf.Len())

	l.Warn("emitted")
	assert.NotZero(t, buf.Len())
}
