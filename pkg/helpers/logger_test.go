package helpers

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerStampsAppAndEnv(t *testing.T) {
	logger := NewLogger("participa", "production")
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	LogError(logger, "dispatch failed", errors.New("boom"), logrus.Fields{"channel": "webhook"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "participa", entry["app"])
	assert.Equal(t, "production", entry["env"])
	assert.Equal(t, "webhook", entry["channel"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "dispatch failed", entry["msg"])
}
