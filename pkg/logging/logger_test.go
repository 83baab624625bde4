package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatProducesParseableLines(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: DebugLevel, Format: JSONFormat, Output: &buf, Component: "engine"})
	logger.Info("write committed", F("inode", 42), F("bytes", 128))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "write committed", entry["message"])
	assert.Equal(t, "engine", entry["component"])
	assert.EqualValues(t, 42, entry["inode"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: WarnLevel, Format: TextFormat, Output: &buf})
	logger.Debug("should not appear")
	logger.Info("should not appear either")
	logger.Warn("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
}

func TestWithInheritsFieldsAndAppendsNew(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: DebugLevel, Format: TextFormat, Output: &buf})
	child := base.With("metastore", F("db", "cowfs.db"))
	child.Info("opened")

	out := buf.String()
	assert.True(t, strings.Contains(out, "metastore"))
	assert.True(t, strings.Contains(out, "db=cowfs.db"))
}
