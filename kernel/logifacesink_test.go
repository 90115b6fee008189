package kernel

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogifaceLoggerWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogifaceLogger(&buf, LevelDebug)

	assert.True(t, l.IsEnabled(LevelDebug))
	l.Log(LogRecord{
		Level:    LevelWarn,
		Category: "mutex",
		PID:      3,
		Message:  "blocked on contended resource",
		Fields:   map[string]any{"resource_id": 1},
	})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.EqualValues(t, 3, decoded["pid"])
	assert.Equal(t, "mutex", decoded["category"])
}

func TestLogifaceLoggerRespectsLevelFloor(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogifaceLogger(&buf, LevelError)
	assert.False(t, l.IsEnabled(LevelDebug))
	assert.True(t, l.IsEnabled(LevelError))

	l.Log(LogRecord{Level: LevelDebug, Message: "dropped"})
	assert.Empty(t, buf.String())
}
