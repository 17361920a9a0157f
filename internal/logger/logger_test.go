package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captured(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := globalLogger
	t.Cleanup(func() { globalLogger = prev })
	var buf bytes.Buffer
	SetOutput(&buf, zerolog.DebugLevel)
	return &buf
}

func TestErrorLog(t *testing.T) {
	buf := captured(t)

	ErrorLog(context.Background(), errors.New("disk full"), "save %s", "report.xlsx")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "disk full", entry["error"])
	assert.Equal(t, "save report.xlsx", entry["message"])

	buf.Reset()
	ErrorLog(context.Background(), nil, "plain")
	entry = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "plain", entry["message"])
	assert.NotContains(t, entry, "error")
}

func TestWithLoggerFields(t *testing.T) {
	buf := captured(t)

	ctx := WithLogger(context.Background(), map[string]interface{}{"workbook": "wb-1"})
	WarnLog(ctx, "sheet %q missing", "Totals")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "wb-1", entry["workbook"])
	assert.Equal(t, `sheet "Totals" missing`, entry["message"])
}
