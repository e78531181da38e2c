package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

// captureLogs routes the global logger into a buffer at debug level for the
// duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevLogger, prevDetailed := globalLogger, detailedLogging
	globalLogger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	detailedLogging = true
	t.Cleanup(func() {
		globalLogger, detailedLogging = prevLogger, prevDetailed
	})
	return &buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestOperationTimerEnd(t *testing.T) {
	buf := captureLogs(t)

	op := StartOperation(context.Background(), "exec.submit", "symbol", "BTC-USDT")
	require.NotNil(t, op.Context())
	op.End("order_id", "SIM-1")

	lines := logLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "Operation started", lines[0]["msg"])
	assert.Equal(t, "exec.submit", lines[0]["operation"])

	assert.Equal(t, "Operation completed", lines[1]["msg"])
	assert.Equal(t, "BTC-USDT", lines[1]["symbol"])
	assert.Equal(t, "SIM-1", lines[1]["order_id"])
	assert.Contains(t, lines[1], "duration_ms")
}

func TestOperationTimerEndWithError(t *testing.T) {
	buf := captureLogs(t)

	op := StartOperation(context.Background(), "exec.submit", "symbol", "ETH-USDT")
	op.EndWithError(errors.New("rejected"))

	lines := logLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "Operation failed", lines[1]["msg"])
	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "rejected", lines[1]["error"])
	assert.Equal(t, "ETH-USDT", lines[1]["symbol"])
}

func TestDebugDroppedWithoutDetailedLogging(t *testing.T) {
	buf := captureLogs(t)
	detailedLogging = false

	op := StartOperation(context.Background(), "exec.submit")
	op.End()

	assert.Empty(t, buf.String())
}

func TestToAttributes(t *testing.T) {
	attrs := toAttributes([]any{
		"symbol", "BTC-USDT",
		"count", 3,
		"size", decimal.RequireFromString("0.01"),
		42, "non-string key",
		"ok", true,
		"dangling",
	})

	assert.Equal(t, []attribute.KeyValue{
		attribute.String("symbol", "BTC-USDT"),
		attribute.Int("count", 3),
		attribute.String("size", "0.01"),
		attribute.Bool("ok", true),
	}, attrs)
}
