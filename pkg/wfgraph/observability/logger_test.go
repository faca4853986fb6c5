package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogger returns a debug-level JSON logger and a function that
// decodes every record written so far.
func captureLogger(t *testing.T) (*slog.Logger, func() []map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() []map[string]any {
		var records []map[string]any
		for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			if line == "" {
				continue
			}
			var rec map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &rec))
			records = append(records, rec)
		}
		return records
	}
}

func TestEnrichLogger(t *testing.T) {
	assert.Nil(t, EnrichLogger(nil, "r", "n", "llm"))

	logger, records := captureLogger(t)
	EnrichLogger(logger, "run-1", "classify", "llm").Info("working")

	recs := records()
	require.Len(t, recs, 1)
	assert.Equal(t, "run-1", recs[0]["run_id"])
	assert.Equal(t, "classify", recs[0]["node_id"])
	assert.Equal(t, "llm", recs[0]["node_kind"])
}

func TestLogHelpers(t *testing.T) {
	logger, records := captureLogger(t)
	boom := errors.New("boom")

	LogRunStart(logger, "run-1", "graph-1", 4)
	LogNodeStart(logger, "a", "tool")
	LogNodeComplete(logger, "a", "tool", 1500*time.Microsecond)
	LogNodeError(logger, "b", "http", boom)
	LogNodeSkipped(logger, "c", "branch not taken")
	LogBranchSelected(logger, "cond", "true")
	LogRunFailed(logger, "run-1", "b", boom, time.Second)
	LogRunCancelled(logger, "run-1", 2, time.Second)
	LogRunComplete(logger, "run-1", time.Second, 3, 1)
	LogRunStored(logger, "run-1", 512)
	LogRunStoreError(logger, "run-1", boom)

	recs := records()
	require.Len(t, recs, 11)

	byMsg := map[string]map[string]any{}
	for _, r := range recs {
		byMsg[r["msg"].(string)] = r
	}

	assert.Equal(t, "graph-1", byMsg["workflow run starting"]["graph_id"])
	assert.EqualValues(t, 4, byMsg["workflow run starting"]["nodes"])
	assert.EqualValues(t, 1.5, byMsg["node completed"]["duration_ms"])
	assert.Equal(t, "ERROR", byMsg["node failed"]["level"])
	assert.Equal(t, "boom", byMsg["node failed"]["error"])
	assert.Equal(t, "branch not taken", byMsg["node skipped"]["reason"])
	assert.Equal(t, "true", byMsg["branch selected"]["port"])
	assert.Equal(t, "b", byMsg["workflow run failed"]["failing_node"])
	assert.Equal(t, "WARN", byMsg["workflow run cancelled"]["level"])
	assert.EqualValues(t, 3, byMsg["workflow run completed"]["nodes_succeeded"])
	assert.EqualValues(t, 512, byMsg["run result stored"]["size_bytes"])
	assert.Equal(t, "WARN", byMsg["run store failed"]["level"])
}

func TestLogHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		LogRunStart(nil, "r", "g", 1)
		LogRunComplete(nil, "r", 0, 0, 0)
		LogRunFailed(nil, "r", "n", nil, 0)
		LogRunCancelled(nil, "r", 0, 0)
		LogNodeStart(nil, "n", "k")
		LogNodeComplete(nil, "n", "k", 0)
		LogNodeError(nil, "n", "k", errors.New("x"))
		LogNodeSkipped(nil, "n", "r")
		LogBranchSelected(nil, "n", "p")
		LogRunStored(nil, "r", 0)
		LogRunStoreError(nil, "r", nil)
	})
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), 2*time.Millisecond)
}
