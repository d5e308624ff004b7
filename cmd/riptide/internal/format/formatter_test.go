package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-sec/riptide/pkg/scan"
)

func sampleResult(t *testing.T) scan.Result {
	t.Helper()
	target, err := scan.ForIP("10.0.0.8")
	require.NoError(t, err)
	return scan.Result{
		RunID:  "run-9",
		Target: target,
		Status: scan.StatusPartiallySucceeded,
		Findings: []scan.Finding{
			{Plugin: "remote/127.0.0.1:34567", ID: "CVE-2024-0001", Title: "Example RCE", Severity: scan.CriticalSeverity},
		},
		Outcomes: []scan.PluginOutcome{
			{Plugin: "remote/127.0.0.1:34567", Findings: 1},
			{Plugin: "remote/127.0.0.1:34568", Error: "backend unavailable"},
		},
		StartedAt:  time.Now().Add(-2 * time.Second),
		FinishedAt: time.Now(),
	}
}

func TestPrintResultText(t *testing.T) {
	var stdout, stderr bytes.Buffer
	f := New(&stdout, &stderr, ModeText, false)

	require.NoError(t, f.PrintResult(sampleResult(t)))

	out := stdout.String()
	assert.Contains(t, out, "PARTIALLY_SUCCEEDED")
	assert.Contains(t, out, "CVE-2024-0001")
	assert.Contains(t, out, "Failed plugins:")
	assert.Contains(t, out, "backend unavailable")
}

func TestPrintResultJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	f := New(&stdout, &stderr, ModeJSON, false)

	require.NoError(t, f.PrintResult(sampleResult(t)))

	var got scan.Result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, "run-9", got.RunID)
	assert.Len(t, got.Findings, 1)
}

func TestPrintFailure(t *testing.T) {
	var stdout, stderr bytes.Buffer
	f := New(&stdout, &stderr, ModeText, false)

	require.NoError(t, f.PrintFailure(errors.New("invalid scan target"), "CONFIGURATION_ERROR"))
	assert.Contains(t, stderr.String(), "invalid scan target")
	assert.Empty(t, stdout.String())
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeJSON, ParseMode("json"))
	assert.Equal(t, ModeJSON, ParseMode("JSON"))
	assert.Equal(t, ModeText, ParseMode("text"))
	assert.Equal(t, ModeText, ParseMode("anything"))
}
