package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncidentContext(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Output: "json", Writer: &buf}))
	t.Cleanup(func() { _ = Init(Config{}) })

	ctx := WithContext(context.Background(), "invoice_id", "inv_01")
	IncidentContext(ctx, "settlement_failed", "supply exhausted")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "CRITICAL", rec["level"])
	assert.Equal(t, "settlement_failed", rec["event"])
	assert.Equal(t, "inv_01", rec["invoice_id"])
}

func TestErrorStackTraceInDebug(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Output: "json", Debug: true, Writer: &buf}))
	t.Cleanup(func() { _ = Init(Config{}) })

	ErrorContext(context.Background(), "boom", errors.New("cause"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "ERROR", rec["level"])
	assert.Contains(t, rec, "error_verbose")
	assert.Contains(t, rec, "stack_trace")
}

func TestLevelNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Output: "json", Writer: &buf}))
	t.Cleanup(func() { _ = Init(Config{}) })

	log(context.Background(), logger, LevelCritical+1, "odd")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "CRITICAL+1", rec["level"])
}
