package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volleyhq/volley/pkg/models"
)

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	start := time.Date(2026, 8, 24, 14, 30, 5, 0, time.UTC)
	end := start.Add(3 * time.Second)
	sess := &models.Session{
		ID:        "sess-artifacts",
		Config:    models.TestConfig{URL: "https://api.example.com", Method: "GET", ConcurrentCalls: 2},
		Status:    models.StateCompleted,
		StartTime: start,
		EndTime:   &end,
		Results: []models.Outcome{
			{Status: models.StatusSuccess, ResponseTime: 0.12, StatusCode: 200},
			{Status: models.StatusError, ResponseTime: 0.30, StatusCode: 500},
		},
		Stats: &models.Stats{TotalRequests: 2, SuccessfulRequests: 1, FailedRequests: 1, SuccessRate: 50},
	}
	require.NoError(t, w.WriteArtifacts(sess))

	fullPath := filepath.Join(dir, "load_test_20260824_143005.json")
	data, err := os.ReadFile(fullPath)
	require.NoError(t, err)

	var full models.Session
	require.NoError(t, json.Unmarshal(data, &full))
	assert.Equal(t, "sess-artifacts", full.ID)
	assert.Len(t, full.Results, 2)
	assert.Equal(t, models.StateCompleted, full.Status)

	summaryPath := filepath.Join(dir, "summary_20260824_143005.json")
	data, err = os.ReadFile(summaryPath)
	require.NoError(t, err)

	var summary models.Summary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, "sess-artifacts", summary.SessionID)
	assert.Equal(t, "20260824_143005", summary.Timestamp)
	require.NotNil(t, summary.Stats)
	assert.Equal(t, 2, summary.Stats.TotalRequests)
}

func TestNewWriterCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs", "nested")
	_, err := NewWriter(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
