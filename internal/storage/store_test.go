package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volleyhq/volley/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "volley.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleConfig() models.TestConfig {
	return models.TestConfig{
		URL:             "https://api.example.com/health",
		Method:          "GET",
		ConcurrentCalls: 5,
	}
}

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "volley.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSaveAndGetConfig(t *testing.T) {
	s := openTestStore(t)

	saved, err := s.SaveConfig(models.SavedConfig{Name: "smoke", Config: sampleConfig()})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.False(t, saved.SavedAt.IsZero())

	byID, err := s.GetConfig(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "smoke", byID.Name)
	assert.Equal(t, sampleConfig().URL, byID.Config.URL)

	byName, err := s.GetConfig("smoke")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, byName.ID)
}

func TestGetConfigNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetConfig("missing")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestDuplicateNameRejected(t *testing.T) {
	s := openTestStore(t)

	_, err := s.SaveConfig(models.SavedConfig{Name: "Smoke", Config: sampleConfig()})
	require.NoError(t, err)

	// Case-insensitive collision.
	_, err = s.SaveConfig(models.SavedConfig{Name: "smoke", Config: sampleConfig()})
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestUpdateKeepsCreatedAt(t *testing.T) {
	s := openTestStore(t)

	first, err := s.SaveConfig(models.SavedConfig{Name: "smoke", Config: sampleConfig()})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	updated, err := s.SaveConfig(models.SavedConfig{ID: first.ID, Name: "smoke-v2", Config: sampleConfig()})
	require.NoError(t, err)

	assert.Equal(t, first.ID, updated.ID)
	assert.True(t, updated.CreatedAt.Equal(first.CreatedAt), "updates keep their creation time")
	assert.True(t, updated.SavedAt.After(first.SavedAt))

	got, err := s.GetConfig(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "smoke-v2", got.Name)
}

func TestListConfigsNewestFirst(t *testing.T) {
	s := openTestStore(t)

	for _, name := range []string{"first", "second", "third"} {
		_, err := s.SaveConfig(models.SavedConfig{Name: name, Config: sampleConfig()})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	configs, err := s.ListConfigs()
	require.NoError(t, err)
	require.Len(t, configs, 3)
	assert.Equal(t, "third", configs[0].Name)
	assert.Equal(t, "first", configs[2].Name)
}

func TestDeleteConfig(t *testing.T) {
	s := openTestStore(t)

	saved, err := s.SaveConfig(models.SavedConfig{Name: "doomed", Config: sampleConfig()})
	require.NoError(t, err)

	require.NoError(t, s.DeleteConfig("doomed")) // by name works too
	_, err = s.GetConfig(saved.ID)
	assert.ErrorIs(t, err, ErrConfigNotFound)

	assert.ErrorIs(t, s.DeleteConfig("doomed"), ErrConfigNotFound)
}

func TestSummariesNewestFirst(t *testing.T) {
	s := openTestStore(t)

	for i, ts := range []string{"20260101_090000", "20260301_090000", "20260201_090000"} {
		require.NoError(t, s.SaveSummary(models.Summary{
			SessionID: string(rune('a' + i)),
			Timestamp: ts,
			Status:    models.StateCompleted,
		}))
	}

	summaries, err := s.ListSummaries()
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "20260301_090000", summaries[0].Timestamp)
	assert.Equal(t, "20260101_090000", summaries[2].Timestamp)
}

func TestSaveSummaryOverwritesSameSession(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveSummary(models.Summary{SessionID: "s1", Timestamp: "20260101_090000", Status: models.StateRunning}))
	require.NoError(t, s.SaveSummary(models.Summary{SessionID: "s1", Timestamp: "20260101_090000", Status: models.StateCompleted}))

	summaries, err := s.ListSummaries()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, models.StateCompleted, summaries[0].Status)
}
