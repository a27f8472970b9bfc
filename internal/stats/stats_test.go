package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volleyhq/volley/pkg/models"
)

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, 2*time.Second)
	assert.Equal(t, 0, s.TotalRequests)
	assert.Equal(t, 0.0, s.SuccessRate)
	assert.Equal(t, 0.0, s.AvgResponseTime)
	assert.Equal(t, 0.0, s.RequestsPerSecond)
	assert.Equal(t, 2.0, s.TotalDuration)
}

func TestSummarizeMixed(t *testing.T) {
	outcomes := []models.Outcome{
		{Status: models.StatusSuccess, ResponseTime: 0.1},
		{Status: models.StatusSuccess, ResponseTime: 0.3},
		{Status: models.StatusError, ResponseTime: 0.8},
		{Status: models.StatusError, ResponseTime: 0.4},
	}
	s := Summarize(outcomes, 2*time.Second)

	assert.Equal(t, 4, s.TotalRequests)
	assert.Equal(t, 2, s.SuccessfulRequests)
	assert.Equal(t, 2, s.FailedRequests)
	assert.Equal(t, s.TotalRequests, s.SuccessfulRequests+s.FailedRequests)
	assert.InDelta(t, 50.0, s.SuccessRate, 0.001)
	assert.InDelta(t, 0.4, s.AvgResponseTime, 0.001)
	assert.InDelta(t, 0.2, s.AvgSuccessResponseTime, 0.001, "success average ignores failures")
	assert.InDelta(t, 0.1, s.MinResponseTime, 0.001)
	assert.InDelta(t, 0.8, s.MaxResponseTime, 0.001)
	assert.InDelta(t, 2.0, s.RequestsPerSecond, 0.001)
}

func TestSummarizeAllFailed(t *testing.T) {
	outcomes := []models.Outcome{
		{Status: models.StatusError, ResponseTime: 0.2},
		{Status: models.StatusError, ResponseTime: 0.2},
	}
	s := Summarize(outcomes, time.Second)
	assert.Equal(t, 0.0, s.SuccessRate)
	assert.Equal(t, 0.0, s.AvgSuccessResponseTime)
	assert.Equal(t, 2, s.FailedRequests)
}

func TestSummarizePercentiles(t *testing.T) {
	outcomes := make([]models.Outcome, 100)
	for i := range outcomes {
		outcomes[i] = models.Outcome{
			Status:       models.StatusSuccess,
			ResponseTime: float64(i+1) / 1000, // 1ms..100ms
		}
	}
	s := Summarize(outcomes, time.Second)

	require.Equal(t, 100, s.TotalRequests)
	assert.InDelta(t, 0.050, s.P50ResponseTime, 0.005)
	assert.InDelta(t, 0.090, s.P90ResponseTime, 0.005)
	assert.InDelta(t, 0.095, s.P95ResponseTime, 0.005)
	assert.InDelta(t, 0.099, s.P99ResponseTime, 0.005)
	assert.LessOrEqual(t, s.P50ResponseTime, s.P99ResponseTime)
}

func TestSummarizeZeroWall(t *testing.T) {
	s := Summarize([]models.Outcome{{Status: models.StatusSuccess}}, 0)
	assert.Equal(t, 0.0, s.RequestsPerSecond, "zero wall time must not divide")
	assert.Equal(t, 1, s.TotalRequests)
}

func TestSummarizeIsPure(t *testing.T) {
	outcomes := []models.Outcome{{Status: models.StatusSuccess, ResponseTime: 0.25}}
	a := Summarize(outcomes, time.Second)
	b := Summarize(outcomes, time.Second)
	assert.Equal(t, a, b)
	assert.Equal(t, 0.25, outcomes[0].ResponseTime, "input must not be mutated")
}
