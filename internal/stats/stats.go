package stats

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/volleyhq/volley/pkg/models"
)

// Summarize computes the summary statistics for a finished run from
// its ordered outcome list and total wall-clock duration. It is a pure
// function of its inputs; an empty outcome list yields all-zero stats
// with no division by zero.
func Summarize(outcomes []models.Outcome, wall time.Duration) *models.Stats {
	s := &models.Stats{
		TotalRequests: len(outcomes),
		TotalDuration: wall.Seconds(),
	}
	if len(outcomes) == 0 {
		return s
	}

	// min 1µs, max 30min (in µs), 3 significant figures
	hist := hdrhistogram.New(1, 1800000000, 3)

	var totalTime, successTime float64
	s.MinResponseTime = outcomes[0].ResponseTime
	for _, o := range outcomes {
		rt := o.ResponseTime
		totalTime += rt
		if rt < s.MinResponseTime {
			s.MinResponseTime = rt
		}
		if rt > s.MaxResponseTime {
			s.MaxResponseTime = rt
		}
		if o.Status == models.StatusSuccess {
			s.SuccessfulRequests++
			successTime += rt
		} else {
			s.FailedRequests++
		}
		us := int64(rt * 1e6)
		if us < 1 {
			us = 1
		}
		_ = hist.RecordValue(us)
	}

	s.SuccessRate = float64(s.SuccessfulRequests) / float64(s.TotalRequests) * 100
	s.AvgResponseTime = totalTime / float64(s.TotalRequests)
	if s.SuccessfulRequests > 0 {
		s.AvgSuccessResponseTime = successTime / float64(s.SuccessfulRequests)
	}
	if wall > 0 {
		s.RequestsPerSecond = float64(s.TotalRequests) / wall.Seconds()
	}

	s.P50ResponseTime = quantileSeconds(hist, 50)
	s.P90ResponseTime = quantileSeconds(hist, 90)
	s.P95ResponseTime = quantileSeconds(hist, 95)
	s.P99ResponseTime = quantileSeconds(hist, 99)

	return s
}

func quantileSeconds(h *hdrhistogram.Histogram, q float64) float64 {
	return float64(h.ValueAtQuantile(q)) / 1e6
}
