package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/volleyhq/volley/pkg/models"
)

const timestampLayout = "20060102_150405"

// Writer persists run artifacts as JSON files: one full session dump
// and one lighter summary, both keyed by the run's start timestamp.
type Writer struct {
	dir string
}

// NewWriter creates the artifact directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// WriteArtifacts writes load_test_<ts>.json and summary_<ts>.json for
// a terminal session.
func (w *Writer) WriteArtifacts(s *models.Session) error {
	ts := s.StartTime.Format(timestampLayout)

	full, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	resultsPath := filepath.Join(w.dir, fmt.Sprintf("load_test_%s.json", ts))
	if err := os.WriteFile(resultsPath, full, 0o644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}

	summary := models.Summary{
		SessionID: s.ID,
		Timestamp: ts,
		Config:    s.Config,
		Stats:     s.Stats,
		Status:    s.Status,
	}
	light, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	summaryPath := filepath.Join(w.dir, fmt.Sprintf("summary_%s.json", ts))
	if err := os.WriteFile(summaryPath, light, 0o644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}
