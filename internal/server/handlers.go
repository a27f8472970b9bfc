package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/volleyhq/volley/internal/session"
	"github.com/volleyhq/volley/internal/storage"
	"github.com/volleyhq/volley/pkg/config"
	"github.com/volleyhq/volley/pkg/models"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// handleStart allocates a session and returns its id immediately; the
// run proceeds in the background.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var cfg models.TestConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	config.ApplyDefaults(&cfg)
	if err := config.Validate(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.mgr.Start(cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to start load test: %v", err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"session_id": id,
		"status":     string(models.StateRunning),
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.mgr.Cancel(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Test session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": id,
		"status":     "cancellation_requested",
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.mgr.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Test session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ListSummaries()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load history: %v", err))
		return
	}
	if summaries == nil {
		summaries = []models.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": summaries})
}

// saveConfigRequest wraps a configuration with its catalog metadata.
type saveConfigRequest struct {
	ID     string            `json:"id,omitempty"`
	Name   string            `json:"name,omitempty"`
	Config models.TestConfig `json:"config"`
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var req saveConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Name == "" {
		req.Name = fmt.Sprintf("config_%s", time.Now().Format("20060102_150405"))
	}

	saved, err := s.store.SaveConfig(models.SavedConfig{
		ID:     req.ID,
		Name:   req.Name,
		Config: req.Config,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateName) {
			writeError(w, http.StatusBadRequest, "Configuration name already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save config: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"id":     saved.ID,
		"name":   saved.Name,
	})
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.store.ListConfigs()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list configs: %v", err))
		return
	}

	type item struct {
		ID      string    `json:"id"`
		Name    string    `json:"name"`
		SavedAt time.Time `json:"saved_at"`
	}
	items := make([]item, 0, len(configs))
	for _, c := range configs {
		items = append(items, item{ID: c.ID, Name: c.Name, SavedAt: c.SavedAt})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"configs": items})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	sc, err := s.store.GetConfig(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Config not found")
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteConfig(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, "Config not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Config deleted"})
}

// validationType describes one rule variant for UI clients.
type validationType struct {
	Value             models.RuleType `json:"value"`
	Label             string          `json:"label"`
	Description       string          `json:"description"`
	RequiresValue     bool            `json:"requires_value"`
	RequiresFieldPath bool            `json:"requires_field_path"`
}

var validationTypeCatalog = []validationType{
	{models.RuleExists, "String Exists", "Check if a string exists in the response", true, false},
	{models.RuleNotExists, "String Does Not Exist", "Check if a string does not exist in the response", true, false},
	{models.RuleStatusCode, "Status Code Check", "Validate HTTP status code", true, false},
	{models.RuleRegexMatch, "Regex Pattern Match", "Check if response matches a regex pattern", true, false},
	{models.RuleJSONPath, "JSON Path Value", "Validate value at specific JSON path", true, true},
	{models.RuleBooleanCheck, "Boolean Check", "Check for truthy/falsy values in response", true, false},
	{models.RuleValueCheck, "Exact Value Match", "Check if response exactly matches expected value", true, false},
}

func (s *Server) handleValidationTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"types": validationTypeCatalog})
}
