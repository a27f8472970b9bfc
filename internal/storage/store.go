package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volleyhq/volley/pkg/models"
	"go.etcd.io/bbolt"
)

const (
	bucketConfigs   = "configs"
	bucketSummaries = "summaries"
)

// ErrConfigNotFound is returned when no saved configuration matches
// the given id or filename.
var ErrConfigNotFound = errors.New("config not found")

// ErrDuplicateName rejects a new configuration whose name collides
// (case-insensitively) with an existing one.
var ErrDuplicateName = errors.New("configuration name already exists")

// Store keeps saved test configurations and run summaries in a bbolt
// database.
type Store struct {
	db *bbolt.DB
}

// Open creates or opens the database at path, creating parent
// directories and the required buckets.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketConfigs, bucketSummaries} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveConfig creates or updates a named configuration. New configs get
// a generated id and must not reuse an existing name; updates keep
// their creation time.
func (s *Store) SaveConfig(sc models.SavedConfig) (models.SavedConfig, error) {
	now := time.Now()
	sc.SavedAt = now

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketConfigs))

		if sc.ID == "" {
			// Creating: reject duplicate names.
			dup := false
			_ = b.ForEach(func(_, v []byte) error {
				var existing models.SavedConfig
				if json.Unmarshal(v, &existing) == nil &&
					strings.EqualFold(existing.Name, sc.Name) {
					dup = true
				}
				return nil
			})
			if dup {
				return ErrDuplicateName
			}
			sc.ID = uuid.New().String()
			sc.CreatedAt = now
		} else {
			if prev := b.Get([]byte(sc.ID)); prev != nil {
				var existing models.SavedConfig
				if json.Unmarshal(prev, &existing) == nil {
					sc.CreatedAt = existing.CreatedAt
				}
			} else {
				sc.CreatedAt = now
			}
		}

		data, err := json.Marshal(sc)
		if err != nil {
			return err
		}
		return b.Put([]byte(sc.ID), data)
	})
	if err != nil {
		return models.SavedConfig{}, err
	}
	return sc, nil
}

// ListConfigs returns all saved configurations, most recently saved
// first.
func (s *Store) ListConfigs() ([]models.SavedConfig, error) {
	var out []models.SavedConfig
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketConfigs)).ForEach(func(_, v []byte) error {
			var sc models.SavedConfig
			if err := json.Unmarshal(v, &sc); err != nil {
				return nil // skip unreadable records
			}
			out = append(out, sc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}

// GetConfig looks a configuration up by id, falling back to name.
func (s *Store) GetConfig(idOrName string) (models.SavedConfig, error) {
	var found *models.SavedConfig
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketConfigs))
		if v := b.Get([]byte(idOrName)); v != nil {
			var sc models.SavedConfig
			if err := json.Unmarshal(v, &sc); err == nil {
				found = &sc
				return nil
			}
		}
		return b.ForEach(func(_, v []byte) error {
			var sc models.SavedConfig
			if json.Unmarshal(v, &sc) == nil && sc.Name == idOrName {
				found = &sc
			}
			return nil
		})
	})
	if err != nil {
		return models.SavedConfig{}, err
	}
	if found == nil {
		return models.SavedConfig{}, ErrConfigNotFound
	}
	return *found, nil
}

// DeleteConfig removes a configuration by id or name.
func (s *Store) DeleteConfig(idOrName string) error {
	sc, err := s.GetConfig(idOrName)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketConfigs)).Delete([]byte(sc.ID))
	})
}

// SaveSummary appends a run summary to the history.
func (s *Store) SaveSummary(summary models.Summary) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(summary)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketSummaries)).Put([]byte(summary.SessionID), data)
	})
}

// ListSummaries returns the run history, newest first.
func (s *Store) ListSummaries() ([]models.Summary, error) {
	var out []models.Summary
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketSummaries)).ForEach(func(_, v []byte) error {
			var sum models.Summary
			if err := json.Unmarshal(v, &sum); err != nil {
				return nil
			}
			out = append(out, sum)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}
