package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/volleyhq/volley/internal/runner"
	"github.com/volleyhq/volley/internal/stats"
	"github.com/volleyhq/volley/pkg/models"
)

// ErrNotFound is returned for unknown, finished-and-evicted, or
// never-started session identifiers on cancel, and for unknown ids on
// status lookups.
var ErrNotFound = errors.New("test session not found")

// Persister writes the completion artifacts of a terminal session.
type Persister interface {
	WriteArtifacts(s *models.Session) error
}

// SummaryStore keeps the lightweight run history.
type SummaryStore interface {
	SaveSummary(models.Summary) error
}

// Manager owns the lifecycle of every test session in the process:
// it allocates session ids, runs the engine asynchronously, applies
// the running → completed/cancelled/failed state machine, and persists
// artifacts on natural completion or cancellation.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	active   map[string]*atomic.Bool // cancellation flags of running sessions

	pub       runner.Publisher
	persister Persister
	store     SummaryStore
}

// NewManager wires a manager. Any dependency may be nil: events,
// artifacts, and history are then skipped for that concern.
func NewManager(pub runner.Publisher, persister Persister, store SummaryStore) *Manager {
	return &Manager{
		sessions:  make(map[string]*models.Session),
		active:    make(map[string]*atomic.Bool),
		pub:       pub,
		persister: persister,
		store:     store,
	}
}

// Start allocates a session and begins execution asynchronously,
// returning the new identifier immediately. An engine construction
// failure is returned synchronously and leaves no session behind.
func (m *Manager) Start(cfg models.TestConfig) (string, error) {
	eng, err := runner.New(cfg, m.pub)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	s := &models.Session{
		ID:        id,
		Config:    cfg,
		Status:    models.StateRunning,
		StartTime: time.Now(),
		Results:   []models.Outcome{},
	}
	cancelled := &atomic.Bool{}

	m.mu.Lock()
	m.sessions[id] = s
	m.active[id] = cancelled
	m.mu.Unlock()

	log.WithFields(log.Fields{
		"session_id": id,
		"url":        cfg.URL,
		"requests":   cfg.TotalRequests(),
	}).Info("test session started")

	go m.run(eng, id, cancelled)
	return id, nil
}

// Cancel sets the cooperative cancellation flag on a running session.
// It prevents the next batch from starting; it never interrupts
// requests already in flight.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	flag, ok := m.active[id]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	flag.Store(true)
	log.WithField("session_id", id).Info("test session cancellation requested")
	return nil
}

// Get returns a snapshot of the session, which may still be running.
func (m *Manager) Get(id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	snap := *s
	snap.Results = append([]models.Outcome(nil), s.Results...)
	return &snap, nil
}

// run drives one session to a terminal state. Per-request failures are
// already data by the time they reach this loop; anything escaping the
// batch loop itself fails the whole run without partial persistence.
func (m *Manager) run(eng *runner.Engine, id string, cancelled *atomic.Bool) {
	defer func() {
		if r := recover(); r != nil {
			m.fail(id, r)
		}
	}()

	start := time.Now()
	outcomes := eng.Run(id, cancelled)
	wall := time.Since(start)

	summary := stats.Summarize(outcomes, wall)

	terminal := models.StateCompleted
	if cancelled.Load() {
		terminal = models.StateCancelled
	}

	now := time.Now()
	m.mu.Lock()
	s := m.sessions[id]
	s.Results = outcomes
	s.Stats = summary
	s.Status = terminal
	s.EndTime = &now
	snap := *s
	snap.Results = append([]models.Outcome(nil), outcomes...)
	delete(m.active, id)
	m.mu.Unlock()

	if m.pub != nil {
		if terminal == models.StateCancelled {
			m.pub.Publish(id, models.TestCancelledEvent{
				Type:              models.EventTestCancelled,
				SessionID:         id,
				Stats:             summary,
				CompletedRequests: len(outcomes),
			})
		} else {
			m.pub.Publish(id, models.TestCompletedEvent{
				Type:      models.EventTestCompleted,
				SessionID: id,
				Stats:     summary,
			})
		}
	}

	m.persist(&snap)

	log.WithFields(log.Fields{
		"session_id": id,
		"status":     terminal,
		"requests":   len(outcomes),
		"duration":   wall,
	}).Info("test session finished")
}

// fail transitions the session to Failed. No partial results or
// artifacts are kept on this path.
func (m *Manager) fail(id string, cause interface{}) {
	err, ok := cause.(error)
	if !ok {
		err = fmt.Errorf("%v", cause)
	}

	now := time.Now()
	m.mu.Lock()
	if s, tracked := m.sessions[id]; tracked {
		s.Status = models.StateFailed
		s.EndTime = &now
		s.Results = nil
		s.Stats = nil
	}
	delete(m.active, id)
	m.mu.Unlock()

	if m.pub != nil {
		m.pub.Publish(id, models.TestFailedEvent{
			Type:      models.EventTestFailed,
			SessionID: id,
			Error:     err.Error(),
		})
	}

	log.WithField("session_id", id).WithError(err).Error("test session failed")
}

// persist writes the full and summary artifacts. Persistence is
// fire-and-forget: failures are logged, never surfaced to the run.
func (m *Manager) persist(s *models.Session) {
	if m.persister != nil {
		if err := m.persister.WriteArtifacts(s); err != nil {
			log.WithField("session_id", s.ID).WithError(err).Warn("failed to write session artifacts")
		}
	}
	if m.store != nil {
		summary := models.Summary{
			SessionID: s.ID,
			Timestamp: s.StartTime.Format("20060102_150405"),
			Config:    s.Config,
			Stats:     s.Stats,
			Status:    s.Status,
		}
		if err := m.store.SaveSummary(summary); err != nil {
			log.WithField("session_id", s.ID).WithError(err).Warn("failed to store session summary")
		}
	}
}
