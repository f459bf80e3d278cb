package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"signserver/internal/logger"
	"signserver/internal/models"
)

// CookieName is the browser cookie carrying the session ID.
const CookieName = "session_id"

// Session keeps the running counters for one browser session. Counters
// only grow while the session lives; Reset or expiry returns them to zero.
type Session struct {
	ID              string         `json:"id"`
	CreatedAt       time.Time      `json:"createdAt"`
	LastSeen        time.Time      `json:"lastSeen"`
	ImagesAnalyzed  int            `json:"imagesAnalyzed"`
	TotalDetections int            `json:"totalDetections"`
	LabelCounts     map[string]int `json:"labelCounts"`
}

// Manager owns all live sessions and expires the idle ones.
type Manager struct {
	sessions map[string]*Session
	ttl      time.Duration
	mu       sync.RWMutex
	logger   *logger.Logger
}

// NewManager creates a session manager with the given idle TTL.
func NewManager(ttl time.Duration, logger *logger.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger,
	}
}

// NewID returns a fresh session identifier.
func (m *Manager) NewID() string {
	return uuid.NewString()
}

// Touch marks the session as active, creating it when missing or expired.
func (m *Manager) Touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getOrCreateLocked(id).LastSeen = time.Now()
}

func (m *Manager) getOrCreateLocked(id string) *Session {
	if s, ok := m.sessions[id]; ok {
		return s
	}

	now := time.Now()
	s := &Session{
		ID:          id,
		CreatedAt:   now,
		LastSeen:    now,
		LabelCounts: make(map[string]int),
	}
	m.sessions[id] = s
	return s
}

// RecordAnalysis adds one analyzed image and its detections to the
// session counters.
func (m *Manager) RecordAnalysis(id string, detections []models.Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getOrCreateLocked(id)
	s.ImagesAnalyzed++
	s.TotalDetections += len(detections)
	for _, det := range detections {
		s.LabelCounts[det.Label]++
	}
	s.LastSeen = time.Now()
}

// Snapshot returns a copy of the session state safe for serialization.
func (m *Manager) Snapshot(id string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getOrCreateLocked(id)
	snapshot := *s
	snapshot.LabelCounts = make(map[string]int, len(s.LabelCounts))
	for label, count := range s.LabelCounts {
		snapshot.LabelCounts[label] = count
	}
	return snapshot
}

// LabelCounts returns a copy of the per-label counters of the session.
func (m *Manager) LabelCounts(id string) map[string]int {
	return m.Snapshot(id).LabelCounts
}

// Reset zeroes the counters of the session.
func (m *Manager) Reset(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getOrCreateLocked(id)
	s.ImagesAnalyzed = 0
	s.TotalDetections = 0
	s.LabelCounts = make(map[string]int)
	s.LastSeen = time.Now()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions idle past the TTL and returns how many were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.ttl)
	removed := 0
	for id, s := range m.sessions {
		if s.LastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions on the given interval.
func (m *Manager) Run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		<-ticker.C
		if removed := m.Sweep(); removed > 0 {
			m.logger.Info("Expired %d idle session(s), %d active", removed, m.Count())
		}
	}
}
