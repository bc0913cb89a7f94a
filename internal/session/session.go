// Package session keeps the per-visitor browsing state: the dine-in table,
// the chosen service type and the cart.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cafe-pos/internal/cart"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
)

// CookieName carries the session id between requests.
const CookieName = "pos_session"

// DefaultIdleTTL is how long an untouched session stays in memory.
const DefaultIdleTTL = 2 * time.Hour

var ErrSessionNotFound = errors.New("session not found")

// State is the persisted part of a session. Carts stay in memory.
type State struct {
	ID          string
	TableNumber *string
	ServiceType models.ServiceType
	UpdatedAt   time.Time
}

// Store persists session selections across restarts.
type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, state State) error
	Delete(ctx context.Context, id string) error
}

// Session is one visitor. All access goes through Do so handlers running
// concurrently for the same visitor see a consistent cart.
type Session struct {
	ID string

	mu          sync.Mutex
	tableNumber *string
	serviceType models.ServiceType
	cart        *cart.Cart
	submitting  bool

	// guarded by Manager.mu
	lastSeen time.Time
}

// View is a point-in-time copy of a session's selections.
type View struct {
	ID          string             `json:"id"`
	TableNumber *string            `json:"table_number,omitempty"`
	ServiceType models.ServiceType `json:"service_type"`
}

func newSession(id string) *Session {
	return &Session{ID: id, serviceType: models.DineIn, cart: cart.New()}
}

// Do runs fn with exclusive access to the cart.
func (s *Session) Do(fn func(c *cart.Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.cart)
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{ID: s.ID, ServiceType: s.serviceType}
	if s.tableNumber != nil {
		t := *s.tableNumber
		v.TableNumber = &t
	}
	return v
}

// BeginSubmit marks the session as submitting. It returns false when a
// submission is already in flight.
func (s *Session) BeginSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return false
	}
	s.submitting = true
	return true
}

func (s *Session) EndSubmit() {
	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()
}

func (s *Session) state() State {
	v := s.viewLocked()
	return State{ID: v.ID, TableNumber: v.TableNumber, ServiceType: v.ServiceType, UpdatedAt: time.Now().UTC()}
}

// Manager owns the live sessions of one process.
type Manager struct {
	store  Store
	logger *logger.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewManager(store Store, log *logger.Logger) *Manager {
	return &Manager{store: store, logger: log, sessions: make(map[string]*Session), now: time.Now}
}

// Len reports how many sessions are held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions not touched for idle. Their selections stay in the
// store, so a later request restores them with an empty cart. Sessions in
// the middle of a checkout are kept.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		if !s.lastSeen.Before(cutoff) {
			continue
		}
		s.mu.Lock()
		busy := s.submitting
		s.mu.Unlock()
		if busy {
			continue
		}
		delete(m.sessions, id)
		evicted++
	}
	return evicted
}

// RunSweeper evicts idle sessions until ctx is cancelled.
func (m *Manager) RunSweeper(ctx context.Context, idle time.Duration) {
	if idle <= 0 {
		idle = DefaultIdleTTL
	}
	interval := idle / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(idle); n > 0 {
				m.logger.Debug("sessions_evicted", "Evicted idle sessions", "", map[string]interface{}{
					"evicted":   n,
					"remaining": m.Len(),
				})
			}
		}
	}
}

// Start opens a new session, optionally pinned to a table from a QR link.
func (m *Manager) Start(ctx context.Context, table string) (*Session, error) {
	s := newSession(uuid.NewString())
	if t := strings.TrimSpace(table); t != "" {
		s.tableNumber = &t
	}

	if err := m.store.Save(ctx, s.state()); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	m.mu.Lock()
	s.lastSeen = m.now()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Debug("session_started", "Session started", "", map[string]interface{}{
		"session_id": s.ID,
		"table":      table,
	})
	return s, nil
}

// Get returns a live session, restoring its selections from the store when
// this process has not seen it yet. A restored session starts with an empty cart.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}

	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		s.lastSeen = m.now()
	}
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	state, err := m.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	s = newSession(state.ID)
	s.tableNumber = state.TableNumber
	if state.ServiceType != "" {
		s.serviceType = state.ServiceType
	}

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		s = existing
	} else {
		m.sessions[id] = s
	}
	s.lastSeen = m.now()
	m.mu.Unlock()
	return s, nil
}

// SetTable records the dine-in table. An empty table clears it.
func (m *Manager) SetTable(ctx context.Context, s *Session, table string) error {
	s.mu.Lock()
	if t := strings.TrimSpace(table); t != "" {
		s.tableNumber = &t
	} else {
		s.tableNumber = nil
	}
	state := s.state()
	s.mu.Unlock()
	return m.save(ctx, state)
}

func (m *Manager) ClearTable(ctx context.Context, s *Session) error {
	return m.SetTable(ctx, s, "")
}

// SetServiceType switches between dine-in, pickup and delivery. Leaving
// dine-in drops the table.
func (m *Manager) SetServiceType(ctx context.Context, s *Session, raw string) error {
	serviceType, err := models.ParseServiceType(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.serviceType = serviceType
	if serviceType != models.DineIn {
		s.tableNumber = nil
	}
	state := s.state()
	s.mu.Unlock()
	return m.save(ctx, state)
}

// Reset empties the cart and restores default selections after a successful order.
func (m *Manager) Reset(ctx context.Context, s *Session) error {
	s.mu.Lock()
	s.cart.Clear()
	s.serviceType = models.DineIn
	state := s.state()
	s.mu.Unlock()
	return m.save(ctx, state)
}

// End forgets the session here and in the store.
func (m *Manager) End(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (m *Manager) save(ctx context.Context, state State) error {
	if err := m.store.Save(ctx, state); err != nil {
		m.logger.Error("session_save_failed", "Failed to persist session", "", err, map[string]interface{}{
			"session_id": state.ID,
		})
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
