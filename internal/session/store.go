package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cafe-pos/internal/database"
	"cafe-pos/internal/models"
)

// MemoryStore keeps states in a map. Used by tests and single-process setups.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (s *MemoryStore) Load(_ context.Context, id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		return State{}, ErrSessionNotFound
	}
	return st, nil
}

func (s *MemoryStore) Save(_ context.Context, state State) error {
	s.mu.Lock()
	s.states[state.ID] = state
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.states, id)
	s.mu.Unlock()
	return nil
}

// PostgresStore persists states in the sessions table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Load(ctx context.Context, id string) (State, error) {
	var (
		st          State
		serviceType string
	)
	err := s.pool.QueryRow(ctx, database.GetSessionSQL, id).Scan(&st.ID, &st.TableNumber, &serviceType, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return State{}, ErrSessionNotFound
		}
		return State{}, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	st.ServiceType = models.ServiceType(serviceType)
	return st, nil
}

func (s *PostgresStore) Save(ctx context.Context, state State) error {
	_, err := s.pool.Exec(ctx, database.UpsertSessionSQL, state.ID, state.TableNumber, string(state.ServiceType), state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", state.ID, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, database.DeleteSessionSQL, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}
