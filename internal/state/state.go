// Package state provides generic versioned state storage with JSON
// payloads, keyed by (kind, id). The engine uses it to carry the last
// published verdicts and light schedule across restarts.
package state

import (
	"database/sql"
	"sync"
	"time"
)

// Store provides versioned state storage backed by the engine_state
// table.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore creates a new generic state store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get retrieves payload and version for a resource.
// Returns empty payload and version 0 if not found.
func (s *Store) Get(kind, id string) (payload []byte, version int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payloadStr string
	err = s.db.QueryRow(`
		SELECT payload, version FROM engine_state
		WHERE kind = ? AND id = ?
	`, kind, id).Scan(&payloadStr, &version)

	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	return []byte(payloadStr), version, nil
}

// Set stores payload, incrementing version automatically.
func (s *Store) Set(kind, id string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Unix()

	_, err := s.db.Exec(`
		INSERT INTO engine_state (kind, id, payload, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			payload = excluded.payload,
			version = version + 1,
			updated_at = excluded.updated_at
	`, kind, id, string(payload), now)

	return err
}

// GetAll retrieves all payloads for a kind, keyed by id.
func (s *Store) GetAll(kind string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, payload FROM engine_state WHERE kind = ?
	`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		out[id] = []byte(payload)
	}
	return out, rows.Err()
}

// Delete removes the state for an ID.
func (s *Store) Delete(kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM engine_state WHERE kind = ? AND id = ?`, kind, id)
	return err
}

// Clear removes all state for a kind.
func (s *Store) Clear(kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM engine_state WHERE kind = ?`, kind)
	return err
}
