package bytrofront

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SessionStore persists bootstrapped session configurations in Postgres so
// a fresh process can reuse a still-valid session instead of re-running the
// browser login.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates the store, preparing its table if needed.
func NewSessionStore(db *sql.DB) *SessionStore {
	query := `CREATE TABLE IF NOT EXISTS sessions (
    id SERIAL PRIMARY KEY,
    username VARCHAR(64) NOT NULL,
    domain VARCHAR(128) NOT NULL,
    config JSONB NOT NULL,
    create_at BIGINT NOT NULL,
    update_at BIGINT DEFAULT NULL,
    UNIQUE (username, domain));
CREATE INDEX IF NOT EXISTS idx_sessions_username ON sessions(username);`
	if _, err := db.Exec(query); err != nil {
		logrus.Warnf("failed to create sessions table: %v", err)
	}

	return &SessionStore{db: db}
}

// Save inserts a session configuration for a username/domain pair.
func (s *SessionStore) Save(username, domain string, cfg *Config) error {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encoding session config")
	}

	query := `
		INSERT INTO sessions (username, domain, config, create_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = s.db.Exec(query, username, domain, configJSON, time.Now().Unix())
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.Wrapf(ErrSessionExists, "%s@%s", username, domain)
		}
		return errors.Wrap(err, "saving session")
	}

	return nil
}

// Update replaces the stored configuration for a username/domain pair.
func (s *SessionStore) Update(username, domain string, cfg *Config) error {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encoding session config")
	}

	query := `
		UPDATE sessions
		SET config = $3, update_at = $4
		WHERE username = $1 AND domain = $2
	`
	result, err := s.db.Exec(query, username, domain, configJSON, time.Now().Unix())
	if err != nil {
		return errors.Wrap(err, "updating session")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if rowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// Load reads the stored configuration for a username/domain pair.
func (s *SessionStore) Load(username, domain string) (*Config, error) {
	query := `
		SELECT config
		FROM sessions
		WHERE username = $1 AND domain = $2
	`

	var configJSON []byte
	err := s.db.QueryRow(query, username, domain).Scan(&configJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "loading session")
	}

	var cfg Config
	if err := json.Unmarshal(configJSON, &cfg); err != nil {
		return nil, errors.Wrap(err, "decoding session config")
	}

	return &cfg, nil
}

// Delete removes the stored session for a username/domain pair.
func (s *SessionStore) Delete(username, domain string) error {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE username = $1 AND domain = $2`, username, domain)
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if rowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}
