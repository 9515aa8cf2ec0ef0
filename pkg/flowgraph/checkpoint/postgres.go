package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore persists checkpoints to PostgreSQL.
// It suits deployments where several processes share sessions.
type PostgresStore struct {
	db     *sqlx.DB
	mu     sync.RWMutex
	closed bool
}

// postgresRow maps a List query row.
type postgresRow struct {
	Sequence  int       `db:"sequence"`
	CreatedAt time.Time `db:"created_at"`
	Size      int64     `db:"size"`
}

// NewPostgresStore connects to dsn and creates the table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS session_checkpoints (
			session_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			data BYTEA NOT NULL,
			PRIMARY KEY (session_id, sequence)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, sessionID string, data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_checkpoints (session_id, sequence, created_at, data)
		SELECT $1, COALESCE(MAX(sequence), 0) + 1, $2, $3
		FROM session_checkpoints WHERE session_id = $1
	`, sessionID, time.Now().UTC(), data)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var data []byte
	err := s.db.GetContext(ctx, &data, `
		SELECT data FROM session_checkpoints
		WHERE session_id = $1
		ORDER BY sequence DESC
		LIMIT 1
	`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return data, nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, sessionID string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var rows []postgresRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT sequence, created_at, octet_length(data) AS size
		FROM session_checkpoints
		WHERE session_id = $1
		ORDER BY sequence
	`, sessionID); err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	infos := make([]Info, 0, len(rows))
	for _, r := range rows {
		infos = append(infos, Info{
			SessionID: sessionID,
			Sequence:  r.Sequence,
			Timestamp: r.CreatedAt.UTC(),
			Size:      r.Size,
		})
	}
	return infos, nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM session_checkpoints WHERE session_id = $1
	`, sessionID); err != nil {
		return fmt.Errorf("delete session checkpoints: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
