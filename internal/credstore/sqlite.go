package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/blacktop/postkit/internal/publish"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	user_id      TEXT NOT NULL,
	platform     TEXT NOT NULL,
	access_token TEXT NOT NULL,
	secondary_id TEXT NOT NULL DEFAULT '',
	server       TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, platform)
)`

// SQLite persists credentials in a local database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (and migrates) the database at dsn.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	// a single connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate credential store: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Lookup(ctx context.Context, userID string, platform publish.Platform) (publish.Credentials, bool, error) {
	var token, secondary, server string
	err := s.db.QueryRowContext(ctx,
		`SELECT access_token, secondary_id, server FROM credentials WHERE user_id = ? AND platform = ?`,
		userID, string(platform),
	).Scan(&token, &secondary, &server)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup %s credentials: %w", platform, err)
	}
	return publish.NewCredentials(platform, token, secondary, server), true, nil
}

func (s *SQLite) Save(ctx context.Context, userID string, creds publish.Credentials) error {
	token, secondary, server := publish.Flatten(creds)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO credentials (user_id, platform, access_token, secondary_id, server, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, platform) DO UPDATE SET
	access_token = excluded.access_token,
	secondary_id = excluded.secondary_id,
	server       = excluded.server,
	updated_at   = excluded.updated_at`,
		userID, string(creds.Platform()), token, secondary, server, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save %s credentials: %w", creds.Platform(), err)
	}
	return nil
}

// Delete forgets the credentials for one platform.
func (s *SQLite) Delete(ctx context.Context, userID string, platform publish.Platform) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = ? AND platform = ?`, userID, string(platform)); err != nil {
		return fmt.Errorf("delete %s credentials: %w", platform, err)
	}
	return nil
}
