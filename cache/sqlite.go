package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/domino14/dilemma/game"
)

const DefaultSQLitePath = "cache.sqlite3"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pairings (
	player_a TEXT NOT NULL,
	player_b TEXT NOT NULL,
	score_a REAL NOT NULL,
	score_b REAL NOT NULL,
	stdev_a REAL NOT NULL,
	stdev_b REAL NOT NULL,
	history TEXT NOT NULL,
	report TEXT NOT NULL,
	fingerprint TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	PRIMARY KEY (player_a, player_b)
)`

// SQLite stores pairings in a sqlite database file.
type SQLite struct {
	path  string
	sqlDB *sql.DB
}

func NewSQLite(path string) *SQLite {
	return &SQLite{path: path}
}

func (s *SQLite) DefaultPath() string { return DefaultSQLitePath }

func (s *SQLite) open() error {
	if s.sqlDB != nil {
		return nil
	}
	path := s.path
	if path == "" {
		path = s.DefaultPath()
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("ping sqlite db: %w", err)
	}
	s.sqlDB = sqlDB
	return nil
}

func (s *SQLite) Setup(ctx context.Context) error {
	if err := s.open(); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key Key) (Entry, bool, error) {
	if s.sqlDB == nil {
		return Entry{}, false, errors.New("storage is not set up")
	}
	var e Entry
	var history string
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT score_a, score_b, stdev_a, stdev_b, history, report, fingerprint
FROM pairings
WHERE player_a = ? AND player_b = ?
`, key.A, key.B).Scan(&e.ScoreA, &e.ScoreB, &e.StdevA, &e.StdevB, &history, &e.Report, &e.Fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get pairing: %w", err)
	}
	e.History = &game.History{}
	if err := json.Unmarshal([]byte(history), e.History); err != nil {
		return Entry{}, false, fmt.Errorf("decode history for %s: %w", key, err)
	}
	return e, true, nil
}

func (s *SQLite) Insert(ctx context.Context, key Key, e Entry) error {
	if s.sqlDB == nil {
		return errors.New("storage is not set up")
	}
	if e.History == nil {
		return errors.New("entry has no history")
	}
	history, err := json.Marshal(e.History)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT OR IGNORE INTO pairings (
	player_a,
	player_b,
	score_a,
	score_b,
	stdev_a,
	stdev_b,
	history,
	report,
	fingerprint,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		key.A,
		key.B,
		e.ScoreA,
		e.ScoreB,
		e.StdevA,
		e.StdevB,
		string(history),
		e.Report,
		e.Fingerprint,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert pairing: %w", err)
	}
	return nil
}

// Close releases the SQLite connection.
func (s *SQLite) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	err := s.sqlDB.Close()
	s.sqlDB = nil
	return err
}
