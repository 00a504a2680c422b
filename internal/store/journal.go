// Package store persists the learned lexicon: categories inferred for unknown
// words, and whether the user accepted or rejected them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"hearsay/internal/logging"
)

// Status of a journal entry.
type Status string

const (
	Provisional Status = "provisional"
	Accepted    Status = "accepted"
	Rejected    Status = "rejected"
)

// ParseStatus accepts a status name; empty means any.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(s)); st {
	case "", Provisional, Accepted, Rejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown journal status %q", s)
}

// ErrNotFound is returned when no entry matches a word.
var ErrNotFound = errors.New("no journal entry for word")

// Entry is one inferred category.
type Entry struct {
	ID        int64
	Utterance string // envelope id of the utterance that taught it
	Word      string
	Tag       string
	Base      string
	Pattern   string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e Entry) String() string {
	return fmt.Sprintf("%-12s %-6s base=%s %s (%s)", e.Word, e.Tag, e.Base, e.Status, e.Pattern)
}

// Journal is the SQLite-backed learned-lexicon store.
type Journal struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// OpenJournal creates or opens the journal at dbPath.
func OpenJournal(dbPath string) (*Journal, error) {
	timer := logging.StartTimer(logging.CategoryStore, "OpenJournal")
	defer timer.Stop()

	if dbPath == "" {
		return nil, fmt.Errorf("database path required")
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.StoreError("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		logging.StoreError("Failed to ping journal database: %v", err)
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}

	j := &Journal{db: db, dbPath: dbPath}
	if err := j.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("Journal opened at %s", dbPath)
	return j, nil
}

func (j *Journal) initializeSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS learned_words (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		utterance TEXT NOT NULL,
		word TEXT NOT NULL,
		tag TEXT NOT NULL,
		base TEXT NOT NULL,
		pattern TEXT,
		status TEXT NOT NULL DEFAULT 'provisional',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(word, tag)
	);
	CREATE INDEX IF NOT EXISTS idx_learned_words_status ON learned_words(status);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create learned_words table: %w", err)
	}
	return nil
}

// Path returns the database file.
func (j *Journal) Path() string { return j.dbPath }

// Record stores a provisional guess. A (word, tag) pair already in the journal
// keeps its status unless it was rejected, in which case the guess is taken
// again as provisional. The existing id is returned.
func (j *Journal) Record(ctx context.Context, e Entry) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO learned_words (utterance, word, tag, base, pattern, status) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(word, tag) DO UPDATE SET
			utterance = excluded.utterance,
			base = excluded.base,
			pattern = excluded.pattern,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
		WHERE learned_words.status = ?`,
		e.Utterance, e.Word, e.Tag, e.Base, e.Pattern, string(Provisional), string(Rejected))
	if err != nil {
		return 0, fmt.Errorf("failed to record %s: %w", e.Word, err)
	}

	var id int64
	err = j.db.QueryRowContext(ctx, `SELECT id FROM learned_words WHERE word = ? AND tag = ?`, e.Word, e.Tag).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read back %s: %w", e.Word, err)
	}
	logging.Get(logging.CategoryStore).Debug("recorded %s %s as %d", e.Word, e.Tag, id)
	return id, nil
}

// Accept marks every entry for word accepted.
func (j *Journal) Accept(ctx context.Context, word string) ([]Entry, error) {
	return j.setStatus(ctx, word, Accepted)
}

// Reject marks every entry for word rejected.
func (j *Journal) Reject(ctx context.Context, word string) ([]Entry, error) {
	return j.setStatus(ctx, word, Rejected)
}

func (j *Journal) setStatus(ctx context.Context, word string, st Status) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	res, err := j.db.ExecContext(ctx,
		`UPDATE learned_words SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE word = ?`, string(st), word)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", word, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, word)
	}
	logging.Store("%s -> %s", word, st)
	return j.query(ctx, `WHERE word = ? ORDER BY id`, word)
}

// List returns entries with status st (all entries when st is empty), oldest first.
func (j *Journal) List(ctx context.Context, st Status) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if st == "" {
		return j.query(ctx, `ORDER BY id`)
	}
	return j.query(ctx, `WHERE status = ? ORDER BY id`, string(st))
}

func (j *Journal) query(ctx context.Context, where string, args ...interface{}) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, utterance, word, tag, base, COALESCE(pattern, ''), status, created_at, updated_at FROM learned_words `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var st string
		if err := rows.Scan(&e.ID, &e.Utterance, &e.Word, &e.Tag, &e.Base, &e.Pattern, &st, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		e.Status = Status(st)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.db.Close()
}
