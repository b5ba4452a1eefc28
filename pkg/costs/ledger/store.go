package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"helmsman-ai/relay/pkg/costs"
)

// schema is the ledger's table layout. Timestamps are stored as RFC 3339
// text so exports stay human-readable with the sqlite CLI.
const schema = `
CREATE TABLE IF NOT EXISTS cost_entries (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	provider          TEXT    NOT NULL,
	timestamp         TEXT    NOT NULL,
	cost              REAL    NOT NULL,
	tokens_used       INTEGER NOT NULL,
	prompt_tokens     INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	model             TEXT    NOT NULL,
	metadata          TEXT
);

CREATE INDEX IF NOT EXISTS idx_cost_entries_timestamp ON cost_entries(timestamp);
CREATE INDEX IF NOT EXISTS idx_cost_entries_provider  ON cost_entries(provider);
`

// Config contains the ledger's storage settings.
type Config struct {
	// Path is the database file path. Parent directories are created.
	Path string

	// BusyTimeout is how long to wait when the database is locked.
	BusyTimeout time.Duration
}

// Store is the SQLite-backed cost archive. It implements costs.Archiver.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the ledger database and initializes its schema.
func Open(config Config) (*Store, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: slog.Default().With("component", "costs.ledger"),
	}

	if err := s.initialize(config.BusyTimeout); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("cost ledger opened", "path", config.Path)
	return s, nil
}

func (s *Store) initialize(busyTimeout time.Duration) error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating ledger schema: %w", err)
	}
	return nil
}

// Append persists one cost entry.
func (s *Store) Append(entry costs.Entry) error {
	var metadata any
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("encoding entry metadata: %w", err)
		}
		metadata = string(raw)
	}

	_, err := s.db.Exec(
		`INSERT INTO cost_entries
			(provider, timestamp, cost, tokens_used, prompt_tokens, completion_tokens, model, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Provider,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		entry.Cost,
		entry.TokensUsed,
		entry.PromptTokens,
		entry.CompletionTokens,
		entry.Model,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("inserting cost entry: %w", err)
	}
	return nil
}

// Query returns entries at or after since, oldest first. An empty
// provider matches all providers.
func (s *Store) Query(since time.Time, provider string) ([]costs.Entry, error) {
	query := `SELECT provider, timestamp, cost, tokens_used, prompt_tokens, completion_tokens, model, metadata
		FROM cost_entries WHERE timestamp >= ?`
	args := []any{since.UTC().Format(time.RFC3339Nano)}

	if provider != "" {
		query += " AND provider = ?"
		args = append(args, provider)
	}
	query += " ORDER BY timestamp ASC, id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying cost entries: %w", err)
	}
	defer rows.Close()

	var entries []costs.Entry
	for rows.Next() {
		var (
			e        costs.Entry
			ts       string
			metadata sql.NullString
		)
		if err := rows.Scan(&e.Provider, &ts, &e.Cost, &e.TokensUsed,
			&e.PromptTokens, &e.CompletionTokens, &e.Model, &metadata); err != nil {
			return nil, fmt.Errorf("scanning cost entry: %w", err)
		}

		e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing entry timestamp %q: %w", ts, err)
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("decoding entry metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PruneBefore deletes entries older than the cutoff and returns how many
// were removed.
func (s *Store) PruneBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(
		"DELETE FROM cost_entries WHERE timestamp < ?",
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning cost entries: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored entries.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM cost_entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cost entries: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
