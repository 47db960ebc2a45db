package messagequeue

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Sink persists every pushed message's encoded bytes to a sidecar
// SQLite database, so a server restart can replay history to late
// subscribers instead of losing it, per spec.md §4.I's persistent-
// history requirement. Kept as a plain append-only table rather than
// the teacher's virtual-table cross-reference index (internal/graph's
// SQLiteGraph.refsDB) — a patch-set history has no token/bitmap shape
// to index, just an ordered blob log.
type Sink struct {
	db *sql.DB
}

// OpenSink opens (creating if absent) the history table at path.
func OpenSink(path string) (*Sink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open message history db %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode on message history db: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			seq     INTEGER PRIMARY KEY,
			payload BLOB NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history table: %w", err)
	}

	return &Sink{db: db}, nil
}

// Append records payload at position seq (the message's 0-based
// position in the history, so the first message is seq 0).
func (s *Sink) Append(seq int, payload []byte) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO history (seq, payload) VALUES (?, ?)", seq, payload)
	if err != nil {
		return fmt.Errorf("append message history record %d: %w", seq, err)
	}
	return nil
}

// LoadAll returns every persisted payload in seq order, for replaying
// history into a freshly constructed Queue on startup.
func (s *Sink) LoadAll() ([][]byte, error) {
	rows, err := s.db.Query("SELECT payload FROM history ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("load message history: %w", err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan message history row: %w", err)
		}
		out = append(out, payload)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}
