package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kira2406/Veritas/internal/core"
)

var _ VectorIndex = (*SQLiteIndex)(nil)

// SQLiteIndex is an embedded VectorIndex backed by SQLite with brute-force
// cosine similarity. It serves single-node deployments and tests; the
// Postgres backend is the production choice once the collection outgrows a
// full scan.
type SQLiteIndex struct {
	db  *sql.DB
	dim int
}

// NewSQLiteIndex wraps db and ensures the collection table exists. dim is the
// fixed embedding dimensionality every stored vector must have.
func NewSQLiteIndex(db *sql.DB, dim int) (*SQLiteIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS job_descriptions (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			document   TEXT NOT NULL,
			embedding  BLOB NOT NULL,
			metadata   TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("creating job_descriptions table: %w", err)
	}
	return &SQLiteIndex{db: db, dim: dim}, nil
}

func (s *SQLiteIndex) Close() error { return s.db.Close() }

// Add inserts an entry. The existence check and the insert share one
// transaction so concurrent adds with distinct ids cannot lose updates and a
// colliding id is always reported as core.ErrDuplicateID.
func (s *SQLiteIndex) Add(ctx context.Context, e Entry) error {
	if len(e.Embedding) != s.dim {
		return fmt.Errorf("%w: got %d, want %d", core.ErrDimensionMismatch, len(e.Embedding), s.dim)
	}

	metaJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning add transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM job_descriptions WHERE id = ?)`, e.ID).Scan(&exists); err != nil {
		return fmt.Errorf("checking id: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", core.ErrDuplicateID, e.ID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO job_descriptions (id, document, embedding, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Document, encodeFloat32s(e.Embedding), string(metaJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting entry %s: %w", e.ID, err)
	}
	return tx.Commit()
}

func (s *SQLiteIndex) Get(ctx context.Context, id string) (*Entry, error) {
	var (
		e        Entry
		blob     []byte
		metaJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document, embedding, metadata FROM job_descriptions WHERE id = ?`, id).
		Scan(&e.ID, &e.Document, &blob, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching entry %s: %w", id, err)
	}

	if e.Embedding, err = decodeFloat32s(blob); err != nil {
		return nil, fmt.Errorf("decoding embedding for %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata for %s: %w", id, err)
	}
	return &e, nil
}

type scoredEntry struct {
	Entry
	seq   int64
	score float32
}

// Query scans all entries, applies the metadata filter, and returns the top
// entries by cosine similarity; equal scores keep insertion order.
func (s *SQLiteIndex) Query(ctx context.Context, embedding []float32, f Filter, limit int) ([]Entry, error) {
	if len(embedding) != s.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", core.ErrDimensionMismatch, len(embedding), s.dim)
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, document, embedding, metadata FROM job_descriptions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var matches []scoredEntry
	for rows.Next() {
		var (
			se       scoredEntry
			blob     []byte
			metaJSON string
		)
		if err := rows.Scan(&se.seq, &se.ID, &se.Document, &blob, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &se.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", se.ID, err)
		}
		if !f.Match(se.Metadata) {
			continue
		}
		if se.Embedding, err = decodeFloat32s(blob); err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", se.ID, err)
		}
		se.score = cosineSimilarity(embedding, se.Embedding)
		matches = append(matches, se)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].seq < matches[j].seq
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]Entry, len(matches))
	for i, m := range matches {
		out[i] = m.Entry
	}
	return out, nil
}

func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_descriptions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}
