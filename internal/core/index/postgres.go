package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/kira2406/Veritas/internal/core"
)

var _ VectorIndex = (*PostgresIndex)(nil)

// PostgresIndex is the production VectorIndex backed by Postgres with the
// pgvector extension. Similarity queries are ordered by the <-> distance
// operator; metadata filters run against a JSONB column.
type PostgresIndex struct {
	db  *sql.DB
	dim int
}

func NewPostgresIndex(ctx context.Context, databaseURL string, dim int) (*PostgresIndex, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is empty")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, dim); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &PostgresIndex{db: db, dim: dim}, nil
}

func (p *PostgresIndex) Close() error { return p.db.Close() }

func (p *PostgresIndex) Add(ctx context.Context, e Entry) error {
	if len(e.Embedding) != p.dim {
		return fmt.Errorf("%w: got %d, want %d", core.ErrDimensionMismatch, len(e.Embedding), p.dim)
	}

	metaJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	const q = `
		INSERT INTO job_descriptions (id, document, embedding, metadata)
		VALUES ($1, $2, $3, $4)
	`
	_, err = p.db.ExecContext(ctx, q, e.ID, e.Document, pgvector.NewVector(e.Embedding), string(metaJSON))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", core.ErrDuplicateID, e.ID)
		}
		return fmt.Errorf("inserting entry %s: %w", e.ID, err)
	}
	return nil
}

func (p *PostgresIndex) Get(ctx context.Context, id string) (*Entry, error) {
	const q = `
		SELECT id, document, embedding, metadata
		FROM job_descriptions WHERE id = $1
	`
	var (
		e        Entry
		emb      pgvector.Vector
		metaJSON string
	)
	err := p.db.QueryRowContext(ctx, q, id).Scan(&e.ID, &e.Document, &emb, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching entry %s: %w", id, err)
	}

	e.Embedding = emb.Slice()
	if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata for %s: %w", id, err)
	}
	return &e, nil
}

func (p *PostgresIndex) Query(ctx context.Context, embedding []float32, f Filter, limit int) ([]Entry, error) {
	if len(embedding) != p.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", core.ErrDimensionMismatch, len(embedding), p.dim)
	}
	if limit <= 0 {
		limit = 10
	}

	var (
		where []string
		args  = []any{pgvector.NewVector(embedding)}
	)
	for k, v := range f.Equals {
		args = append(args, k, v)
		where = append(where, fmt.Sprintf("metadata->>$%d = $%d", len(args)-1, len(args)))
	}
	for k, v := range f.Contains {
		args = append(args, k, v)
		where = append(where, fmt.Sprintf("position($%d in metadata->>$%d) > 0", len(args), len(args)-1))
	}

	q := `SELECT id, document, embedding, metadata FROM job_descriptions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	q += " ORDER BY embedding <-> $1, seq ASC LIMIT $" + strconv.Itoa(len(args))

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			emb      pgvector.Vector
			metaJSON string
		)
		if err := rows.Scan(&e.ID, &e.Document, &emb, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.Embedding = emb.Slice()
		if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *PostgresIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_descriptions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}
