package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/w-h-a/insight/store"
	_ "modernc.org/sqlite"
)

// sqliteStore persists one partition in a single-file database. Embeddings
// are stored in the same textual format as the csv provider; ranking is an
// in-process scan over the table.
type sqliteStore struct {
	options store.Options
	conn    *sql.DB
	model   string
}

func (s *sqliteStore) Add(ctx context.Context, chunks ...store.Chunk) error {
	// read before the transaction takes the pool's only connection
	dim, err := s.dimension(ctx)
	if err != nil {
		return err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ch := range chunks {
		if dim > 0 && len(ch.Embedding) != dim {
			return fmt.Errorf("chunk %s: embedding length %d, want %d", ch.Id, len(ch.Embedding), dim)
		}

		if dim == 0 {
			dim = len(ch.Embedding)
		}

		vec := store.Normalize(ch.Embedding)

		if _, err := tx.ExecContext(
			ctx,
			`INSERT OR REPLACE INTO chunks (id, content, embedding) VALUES (?, ?, ?)`,
			ch.Id,
			ch.Content,
			store.FormatVector(vec),
		); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO manifest (key, model, dimension) VALUES (1, ?, ?)`,
		s.model,
		dim,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *sqliteStore) TopK(ctx context.Context, vector []float32, k int) ([]store.Result, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, content, embedding FROM chunks ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []store.Chunk
	row := 0

	for rows.Next() {
		var ch store.Chunk
		var embeddingText string

		if err := rows.Scan(&ch.Id, &ch.Content, &embeddingText); err != nil {
			return nil, err
		}

		vec, err := store.ParseVector(embeddingText)
		if err != nil {
			return nil, &store.MalformedRecordError{Row: row, Err: err}
		}

		ch.Embedding = vec
		chunks = append(chunks, ch)
		row++
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(chunks) == 0 {
		return nil, store.ErrEmptyStore
	}

	return store.Rank(chunks, vector, k), nil
}

func (s *sqliteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *sqliteStore) Model(ctx context.Context) (string, error) {
	var model string
	err := s.conn.QueryRowContext(ctx, `SELECT model FROM manifest WHERE key = 1`).Scan(&model)
	if err == sql.ErrNoRows {
		return s.model, nil
	}
	if err != nil {
		return "", err
	}
	return model, nil
}

func (s *sqliteStore) Close() error {
	return s.conn.Close()
}

func (s *sqliteStore) dimension(ctx context.Context) (int, error) {
	var dim int
	err := s.conn.QueryRowContext(ctx, `SELECT dimension FROM manifest WHERE key = 1`).Scan(&dim)
	if err == sql.ErrNoRows {
		return s.options.Dimension, nil
	}
	if err != nil {
		return 0, err
	}
	return dim, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id        TEXT PRIMARY KEY,
		content   TEXT NOT NULL,
		embedding TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS manifest (
		key       INTEGER PRIMARY KEY CHECK (key = 1),
		model     TEXT NOT NULL,
		dimension INTEGER NOT NULL
	);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return err
	}

	var model string
	err := s.conn.QueryRowContext(ctx, `SELECT model FROM manifest WHERE key = 1`).Scan(&model)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	if len(s.model) > 0 && len(model) > 0 && model != s.model {
		return fmt.Errorf("%w: have %s, want %s", store.ErrModelMismatch, model, s.model)
	}

	return nil
}

type sqliteOpener struct {
	options store.Options
}

func (o *sqliteOpener) Open(ctx context.Context, id string) (store.Store, error) {
	if err := store.ValidateId(id); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(o.options.Location, 0o755); err != nil {
		return nil, err
	}

	path := filepath.Join(o.options.Location, id+".db")

	conn, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	s := &sqliteStore{
		options: o.options,
		conn:    conn,
		model:   o.options.Model,
	}

	if err := s.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

// NewOpener returns an Opener that keeps one database file per partition
// under the namespace root given by WithLocation.
func NewOpener(opts ...store.Option) store.Opener {
	options := store.NewOptions(opts...)

	return &sqliteOpener{
		options: options,
	}
}
