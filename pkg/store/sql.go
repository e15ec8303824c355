package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	errs "github.com/ctfer-io/covalic/pkg/errors"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    body TEXT NOT NULL,
    PRIMARY KEY (collection, id)
);
`

// SQL stores documents in a single table keyed by (collection, id).
type SQL struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQL connects to the database and ensures the schema exists.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQL, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if dialect == DialectSQLite {
		// SQLite serializes writers, avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "database ping")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &SQL{db: db, dialect: dialect}, nil
}

// bind returns the n-th (1-based) placeholder of the dialect.
func (s *SQL) bind(n int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQL) Get(ctx context.Context, collection, id string) ([]byte, error) {
	q := fmt.Sprintf(`SELECT body FROM documents WHERE collection = %s AND id = %s`, s.bind(1), s.bind(2))
	var body string
	if err := s.db.QueryRowContext(ctx, q, collection, id).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotExist
		}
		return nil, &errs.ErrInternal{Sub: err}
	}
	return []byte(body), nil
}

func (s *SQL) Put(ctx context.Context, collection, id string, doc []byte) error {
	q := fmt.Sprintf(`INSERT INTO documents (collection, id, body) VALUES (%s, %s, %s)
ON CONFLICT (collection, id) DO UPDATE SET body = excluded.body`, s.bind(1), s.bind(2), s.bind(3))
	if _, err := s.db.ExecContext(ctx, q, collection, id, string(doc)); err != nil {
		return &errs.ErrInternal{Sub: err}
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, collection, id string) error {
	q := fmt.Sprintf(`DELETE FROM documents WHERE collection = %s AND id = %s`, s.bind(1), s.bind(2))
	res, err := s.db.ExecContext(ctx, q, collection, id)
	if err != nil {
		return &errs.ErrInternal{Sub: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &errs.ErrInternal{Sub: err}
	}
	if n == 0 {
		return ErrNotExist
	}
	return nil
}

func (s *SQL) List(ctx context.Context, collection string) ([][]byte, error) {
	q := fmt.Sprintf(`SELECT body FROM documents WHERE collection = %s ORDER BY id`, s.bind(1))
	rows, err := s.db.QueryContext(ctx, q, collection)
	if err != nil {
		return nil, &errs.ErrInternal{Sub: err}
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, &errs.ErrInternal{Sub: err}
		}
		docs = append(docs, []byte(body))
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.ErrInternal{Sub: err}
	}
	return docs, nil
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQL) Close() error {
	return s.db.Close()
}
