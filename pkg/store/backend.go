package store

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/ctfer-io/covalic/pkg/fs"
)

// ErrNotExist is returned by backends when a document is not stored.
var ErrNotExist = fs.ErrNotExist

// Backend is a raw document storage.
type Backend interface {
	Get(ctx context.Context, collection, id string) ([]byte, error)
	Put(ctx context.Context, collection, id string, doc []byte) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([][]byte, error)
	Ping(ctx context.Context) error
	Close() error
}

var _ Backend = (*fs.Documents)(nil)
var _ Backend = (*SQL)(nil)

// OpenBackend builds the backend of the given driver.
// For the "fs" driver, dsn defaults to dir. For SQLite, it defaults to
// a database file in dir.
func OpenBackend(ctx context.Context, driver, dsn, dir string) (Backend, error) {
	switch driver {
	case "", "fs":
		if dsn == "" {
			dsn = dir
		}
		return fs.NewDocuments(dsn)
	case "sqlite":
		if dsn == "" {
			dsn = "file:" + filepath.Join(dir, "covalic.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		}
		return OpenSQL(ctx, DialectSQLite, dsn)
	case "postgres":
		if dsn == "" {
			return nil, errors.New("postgres store requires a DSN")
		}
		return OpenSQL(ctx, DialectPostgres, dsn)
	}
	return nil, errors.Errorf("unsupported store driver %q", driver)
}
