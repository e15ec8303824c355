package store

import (
	"context"

	"github.com/ctfer-io/covalic/pkg/fs"
	"github.com/ctfer-io/covalic/pkg/model"
)

// DB gathers the collections covalic works with, along the assets
// holding files contents.
type DB struct {
	Backend Backend
	Assets  *fs.Assets

	Users       *Collection[model.User]
	Groups      *Collection[model.Group]
	Tokens      *Collection[model.Token]
	Folders     *Collection[model.Folder]
	Files       *Collection[model.File]
	Challenges  *Collection[model.Challenge]
	Phases      *Collection[model.Phase]
	Submissions *Collection[model.Submission]
	Jobs        *Collection[model.Job]
}

func New(backend Backend, assets *fs.Assets) *DB {
	return &DB{
		Backend: backend,
		Assets:  assets,

		Users:       NewCollection(backend, "user", "user", func(u *model.User) string { return u.ID }),
		Groups:      NewCollection(backend, "group", "group", func(g *model.Group) string { return g.ID }),
		Tokens:      NewCollection(backend, "token", "token", func(t *model.Token) string { return t.ID }),
		Folders:     NewCollection(backend, "folder", "folder", func(f *model.Folder) string { return f.ID }),
		Files:       NewCollection(backend, "file", "file", func(f *model.File) string { return f.ID }),
		Challenges:  NewCollection(backend, "challenge", "challenge", func(c *model.Challenge) string { return c.ID }),
		Phases:      NewCollection(backend, "challenge_phase", "phase", func(p *model.Phase) string { return p.ID }),
		Submissions: NewCollection(backend, "covalic_submission", "submission", func(s *model.Submission) string { return s.ID }),
		Jobs:        NewCollection(backend, "job", "job", func(j *model.Job) string { return j.ID }),
	}
}

// Open builds the DB of the given driver, with its assets stored under dir.
func Open(ctx context.Context, driver, dsn, dir string) (*DB, error) {
	backend, err := OpenBackend(ctx, driver, dsn, dir)
	if err != nil {
		return nil, err
	}
	assets, err := fs.NewAssets(dir)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return New(backend, assets), nil
}

func (db *DB) Close() error {
	return db.Backend.Close()
}
