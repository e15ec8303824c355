package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	errs "github.com/ctfer-io/covalic/pkg/errors"
)

// ErrNotExist is returned when a document is not stored.
var ErrNotExist = errors.New("document does not exist")

// Documents stores JSON documents on a filesystem.
type Documents struct {
	root string
}

func NewDocuments(root string) (*Documents, error) {
	if err := os.MkdirAll(filepath.Join(root, dbSubdir), os.ModePerm); err != nil {
		return nil, &errs.ErrInternal{Sub: err}
	}
	return &Documents{root: root}, nil
}

func (d *Documents) collectionDir(collection string) string {
	return filepath.Join(d.root, dbSubdir, Hash(collection))
}

func (d *Documents) path(collection, id string) string {
	return filepath.Join(d.collectionDir(collection), Hash(id)+infoExt)
}

func (d *Documents) Get(_ context.Context, collection, id string) ([]byte, error) {
	b, err := os.ReadFile(d.path(collection, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, &errs.ErrInternal{Sub: err}
	}
	return b, nil
}

func (d *Documents) Put(_ context.Context, collection, id string, doc []byte) error {
	dir := d.collectionDir(collection)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return &errs.ErrInternal{Sub: err}
	}
	return writeAtomic(d.path(collection, id), doc)
}

func (d *Documents) Delete(_ context.Context, collection, id string) error {
	if err := os.Remove(d.path(collection, id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotExist
		}
		return &errs.ErrInternal{Sub: err}
	}
	return nil
}

func (d *Documents) List(ctx context.Context, collection string) ([][]byte, error) {
	entries, err := os.ReadDir(d.collectionDir(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &errs.ErrInternal{Sub: err}
	}

	var merr error
	docs := make([][]byte, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Skip directories and in-flight temporary files
		if e.IsDir() || !strings.HasSuffix(e.Name(), infoExt) {
			continue
		}
		b, err := os.ReadFile(filepath.Join(d.collectionDir(collection), e.Name()))
		if err != nil {
			// Removed in between the listing and the read
			if os.IsNotExist(err) {
				continue
			}
			merr = multierr.Append(merr, err)
			continue
		}
		docs = append(docs, b)
	}
	if merr != nil {
		return nil, &errs.ErrInternal{Sub: merr}
	}
	return docs, nil
}

func (d *Documents) Ping(_ context.Context) error {
	_, err := os.Stat(filepath.Join(d.root, dbSubdir))
	return err
}

func (d *Documents) Close() error {
	return nil
}

func writeAtomic(fpath string, content []byte) error {
	f, err := os.CreateTemp(filepath.Dir(fpath), ".tmp-*")
	if err != nil {
		return &errs.ErrInternal{Sub: err}
	}
	tmp := f.Name()
	if _, err := f.Write(content); err != nil {
		fclose(f)
		return &errs.ErrInternal{Sub: multierr.Combine(err, os.Remove(tmp))}
	}
	if err := f.Close(); err != nil {
		return &errs.ErrInternal{Sub: multierr.Combine(err, os.Remove(tmp))}
	}
	if err := os.Rename(tmp, fpath); err != nil {
		return &errs.ErrInternal{Sub: multierr.Combine(err, os.Remove(tmp))}
	}
	return nil
}
