package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	errs "github.com/ctfer-io/covalic/pkg/errors"
)

// Assets stores files contents on a filesystem.
type Assets struct {
	root string
}

func NewAssets(root string) (*Assets, error) {
	dir := filepath.Join(root, assetSubdir)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, &errs.ErrInternal{Sub: err}
	}
	return &Assets{root: dir}, nil
}

func (a *Assets) path(id string) string {
	return filepath.Join(a.root, Hash(id))
}

// Write stores the content read from r under the file id, and returns
// its size and SHA-256 checksum.
func (a *Assets) Write(id string, r io.Reader) (size int64, sum string, err error) {
	f, err := os.CreateTemp(a.root, ".tmp-*")
	if err != nil {
		return 0, "", &errs.ErrInternal{Sub: err}
	}
	tmp := f.Name()

	h := sha256.New()
	size, err = io.Copy(io.MultiWriter(f, h), r)
	if err != nil {
		fclose(f)
		return 0, "", multierr.Combine(err, os.Remove(tmp))
	}
	if err := f.Close(); err != nil {
		return 0, "", &errs.ErrInternal{Sub: multierr.Combine(err, os.Remove(tmp))}
	}
	if err := os.Rename(tmp, a.path(id)); err != nil {
		return 0, "", &errs.ErrInternal{Sub: multierr.Combine(err, os.Remove(tmp))}
	}
	return size, hex.EncodeToString(h.Sum(nil)), nil
}

// Open returns a reader on the file content. Callers must close it.
func (a *Assets) Open(id string) (io.ReadCloser, error) {
	f, err := os.Open(a.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errs.ErrNotFound{Kind: "file", ID: id}
		}
		return nil, &errs.ErrInternal{Sub: err}
	}
	return f, nil
}

func (a *Assets) Delete(id string) error {
	if err := os.Remove(a.path(id)); err != nil && !os.IsNotExist(err) {
		return &errs.ErrInternal{Sub: err}
	}
	return nil
}
