package folder

import (
	"archive/zip"
	"context"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/multierr"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/pkg/access"
	"github.com/ctfer-io/covalic/pkg/model"
)

// WriteZip writes the archive of the folder files into w.
func (store *Store) WriteZip(ctx context.Context, folder *model.Folder, w io.Writer) (err error) {
	files, err := store.ListFiles(ctx, folder.ID)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	defer func() {
		err = multierr.Append(err, zw.Close())
	}()

	for _, f := range files {
		if err := store.copyTo(zw, f); err != nil {
			return err
		}
	}
	return nil
}

func (store *Store) copyTo(zw *zip.Writer, f *model.File) error {
	rc, err := store.db.Assets.Open(f.ID)
	if err != nil {
		return err
	}
	defer rc.Close()

	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     f.Name,
		Method:   zip.Deflate,
		Modified: f.Created,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, rc)
	return err
}

func (store *Store) HandleDownload(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	f, err := common.Load(ctx, store.db.Folders, chi.URLParam(r, "id"), common.CurrentUser(ctx), access.Read)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name + ".zip"}))
	return store.WriteZip(ctx, f, w)
}
