package folder

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/access"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

// ListFiles returns the files of the folder, sorted by name.
func (store *Store) ListFiles(ctx context.Context, folderID string) ([]*model.File, error) {
	files, err := store.db.Files.Find(ctx, func(f *model.File) bool {
		return f.FolderID == folderID
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// Upload stores the content as a file of the folder. A file of the same
// name is replaced.
func (store *Store) Upload(ctx context.Context, folder *model.Folder, name string, content io.Reader, creator *model.User) (*model.File, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, &errs.ErrValidation{Message: "Invalid file name.", Field: "name"}
	}

	f := &model.File{
		ID:        uuid.NewString(),
		FolderID:  folder.ID,
		Name:      name,
		MimeType:  mimeType(name),
		CreatorID: creator.ID,
		Created:   time.Now().UTC(),
	}
	size, sum, err := store.db.Assets.Write(f.ID, content)
	if err != nil {
		return nil, err
	}
	f.Size, f.SHA256 = size, sum

	previous, err := store.db.Files.Find(ctx, func(o *model.File) bool {
		return o.FolderID == folder.ID && o.Name == name
	})
	if err != nil {
		return nil, err
	}
	if err := store.db.Files.Save(ctx, f); err != nil {
		return nil, err
	}
	for _, o := range previous {
		store.removeFile(ctx, o)
	}

	global.Log().Info(ctx, "file uploaded",
		zap.String("folder_id", folder.ID),
		zap.String("name", name),
		zap.Int64("size", size),
	)
	return f, nil
}

func (store *Store) removeFile(ctx context.Context, f *model.File) {
	if err := store.db.Files.Remove(ctx, f.ID); err != nil {
		global.Log().Error(ctx, "removing file", zap.Error(err), zap.String("file_id", f.ID))
	}
	if err := store.db.Assets.Delete(f.ID); err != nil {
		global.Log().Error(ctx, "removing file content", zap.Error(err), zap.String("file_id", f.ID))
	}
}

func mimeType(name string) string {
	if mt := mime.TypeByExtension(filepath.Ext(name)); mt != "" {
		return mt
	}
	return "application/octet-stream"
}

func (store *Store) HandleListFiles(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	f, err := common.Load(ctx, store.db.Folders, chi.URLParam(r, "id"), common.CurrentUser(ctx), access.Read)
	if err != nil {
		return err
	}
	files, err := store.ListFiles(ctx, f.ID)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, files)
}

func (store *Store) HandleUpload(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user, err := common.RequireUser(ctx)
	if err != nil {
		return err
	}
	f, err := common.Load(ctx, store.db.Folders, chi.URLParam(r, "id"), user, access.Write)
	if err != nil {
		return err
	}
	// The body is the file content, whatever its content type
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		return errs.MissingParam("name")
	}

	file, err := store.Upload(ctx, f, name, r.Body, user)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, file)
}

func (store *Store) HandleDownloadFile(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	file, err := store.db.Files.Load(ctx, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	if _, err := common.Load(ctx, store.db.Folders, file.FolderID, common.CurrentUser(ctx), access.Read); err != nil {
		return err
	}

	rc, err := store.db.Assets.Open(file.ID)
	if err != nil {
		return err
	}
	defer rc.Close()

	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	_, err = io.Copy(w, rc)
	return err
}
