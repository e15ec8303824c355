package folder

import (
	"net/http"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/pkg/store"
)

// Store handles folders and the files they contain. Files contents are
// kept in the assets store, their metadata in the documents one.
type Store struct {
	db *store.DB
}

func NewStore(db *store.DB) *Store {
	return &Store{db: db}
}

func (store *Store) Resource() string {
	return "/folder"
}

func (store *Store) Routes() []common.Route {
	return []common.Route{
		{Method: http.MethodPost, Pattern: "/", Handler: store.HandleCreate},
		{Method: http.MethodGet, Pattern: "/{id}", Handler: store.HandleGet},
		{Method: http.MethodGet, Pattern: "/{id}/file", Handler: store.HandleListFiles},
		{Method: http.MethodPut, Pattern: "/{id}/file", Handler: store.HandleUpload},
		{Method: http.MethodGet, Pattern: "/{id}/download", Handler: store.HandleDownload},
	}
}

// Files exposes the routes of single files.
func (store *Store) Files() common.Routable {
	return files{store}
}

type files struct {
	store *Store
}

func (f files) Resource() string {
	return "/file"
}

func (f files) Routes() []common.Route {
	return []common.Route{
		{Method: http.MethodGet, Pattern: "/{id}/download", Handler: f.store.HandleDownloadFile},
	}
}
