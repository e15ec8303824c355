package challenge

import (
	"net/http"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/pkg/store"
)

func NewStore(db *store.DB) *Store {
	return &Store{db: db}
}

// Store holds the challenges. Names are unique, regardless of case, which
// is enforced under the "challenges" lock.
// Deleting a challenge deletes its phases and their submissions.
type Store struct {
	db *store.DB
}

func (store *Store) Resource() string {
	return "/challenge"
}

func (store *Store) Routes() []common.Route {
	return []common.Route{
		{Method: http.MethodPost, Pattern: "/", Handler: store.HandleCreate},
		{Method: http.MethodGet, Pattern: "/", Handler: store.HandleQuery},
		{Method: http.MethodGet, Pattern: "/{id}", Handler: store.HandleRetrieve},
		{Method: http.MethodPut, Pattern: "/{id}", Handler: store.HandleUpdate},
		{Method: http.MethodPut, Pattern: "/{id}/access", Handler: store.HandleSetAccess},
		{Method: http.MethodDelete, Pattern: "/{id}", Handler: store.HandleDelete},
	}
}
