package group

import (
	"net/http"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/pkg/store"
)

type Store struct {
	db *store.DB
}

func NewStore(db *store.DB) *Store {
	return &Store{db: db}
}

func (store *Store) Resource() string {
	return "/group"
}

func (store *Store) Routes() []common.Route {
	return []common.Route{
		{Method: http.MethodPost, Pattern: "/", Handler: store.HandleCreate},
		{Method: http.MethodGet, Pattern: "/{id}", Handler: store.HandleGet},
		{Method: http.MethodPost, Pattern: "/{id}/member", Handler: store.HandleAddMember},
	}
}
