package user

import (
	"net/http"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/api/v1/token"
	"github.com/ctfer-io/covalic/pkg/store"
)

type Store struct {
	db     *store.DB
	tokens *token.Store
}

func NewStore(db *store.DB, tokens *token.Store) *Store {
	return &Store{
		db:     db,
		tokens: tokens,
	}
}

func (store *Store) Resource() string {
	return "/user"
}

func (store *Store) Routes() []common.Route {
	return []common.Route{
		{Method: http.MethodPost, Pattern: "/", Handler: store.HandleRegister},
		{Method: http.MethodPost, Pattern: "/authentication", Handler: store.HandleLogin},
		{Method: http.MethodGet, Pattern: "/me", Handler: store.HandleMe},
		{Method: http.MethodGet, Pattern: "/{id}", Handler: store.HandleGet},
	}
}
