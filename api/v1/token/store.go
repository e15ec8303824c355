package token

import (
	"net/http"
	"time"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/pkg/store"
)

// Store issues the tokens users authenticate with. Tokens are signed
// with secret and live ttl unless told otherwise.
type Store struct {
	db     *store.DB
	secret string
	ttl    time.Duration
}

func NewStore(db *store.DB, secret string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 180 * 24 * time.Hour
	}
	return &Store{
		db:     db,
		secret: secret,
		ttl:    ttl,
	}
}

func (store *Store) Resource() string {
	return "/token"
}

func (store *Store) Routes() []common.Route {
	return []common.Route{
		{Method: http.MethodDelete, Pattern: "/expired", Handler: store.HandlePurgeExpired},
	}
}
