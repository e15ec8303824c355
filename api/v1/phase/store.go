package phase

import (
	"net/http"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/api/v1/folder"
	"github.com/ctfer-io/covalic/api/v1/group"
	"github.com/ctfer-io/covalic/api/v1/submission"
	"github.com/ctfer-io/covalic/pkg/store"
)

// Store holds the challenges phases. Every phase save goes through the
// submissions store, which keeps the submissions folders readable by
// the phase admins.
type Store struct {
	db      *store.DB
	subs    *submission.Store
	groups  *group.Store
	folders *folder.Store
}

func NewStore(db *store.DB, subs *submission.Store, groups *group.Store, folders *folder.Store) *Store {
	return &Store{
		db:      db,
		subs:    subs,
		groups:  groups,
		folders: folders,
	}
}

func (store *Store) Resource() string {
	return "/challenge_phase"
}

func (store *Store) Routes() []common.Route {
	return []common.Route{
		{Method: http.MethodPost, Pattern: "/", Handler: store.HandleCreate},
		{Method: http.MethodGet, Pattern: "/", Handler: store.HandleQuery},
		{Method: http.MethodGet, Pattern: "/{id}", Handler: store.HandleRetrieve},
		{Method: http.MethodPut, Pattern: "/{id}", Handler: store.HandleUpdate},
		{Method: http.MethodPut, Pattern: "/{id}/access", Handler: store.HandleSetAccess},
		{Method: http.MethodPost, Pattern: "/{id}/participant", Handler: store.HandleJoin},
		{Method: http.MethodGet, Pattern: "/{id}/leaderboard", Handler: store.HandleLeaderboard},
	}
}
