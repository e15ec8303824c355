package submission

import (
	"net/http"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/api/v1/job"
	"github.com/ctfer-io/covalic/api/v1/token"
	"github.com/ctfer-io/covalic/pkg/store"
)

// Store holds the submissions of the challenge phases, and the access
// synchronization between a phase and its submissions folders.
//
// Among the submissions of a same phase, creator and approach, exactly
// one scored submission is flagged "latest". Scores are saved under
// the lock of this group.
type Store struct {
	db     *store.DB
	tokens *token.Store
	jobs   *job.Store
}

func NewStore(db *store.DB, tokens *token.Store, jobs *job.Store) *Store {
	return &Store{
		db:     db,
		tokens: tokens,
		jobs:   jobs,
	}
}

func (store *Store) Resource() string {
	return "/covalic_submission"
}

func (store *Store) Routes() []common.Route {
	return []common.Route{
		{Method: http.MethodPost, Pattern: "/", Handler: store.HandlePost},
		{Method: http.MethodGet, Pattern: "/", Handler: store.HandleQuery},
		{Method: http.MethodGet, Pattern: "/{id}", Handler: store.HandleRetrieve},
		{Method: http.MethodDelete, Pattern: "/{id}", Handler: store.HandleDelete},
		{Method: http.MethodPost, Pattern: "/{id}/score", Handler: store.HandlePostScore},
		{Method: http.MethodPost, Pattern: "/{id}/rescore", Handler: store.HandleRescore},
	}
}
