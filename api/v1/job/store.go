package job

import (
	"net/http"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/pkg/jobs"
	"github.com/ctfer-io/covalic/pkg/store"
)

// Store holds the jobs and hands the scheduled ones to the scheduler.
type Store struct {
	db        *store.DB
	scheduler jobs.Scheduler
}

func NewStore(db *store.DB, scheduler jobs.Scheduler) *Store {
	return &Store{
		db:        db,
		scheduler: scheduler,
	}
}

func (store *Store) Resource() string {
	return "/job"
}

func (store *Store) Routes() []common.Route {
	return []common.Route{
		{Method: http.MethodGet, Pattern: "/", Handler: store.HandleQuery},
		{Method: http.MethodGet, Pattern: "/{id}", Handler: store.HandleRetrieve},
		{Method: http.MethodPut, Pattern: "/{id}", Handler: store.HandleUpdate},
	}
}
