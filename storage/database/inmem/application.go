package inmemdb

import (
	"context"
	"sort"

	"github.com/vitccacm/recruitment-portal/core"
	"github.com/vitccacm/recruitment-portal/core/application"
)

type applicationRepository struct {
	db *DB
}

func NewApplicationRepository(db *DB) application.Repository {
	return &applicationRepository{db: db}
}

func (repo *applicationRepository) query() []application.Application {
	apps := make([]application.Application, 0, len(repo.db.applications))
	for _, a := range repo.db.applications {
		apps = append(apps, *a)
	}
	return apps
}

func (repo *applicationRepository) CreateApplication(_ context.Context, app application.Application) (application.Application, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.applications[app.ID] = &app
	return app, nil
}

func (repo *applicationRepository) GetApplication(_ context.Context, filter application.GetFilter) (application.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if app, ok := repo.db.applications[filter.ID]; ok {
			return *app, nil
		}
		return application.Application{}, application.ErrNotFound
	}
	for _, app := range repo.query() {
		if app.StudentID == filter.StudentID && app.DepartmentID == filter.DepartmentID {
			return app, nil
		}
	}
	return application.Application{}, application.ErrNotFound
}

func (repo *applicationRepository) QueryApplications(_ context.Context, filter *application.QueryFilter, ordering []core.DBOrdering) ([]application.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	apps := make([]application.Application, 0)
	for _, app := range repo.query() {
		if filter != nil {
			if filter.StudentID != "" && app.StudentID != filter.StudentID {
				continue
			}
			if filter.DepartmentID != "" && app.DepartmentID != filter.DepartmentID {
				continue
			}
			if filter.Status != "" && app.Status != filter.Status {
				continue
			}
			if !filter.AppliedFrom.IsZero() && app.AppliedAt.Before(filter.AppliedFrom) {
				continue
			}
			if !filter.AppliedTo.IsZero() && app.AppliedAt.After(filter.AppliedTo) {
				continue
			}
		}
		apps = append(apps, app)
	}

	asc := false
	if len(ordering) > 0 {
		asc = ordering[0].Ascending
	}
	sort.SliceStable(apps, func(i, j int) bool {
		less := apps[i].AppliedAt.Before(apps[j].AppliedAt)
		if asc {
			return less
		}
		return !less
	})
	return apps, nil
}

func (repo *applicationRepository) UpdateApplication(_ context.Context, app application.Application) (application.Application, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.applications[app.ID]; !ok {
		return application.Application{}, application.ErrNotFound
	}
	repo.db.applications[app.ID] = &app
	return app, nil
}

func (repo *applicationRepository) DeleteApplicationsByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.applications, id)

		// cascade like the SQL schema does
		for key, cand := range repo.db.candidates {
			if cand.ApplicationID == id {
				delete(repo.db.candidates, key)
			}
		}
		for ansID, ans := range repo.db.answers {
			if ans.ApplicationID == id {
				delete(repo.db.answers, ansID)
			}
		}
	}
	return nil
}
