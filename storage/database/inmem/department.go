package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/vitccacm/recruitment-portal/core"
	"github.com/vitccacm/recruitment-portal/core/department"
)

type departmentRepository struct {
	db *DB
}

func NewDepartmentRepository(db *DB) department.Repository {
	return &departmentRepository{db: db}
}

func (repo *departmentRepository) query() []department.Department {
	depts := make([]department.Department, 0, len(repo.db.departments))
	for _, d := range repo.db.departments {
		depts = append(depts, *d)
	}
	return depts
}

func (repo *departmentRepository) CheckNameUniqueness(_ context.Context, name string, excluded ...department.Department) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, dept := range repo.query() {
		if !strings.EqualFold(dept.Name, name) {
			continue
		}
		var excl bool
		for _, e := range excluded {
			if e.ID == dept.ID {
				excl = true
				break
			}
		}
		if !excl {
			return department.ErrNameExists
		}
	}
	return nil
}

func (repo *departmentRepository) CreateDepartment(_ context.Context, dept department.Department) (department.Department, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.departments[dept.ID] = &dept
	return dept, nil
}

func (repo *departmentRepository) GetDepartment(_ context.Context, filter department.GetFilter) (department.Department, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if dept, ok := repo.db.departments[filter.ID]; ok {
			return *dept, nil
		}
		return department.Department{}, department.ErrNotFound
	}
	for _, dept := range repo.query() {
		if filter.Name != "" && strings.EqualFold(dept.Name, filter.Name) {
			return dept, nil
		}
	}
	return department.Department{}, department.ErrNotFound
}

func (repo *departmentRepository) QueryDepartments(_ context.Context, filter *department.QueryFilter, ordering []core.DBOrdering) ([]department.Department, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	depts := make([]department.Department, 0)
	for _, dept := range repo.query() {
		if filter != nil {
			if filter.Search != "" && !strings.Contains(strings.ToLower(dept.Name), strings.ToLower(filter.Search)) {
				continue
			}
			if filter.IsActive != nil && dept.IsActive != *filter.IsActive {
				continue
			}
		}
		depts = append(depts, dept)
	}

	asc := true
	if len(ordering) > 0 {
		asc = ordering[0].Ascending
	}
	sort.SliceStable(depts, func(i, j int) bool {
		less := depts[i].Name < depts[j].Name
		if asc {
			return less
		}
		return !less
	})
	return depts, nil
}

func (repo *departmentRepository) ListDepartmentIDs(_ context.Context) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make([]string, 0, len(repo.db.departments))
	for id := range repo.db.departments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *departmentRepository) UpdateDepartment(_ context.Context, dept department.Department, isActive *bool) (department.Department, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.departments[dept.ID]
	if !ok {
		return department.Department{}, department.ErrNotFound
	}
	if isActive != nil {
		dept.IsActive = *isActive
	} else {
		dept.IsActive = orig.IsActive
	}

	repo.db.departments[dept.ID] = &dept
	return dept, nil
}

func (repo *departmentRepository) DeleteDepartmentsByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.departments, id)

		// cascade like the SQL schema does
		for appID, app := range repo.db.applications {
			if app.DepartmentID == id {
				delete(repo.db.applications, appID)
			}
		}
		for key, state := range repo.db.states {
			if state.DepartmentID == id {
				delete(repo.db.states, key)
			}
		}
		for qID, q := range repo.db.questions {
			if q.DepartmentID == id {
				delete(repo.db.questions, qID)
			}
		}
	}
	return nil
}
