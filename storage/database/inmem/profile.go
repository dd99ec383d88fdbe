package inmemdb

import (
	"context"
	"sort"

	"github.com/vitccacm/recruitment-portal/core/profile"
)

type profileFieldRepository struct {
	db *DB
}

func NewProfileFieldRepository(db *DB) profile.Repository {
	return &profileFieldRepository{db: db}
}

func (repo *profileFieldRepository) CheckFieldNameUniqueness(_ context.Context, name string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, f := range repo.db.fields {
		if f.FieldName == name {
			return profile.ErrNameExists
		}
	}
	return nil
}

func (repo *profileFieldRepository) CreateField(_ context.Context, f profile.Field) (profile.Field, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.fields[f.ID] = &f
	return f, nil
}

func (repo *profileFieldRepository) GetField(_ context.Context, id string) (profile.Field, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if f, ok := repo.db.fields[id]; ok {
		return *f, nil
	}
	return profile.Field{}, profile.ErrNotFound
}

func (repo *profileFieldRepository) QueryFields(_ context.Context) ([]profile.Field, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	fields := make([]profile.Field, 0, len(repo.db.fields))
	for _, f := range repo.db.fields {
		fields = append(fields, *f)
	}
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Order != fields[j].Order {
			return fields[i].Order < fields[j].Order
		}
		return fields[i].CreatedAt.Before(fields[j].CreatedAt)
	})
	return fields, nil
}

func (repo *profileFieldRepository) UpdateField(_ context.Context, f profile.Field, isRequired, isEnabled *bool) (profile.Field, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.fields[f.ID]
	if !ok {
		return profile.Field{}, profile.ErrNotFound
	}
	if isRequired != nil {
		f.IsRequired = *isRequired
	} else {
		f.IsRequired = orig.IsRequired
	}
	if isEnabled != nil {
		f.IsEnabled = *isEnabled
	} else {
		f.IsEnabled = orig.IsEnabled
	}

	repo.db.fields[f.ID] = &f
	return f, nil
}

func (repo *profileFieldRepository) DeleteFieldsByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.fields, id)
	}
	return nil
}
