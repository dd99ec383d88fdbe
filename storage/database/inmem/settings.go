package inmemdb

import (
	"context"
	"sort"

	"github.com/vitccacm/recruitment-portal/core/settings"
)

type settingRepository struct {
	db *DB
}

func NewSettingRepository(db *DB) settings.Repository {
	return &settingRepository{db: db}
}

func (repo *settingRepository) GetSetting(_ context.Context, key string) (settings.Setting, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.settings[key]; ok {
		return *s, nil
	}
	return settings.Setting{}, settings.ErrNotFound
}

func (repo *settingRepository) QuerySettings(_ context.Context) ([]settings.Setting, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	all := make([]settings.Setting, 0, len(repo.db.settings))
	for _, s := range repo.db.settings {
		all = append(all, *s)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Key < all[j].Key })
	return all, nil
}

func (repo *settingRepository) UpsertSetting(_ context.Context, s settings.Setting) (settings.Setting, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.settings[s.Key] = &s
	return s, nil
}
