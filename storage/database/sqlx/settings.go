package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core/settings"
)

type settingRow struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

type settingsRepository struct {
	db *sqlx.DB
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db *sqlx.DB) *settingsRepository {
	return &settingsRepository{db: db}
}

func (repo settingsRepository) GetSetting(ctx context.Context, key string) (settings.Setting, error) {
	query, args, err := psql.Select("key", "value", "updated_at").From("settings").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return settings.Setting{}, errors.Wrap(err, "building query")
	}

	var row settingRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return settings.Setting{}, trapNoRowsErr(err, settings.ErrNotFound, "getting setting")
	}
	return settings.Setting{Key: row.Key, Value: row.Value, UpdatedAt: row.UpdatedAt.UTC()}, nil
}

func (repo settingsRepository) QuerySettings(ctx context.Context) ([]settings.Setting, error) {
	query, args, err := psql.Select("key", "value", "updated_at").From("settings").OrderBy("key ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []settingRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying settings")
	}

	all := make([]settings.Setting, 0, len(rows))
	for _, row := range rows {
		all = append(all, settings.Setting{Key: row.Key, Value: row.Value, UpdatedAt: row.UpdatedAt.UTC()})
	}
	return all, nil
}

func (repo settingsRepository) UpsertSetting(ctx context.Context, s settings.Setting) (settings.Setting, error) {
	query, args, err := psql.Insert("settings").Columns("key", "value", "updated_at").
		Values(s.Key, s.Value, s.UpdatedAt.UTC()).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return settings.Setting{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return settings.Setting{}, errors.Wrap(err, "upserting setting")
	}
	return s, nil
}
