package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core/profile"
)

var fieldColumns = []string{
	"id", "field_name", "label", "type", "options", "is_required",
	"is_enabled", "ord", "created_at", "updated_at",
}

type fieldRow struct {
	ID         string         `db:"id"`
	FieldName  string         `db:"field_name"`
	Label      string         `db:"label"`
	Type       string         `db:"type"`
	Options    pq.StringArray `db:"options"`
	IsRequired bool           `db:"is_required"`
	IsEnabled  bool           `db:"is_enabled"`
	Order      int            `db:"ord"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (row fieldRow) toField() profile.Field {
	return profile.Field{
		ID:         row.ID,
		FieldName:  row.FieldName,
		Label:      row.Label,
		Type:       row.Type,
		Options:    row.Options,
		IsRequired: row.IsRequired,
		IsEnabled:  row.IsEnabled,
		Order:      row.Order,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

type profileRepository struct {
	db *sqlx.DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *sqlx.DB) *profileRepository {
	return &profileRepository{db: db}
}

func (repo profileRepository) get(ctx context.Context, id string) (profile.Field, error) {
	query, args, err := psql.Select(fieldColumns...).From("profile_fields").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return profile.Field{}, errors.Wrap(err, "building query")
	}

	var row fieldRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return profile.Field{}, trapNoRowsErr(err, profile.ErrNotFound, "getting profile field")
	}
	return row.toField(), nil
}

func (repo profileRepository) CheckFieldNameUniqueness(ctx context.Context, name string) error {
	query, args, err := psql.Select("COUNT(*)").From("profile_fields").
		Where(sq.Expr("LOWER(field_name) = LOWER(?)", name)).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var count int
	if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking profile field uniqueness")
	}
	if count > 0 {
		return profile.ErrNameExists
	}
	return nil
}

func (repo profileRepository) CreateField(ctx context.Context, f profile.Field) (profile.Field, error) {
	query, args, err := psql.Insert("profile_fields").Columns(fieldColumns...).Values(
		f.ID, f.FieldName, f.Label, f.Type, pq.StringArray(f.Options), f.IsRequired,
		f.IsEnabled, f.Order, f.CreatedAt.UTC(), f.UpdatedAt.UTC(),
	).ToSql()
	if err != nil {
		return profile.Field{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return profile.Field{}, errors.Wrap(err, "inserting profile field")
	}
	return f, nil
}

func (repo profileRepository) GetField(ctx context.Context, id string) (profile.Field, error) {
	return repo.get(ctx, id)
}

func (repo profileRepository) QueryFields(ctx context.Context) ([]profile.Field, error) {
	query, args, err := psql.Select(fieldColumns...).From("profile_fields").
		OrderBy("ord ASC", "created_at ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []fieldRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying profile fields")
	}

	fields := make([]profile.Field, 0, len(rows))
	for _, row := range rows {
		fields = append(fields, row.toField())
	}
	return fields, nil
}

func (repo profileRepository) UpdateField(ctx context.Context, f profile.Field, isRequired, isEnabled *bool) (profile.Field, error) {
	set := map[string]interface{}{
		"label":      f.Label,
		"type":       f.Type,
		"options":    pq.StringArray(f.Options),
		"ord":        f.Order,
		"updated_at": f.UpdatedAt.UTC(),
	}
	if isRequired != nil {
		set["is_required"] = *isRequired
	}
	if isEnabled != nil {
		set["is_enabled"] = *isEnabled
	}

	query, args, err := psql.Update("profile_fields").SetMap(set).Where(sq.Eq{"id": f.ID}).ToSql()
	if err != nil {
		return profile.Field{}, errors.Wrap(err, "building query")
	}

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return profile.Field{}, errors.Wrap(err, "updating profile field")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return profile.Field{}, profile.ErrNotFound
	}
	return repo.get(ctx, f.ID)
}

func (repo profileRepository) DeleteFieldsByID(ctx context.Context, ids ...string) error {
	query, args, err := psql.Delete("profile_fields").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting profile fields")
	}
	return nil
}
