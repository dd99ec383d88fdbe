package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vitccacm/recruitment-portal/core"
	"github.com/vitccacm/recruitment-portal/core/department"
)

var departmentColumns = []string{
	"id", "name", "short_description", "description", "image", "positions",
	"requirements", "is_active", "recruitment_start", "recruitment_end",
	"created_at", "updated_at",
}

type departmentRow struct {
	ID               string    `db:"id"`
	Name             string    `db:"name"`
	ShortDescription string    `db:"short_description"`
	Description      string    `db:"description"`
	Image            string    `db:"image"`
	Positions        string    `db:"positions"`
	Requirements     string    `db:"requirements"`
	IsActive         bool      `db:"is_active"`
	RecruitmentStart null.Time `db:"recruitment_start"`
	RecruitmentEnd   null.Time `db:"recruitment_end"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (row departmentRow) toDepartment() department.Department {
	dept := department.Department{
		ID:               row.ID,
		Name:             row.Name,
		ShortDescription: row.ShortDescription,
		Description:      row.Description,
		Image:            row.Image,
		Positions:        row.Positions,
		Requirements:     row.Requirements,
		IsActive:         row.IsActive,
		CreatedAt:        row.CreatedAt.UTC(),
		UpdatedAt:        row.UpdatedAt.UTC(),
	}
	if row.RecruitmentStart.Valid {
		dept.RecruitmentStart = row.RecruitmentStart.Time.UTC()
	}
	if row.RecruitmentEnd.Valid {
		dept.RecruitmentEnd = row.RecruitmentEnd.Time.UTC()
	}
	return dept
}

func departmentValues(dept department.Department) []interface{} {
	return []interface{}{
		dept.ID,
		dept.Name,
		dept.ShortDescription,
		dept.Description,
		dept.Image,
		dept.Positions,
		dept.Requirements,
		dept.IsActive,
		null.NewTime(dept.RecruitmentStart.UTC(), !dept.RecruitmentStart.IsZero()),
		null.NewTime(dept.RecruitmentEnd.UTC(), !dept.RecruitmentEnd.IsZero()),
		dept.CreatedAt.UTC(),
		dept.UpdatedAt.UTC(),
	}
}

type departmentRepository struct {
	db *sqlx.DB
}

var _ department.Repository = (*departmentRepository)(nil) // interface compliance check

func NewDepartmentRepository(db *sqlx.DB) *departmentRepository {
	return &departmentRepository{db: db}
}

func (repo departmentRepository) get(ctx context.Context, pred interface{}, args ...interface{}) (department.Department, error) {
	query, qargs, err := psql.Select(departmentColumns...).From("departments").Where(pred, args...).ToSql()
	if err != nil {
		return department.Department{}, errors.Wrap(err, "building query")
	}

	var row departmentRow
	if err = repo.db.GetContext(ctx, &row, query, qargs...); err != nil {
		return department.Department{}, trapNoRowsErr(err, department.ErrNotFound, "getting department")
	}
	return row.toDepartment(), nil
}

func (repo departmentRepository) CheckNameUniqueness(ctx context.Context, name string, excluded ...department.Department) error {
	qb := psql.Select("COUNT(*)").From("departments").Where(sq.Expr("LOWER(name) = LOWER(?)", name))
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, d := range excluded {
			ids = append(ids, d.ID)
		}
		qb = qb.Where(sq.NotEq{"id": ids})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var count int
	if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking department uniqueness")
	}
	if count > 0 {
		return department.ErrNameExists
	}
	return nil
}

func (repo departmentRepository) CreateDepartment(ctx context.Context, dept department.Department) (department.Department, error) {
	query, args, err := psql.Insert("departments").Columns(departmentColumns...).Values(departmentValues(dept)...).ToSql()
	if err != nil {
		return department.Department{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return department.Department{}, errors.Wrap(err, "inserting department")
	}
	return dept, nil
}

func (repo departmentRepository) GetDepartment(ctx context.Context, filter department.GetFilter) (department.Department, error) {
	switch {
	case filter.ID != "":
		return repo.get(ctx, sq.Eq{"id": filter.ID})
	case filter.Name != "":
		return repo.get(ctx, sq.Expr("LOWER(name) = LOWER(?)", filter.Name))
	}
	return department.Department{}, department.ErrNotFound
}

func (repo departmentRepository) QueryDepartments(ctx context.Context, filter *department.QueryFilter, ordering []core.DBOrdering) ([]department.Department, error) {
	qb := psql.Select(departmentColumns...).From("departments")
	if filter != nil {
		if filter.Search != "" {
			qb = qb.Where(sq.ILike{"name": "%" + filter.Search + "%"})
		}
		if filter.IsActive != nil {
			qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	for _, ord := range ordering {
		qb = qb.OrderBy(ord.String())
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []departmentRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying departments")
	}

	depts := make([]department.Department, 0, len(rows))
	for _, row := range rows {
		depts = append(depts, row.toDepartment())
	}
	return depts, nil
}

func (repo departmentRepository) ListDepartmentIDs(ctx context.Context) ([]string, error) {
	query, args, err := psql.Select("id").From("departments").OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var ids []string
	if err = repo.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, errors.Wrap(err, "listing department ids")
	}
	return ids, nil
}

func (repo departmentRepository) UpdateDepartment(ctx context.Context, dept department.Department, isActive *bool) (department.Department, error) {
	set := map[string]interface{}{
		"name":              dept.Name,
		"short_description": dept.ShortDescription,
		"description":       dept.Description,
		"image":             dept.Image,
		"positions":         dept.Positions,
		"requirements":      dept.Requirements,
		"recruitment_start": null.NewTime(dept.RecruitmentStart.UTC(), !dept.RecruitmentStart.IsZero()),
		"recruitment_end":   null.NewTime(dept.RecruitmentEnd.UTC(), !dept.RecruitmentEnd.IsZero()),
		"updated_at":        dept.UpdatedAt.UTC(),
	}
	if isActive != nil {
		set["is_active"] = *isActive
	}

	query, args, err := psql.Update("departments").SetMap(set).Where(sq.Eq{"id": dept.ID}).ToSql()
	if err != nil {
		return department.Department{}, errors.Wrap(err, "building query")
	}

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return department.Department{}, errors.Wrap(err, "updating department")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return department.Department{}, department.ErrNotFound
	}
	return repo.get(ctx, sq.Eq{"id": dept.ID})
}

func (repo departmentRepository) DeleteDepartmentsByID(ctx context.Context, ids ...string) error {
	query, args, err := psql.Delete("departments").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting departments")
	}
	return nil
}
