package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core"
	"github.com/vitccacm/recruitment-portal/core/application"
)

var applicationColumns = []string{
	"id", "student_id", "department_id", "position", "cover_letter",
	"status", "applied_at", "updated_at",
}

type applicationRow struct {
	ID           string    `db:"id"`
	StudentID    string    `db:"student_id"`
	DepartmentID string    `db:"department_id"`
	Position     string    `db:"position"`
	CoverLetter  string    `db:"cover_letter"`
	Status       string    `db:"status"`
	AppliedAt    time.Time `db:"applied_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (row applicationRow) toApplication() application.Application {
	return application.Application{
		ID:           row.ID,
		StudentID:    row.StudentID,
		DepartmentID: row.DepartmentID,
		Position:     row.Position,
		CoverLetter:  row.CoverLetter,
		Status:       row.Status,
		AppliedAt:    row.AppliedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

type applicationRepository struct {
	db *sqlx.DB
}

var _ application.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *sqlx.DB) *applicationRepository {
	return &applicationRepository{db: db}
}

func (repo applicationRepository) get(ctx context.Context, pred interface{}) (application.Application, error) {
	query, args, err := psql.Select(applicationColumns...).From("applications").Where(pred).ToSql()
	if err != nil {
		return application.Application{}, errors.Wrap(err, "building query")
	}

	var row applicationRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return application.Application{}, trapNoRowsErr(err, application.ErrNotFound, "getting application")
	}
	return row.toApplication(), nil
}

func (repo applicationRepository) CreateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	query, args, err := psql.Insert("applications").Columns(applicationColumns...).Values(
		app.ID, app.StudentID, app.DepartmentID, app.Position, app.CoverLetter,
		app.Status, app.AppliedAt.UTC(), app.UpdatedAt.UTC(),
	).ToSql()
	if err != nil {
		return application.Application{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return application.Application{}, errors.Wrap(err, "inserting application")
	}
	return app, nil
}

func (repo applicationRepository) GetApplication(ctx context.Context, filter application.GetFilter) (application.Application, error) {
	switch {
	case filter.ID != "":
		return repo.get(ctx, sq.Eq{"id": filter.ID})
	case filter.StudentID != "" && filter.DepartmentID != "":
		return repo.get(ctx, sq.Eq{"student_id": filter.StudentID, "department_id": filter.DepartmentID})
	}
	return application.Application{}, application.ErrNotFound
}

func (repo applicationRepository) QueryApplications(ctx context.Context, filter *application.QueryFilter, ordering []core.DBOrdering) ([]application.Application, error) {
	qb := psql.Select(applicationColumns...).From("applications")
	if filter != nil {
		if filter.StudentID != "" {
			qb = qb.Where(sq.Eq{"student_id": filter.StudentID})
		}
		if filter.DepartmentID != "" {
			qb = qb.Where(sq.Eq{"department_id": filter.DepartmentID})
		}
		if filter.Status != "" {
			qb = qb.Where(sq.Eq{"status": filter.Status})
		}
		if !filter.AppliedFrom.IsZero() {
			qb = qb.Where(sq.GtOrEq{"applied_at": filter.AppliedFrom.UTC()})
		}
		if !filter.AppliedTo.IsZero() {
			qb = qb.Where(sq.LtOrEq{"applied_at": filter.AppliedTo.UTC()})
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "applied_at"}}
	}
	for _, ord := range ordering {
		qb = qb.OrderBy(ord.String())
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []applicationRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}

	apps := make([]application.Application, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, row.toApplication())
	}
	return apps, nil
}

func (repo applicationRepository) UpdateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	query, args, err := psql.Update("applications").SetMap(map[string]interface{}{
		"position":     app.Position,
		"cover_letter": app.CoverLetter,
		"status":       app.Status,
		"updated_at":   app.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": app.ID}).ToSql()
	if err != nil {
		return application.Application{}, errors.Wrap(err, "building query")
	}

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return application.Application{}, errors.Wrap(err, "updating application")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return application.Application{}, application.ErrNotFound
	}
	return repo.get(ctx, sq.Eq{"id": app.ID})
}

func (repo applicationRepository) DeleteApplicationsByID(ctx context.Context, ids ...string) error {
	query, args, err := psql.Delete("applications").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting applications")
	}
	return nil
}
