package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vitccacm/recruitment-portal/core"
	"github.com/vitccacm/recruitment-portal/core/account"
)

var accountColumns = []string{
	"id", "name", "email", "password_hash", "roles", "is_active", "department_id",
	"google_id", "photo_url", "reg_no", "batch", "phone", "branch", "extra",
	"created_at", "updated_at", "last_login",
}

type accountRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	PasswordHash null.Bytes     `db:"password_hash"`
	Roles        pq.StringArray `db:"roles"`
	IsActive     null.Bool      `db:"is_active"`
	DepartmentID null.String    `db:"department_id"`
	GoogleID     null.String    `db:"google_id"`
	PhotoURL     string         `db:"photo_url"`
	RegNo        string         `db:"reg_no"`
	Batch        string         `db:"batch"`
	Phone        string         `db:"phone"`
	Branch       string         `db:"branch"`
	Extra        []byte         `db:"extra"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (row accountRow) toAccount() account.Account {
	acct := account.Account{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash.Bytes,
		Roles:        row.Roles,
		IsActive:     row.IsActive.Ptr(),
		DepartmentID: row.DepartmentID.String,
		GoogleID:     row.GoogleID.String,
		PhotoURL:     row.PhotoURL,
		RegNo:        row.RegNo,
		Batch:        row.Batch,
		Phone:        row.Phone,
		Branch:       row.Branch,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
	if row.LastLogin.IsZero() {
		acct.LastLogin = time.Time{}
	}
	if len(row.Extra) > 0 {
		_ = json.Unmarshal(row.Extra, &acct.Extra)
	}
	return acct
}

func accountValues(acct account.Account) ([]interface{}, error) {
	extra, err := json.Marshal(acct.Extra)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling extra profile fields")
	}
	if acct.Extra == nil {
		extra = []byte("{}")
	}
	return []interface{}{
		acct.ID,
		acct.Name,
		acct.Email,
		null.BytesFrom(acct.PasswordHash),
		pq.StringArray(acct.Roles),
		null.BoolFromPtr(acct.IsActive),
		null.NewString(acct.DepartmentID, acct.DepartmentID != ""),
		null.NewString(acct.GoogleID, acct.GoogleID != ""),
		acct.PhotoURL,
		acct.RegNo,
		acct.Batch,
		acct.Phone,
		acct.Branch,
		extra,
		acct.CreatedAt.UTC(),
		acct.UpdatedAt.UTC(),
		null.NewTime(acct.LastLogin.UTC(), !acct.LastLogin.IsZero()),
	}, nil
}

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) *accountRepository {
	return &accountRepository{db: db}
}

func (repo accountRepository) get(ctx context.Context, pred interface{}, args ...interface{}) (account.Account, error) {
	query, qargs, err := psql.Select(accountColumns...).From("accounts").Where(pred, args...).ToSql()
	if err != nil {
		return account.Account{}, errors.Wrap(err, "building query")
	}

	var row accountRow
	if err = repo.db.GetContext(ctx, &row, query, qargs...); err != nil {
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "getting account")
	}
	return row.toAccount(), nil
}

func (repo accountRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...account.Account) error {
	qb := psql.Select("COUNT(*)").From("accounts").Where(sq.Eq{"email": email})
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, a := range excluded {
			ids = append(ids, a.ID)
		}
		qb = qb.Where(sq.NotEq{"id": ids})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var count int
	if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking account uniqueness")
	}
	if count > 0 {
		return account.ErrEmailExists
	}
	return nil
}

func (repo accountRepository) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	values, err := accountValues(acct)
	if err != nil {
		return account.Account{}, err
	}
	query, args, err := psql.Insert("accounts").Columns(accountColumns...).Values(values...).ToSql()
	if err != nil {
		return account.Account{}, errors.Wrap(err, "building query")
	}

	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acct, nil
}

func (repo accountRepository) GetAccount(ctx context.Context, filter account.GetFilter) (account.Account, error) {
	switch {
	case filter.ID != "":
		return repo.get(ctx, sq.Eq{"id": filter.ID})
	case filter.Email != "":
		return repo.get(ctx, sq.Eq{"email": filter.Email})
	case filter.GoogleID != "":
		return repo.get(ctx, sq.Eq{"google_id": filter.GoogleID})
	}
	return account.Account{}, account.ErrNotFound
}

func (repo accountRepository) QueryAccounts(ctx context.Context, filter *account.QueryFilter, ordering []core.DBOrdering) ([]account.Account, error) {
	qb := psql.Select(accountColumns...).From("accounts")
	if filter != nil {
		if filter.Search != "" {
			s := "%" + filter.Search + "%"
			qb = qb.Where(sq.Or{
				sq.ILike{"name": s},
				sq.ILike{"email": s},
				sq.ILike{"reg_no": s},
			})
		}
		if filter.Roles != nil {
			var or sq.Or
			for _, role := range filter.Roles {
				or = append(or, sq.Expr("EXISTS (SELECT 1 FROM unnest(roles) r WHERE r LIKE ?)", role+"%"))
			}
			qb = qb.Where(or)
		}
		if filter.IsActive != nil {
			qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if filter.DepartmentID != "" {
			qb = qb.Where(sq.Eq{"department_id": filter.DepartmentID})
		}
		if !filter.CreatedFrom.IsZero() {
			qb = qb.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
		}
		if !filter.CreatedTo.IsZero() {
			qb = qb.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	for _, ord := range ordering {
		qb = qb.OrderBy(ord.String())
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []accountRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying accounts")
	}

	accts := make([]account.Account, 0, len(rows))
	for _, row := range rows {
		accts = append(accts, row.toAccount())
	}
	return accts, nil
}

func (repo accountRepository) UpdateAccount(ctx context.Context, acct account.Account, isActive *bool) (account.Account, error) {
	// only save set fields
	set := map[string]interface{}{
		"name":          acct.Name,
		"email":         acct.Email,
		"department_id": null.NewString(acct.DepartmentID, acct.DepartmentID != ""),
		"google_id":     null.NewString(acct.GoogleID, acct.GoogleID != ""),
		"photo_url":     acct.PhotoURL,
		"reg_no":        acct.RegNo,
		"batch":         acct.Batch,
		"phone":         acct.Phone,
		"branch":        acct.Branch,
		"updated_at":    acct.UpdatedAt.UTC(),
	}
	if acct.Roles != nil {
		set["roles"] = pq.StringArray(acct.Roles)
	}
	if acct.PasswordHash != nil {
		set["password_hash"] = null.BytesFrom(acct.PasswordHash)
	}
	if acct.Extra != nil {
		extra, err := json.Marshal(acct.Extra)
		if err != nil {
			return account.Account{}, errors.Wrap(err, "marshalling extra profile fields")
		}
		set["extra"] = extra
	}
	if isActive != nil {
		set["is_active"] = *isActive
	}
	if !acct.LastLogin.IsZero() {
		set["last_login"] = acct.LastLogin.UTC()
	}

	query, args, err := psql.Update("accounts").SetMap(set).Where(sq.Eq{"id": acct.ID}).ToSql()
	if err != nil {
		return account.Account{}, errors.Wrap(err, "building query")
	}

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return repo.get(ctx, sq.Eq{"id": acct.ID})
}

func (repo accountRepository) DeleteAccountsByID(ctx context.Context, ids ...string) error {
	query, args, err := psql.Delete("accounts").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting accounts")
	}
	return nil
}
