package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/vitccacm/recruitment-portal/core"
	"github.com/vitccacm/recruitment-portal/core/account"
)

type accountRepository struct {
	db *DB
}

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) query() []account.Account {
	accts := make([]account.Account, 0, len(repo.db.accounts))
	for _, a := range repo.db.accounts {
		accts = append(accts, *a)
	}
	return accts
}

func (repo *accountRepository) CheckEmailUniqueness(_ context.Context, email string, excluded ...account.Account) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, acct := range repo.query() {
		if acct.Email == email && !isExcluded(acct.ID, excluded) {
			return account.ErrEmailExists
		}
	}
	return nil
}

func (repo *accountRepository) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.accounts[acct.ID] = &acct
	return acct, nil
}

func (repo *accountRepository) GetAccount(_ context.Context, filter account.GetFilter) (account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if acct, ok := repo.db.accounts[filter.ID]; ok {
			return *acct, nil
		}
		return account.Account{}, account.ErrNotFound
	}
	for _, acct := range repo.query() {
		if filter.Email != "" && acct.Email == filter.Email {
			return acct, nil
		}
		if filter.GoogleID != "" && acct.GoogleID == filter.GoogleID {
			return acct, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) QueryAccounts(_ context.Context, filter *account.QueryFilter, ordering []core.DBOrdering) ([]account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	accts := make([]account.Account, 0)
	for _, acct := range repo.query() {
		if filter != nil && !matchAccount(acct, filter) {
			continue
		}
		accts = append(accts, acct)
	}
	sortAccounts(accts, ordering)
	return accts, nil
}

func matchAccount(acct account.Account, filter *account.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(acct.Name), s) ||
			strings.Contains(strings.ToLower(acct.Email), s) ||
			strings.Contains(strings.ToLower(acct.RegNo), s)) {
			return false
		}
	}
	if filter.Roles != nil {
		var found bool
		for _, want := range filter.Roles {
			if acct.RoleStartsWith(want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && (acct.IsActive == nil || *acct.IsActive != *filter.IsActive) {
		return false
	}
	if filter.DepartmentID != "" && acct.DepartmentID != filter.DepartmentID {
		return false
	}
	if !filter.CreatedFrom.IsZero() && acct.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && acct.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func sortAccounts(accts []account.Account, ordering []core.DBOrdering) {
	field, asc := "created_at", false
	if len(ordering) > 0 {
		field, asc = ordering[0].Field, ordering[0].Ascending
	}
	sort.SliceStable(accts, func(i, j int) bool {
		var less bool
		switch field {
		case "name":
			less = accts[i].Name < accts[j].Name
		case "email":
			less = accts[i].Email < accts[j].Email
		default:
			less = accts[i].CreatedAt.Before(accts[j].CreatedAt)
		}
		if asc {
			return less
		}
		return !less
	})
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acct account.Account, isActive *bool) (account.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only save set fields
	orig, ok := repo.db.accounts[acct.ID]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	if acct.Roles != nil {
		orig.Roles = acct.Roles
	}
	if acct.PasswordHash != nil {
		orig.PasswordHash = acct.PasswordHash
	}
	if acct.Extra != nil {
		orig.Extra = acct.Extra
	}
	if isActive != nil {
		orig.IsActive = isActive
	}
	orig.Name = acct.Name
	orig.Email = acct.Email
	orig.DepartmentID = acct.DepartmentID
	orig.GoogleID = acct.GoogleID
	orig.PhotoURL = acct.PhotoURL
	orig.RegNo = acct.RegNo
	orig.Batch = acct.Batch
	orig.Phone = acct.Phone
	orig.Branch = acct.Branch
	orig.UpdatedAt = acct.UpdatedAt
	if !acct.LastLogin.IsZero() {
		orig.LastLogin = acct.LastLogin
	}

	repo.db.accounts[acct.ID] = orig
	return *orig, nil
}

func (repo *accountRepository) DeleteAccountsByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.accounts, id)
	}
	return nil
}

func isExcluded(id string, excluded []account.Account) bool {
	for _, e := range excluded {
		if e.ID == id {
			return true
		}
	}
	return false
}
