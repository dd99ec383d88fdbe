// Package inmemdb is a map-backed implementation of the repositories,
// used by the API tests and as a toolchain for local hacking without
// Postgres.
package inmemdb

import (
	"sync"

	"github.com/vitccacm/recruitment-portal/core/account"
	"github.com/vitccacm/recruitment-portal/core/application"
	"github.com/vitccacm/recruitment-portal/core/department"
	"github.com/vitccacm/recruitment-portal/core/profile"
	"github.com/vitccacm/recruitment-portal/core/question"
	"github.com/vitccacm/recruitment-portal/core/round"
	"github.com/vitccacm/recruitment-portal/core/settings"
)

type DB struct {
	mutex sync.RWMutex

	accounts     map[string]*account.Account
	departments  map[string]*department.Department
	applications map[string]*application.Application
	rounds       map[string]*round.Round
	states       map[string]*round.DepartmentState // (roundID, departmentID)
	candidates   map[string]*round.Candidate       // (roundID, applicationID)
	questions    map[string]*question.Question
	answers      map[string]*question.Answer
	fields       map[string]*profile.Field
	settings     map[string]*settings.Setting
}

func NewDB() *DB {
	db := new(DB)
	db.Reset()
	return db
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.accounts = make(map[string]*account.Account)
	db.departments = make(map[string]*department.Department)
	db.applications = make(map[string]*application.Application)
	db.rounds = make(map[string]*round.Round)
	db.states = make(map[string]*round.DepartmentState)
	db.candidates = make(map[string]*round.Candidate)
	db.questions = make(map[string]*question.Question)
	db.answers = make(map[string]*question.Answer)
	db.fields = make(map[string]*profile.Field)
	db.settings = make(map[string]*settings.Setting)
}

func pairKey(a, b string) string {
	return a + "/" + b
}
