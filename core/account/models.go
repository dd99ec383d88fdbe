package account

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/vitccacm/recruitment-portal/core"
)

// Roles
const (
	// RoleSuperAdmin runs the whole portal.
	RoleSuperAdmin = "admin:"

	// RoleDeptAdmin manages a single department's recruitment.
	RoleDeptAdmin = "dept:"

	// RoleStudent applies to departments.
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleSuperAdmin, RoleDeptAdmin}
	StudentRoles = []string{RoleStudent}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		RoleSuperAdmin: 30,
		RoleDeptAdmin:  20,
		RoleStudent:    10,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Department Admin", Value: RoleDeptAdmin},
		{Name: "Super Admin", Value: RoleSuperAdmin},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 3)
	all = append(all, AdminRoles...)
	all = append(all, StudentRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Account is any portal user: super admin, department admin or student.
type Account struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	IsActive     *bool    `json:"is_active"`
	Roles        []string `json:"roles"`
	DepartmentID string   `json:"department_id,omitempty"` // dept admins only
	GoogleID     string   `json:"-"`
	PhotoURL     string   `json:"photo_url,omitempty"`

	// built-in student profile fields
	RegNo  string `json:"reg_no,omitempty"`
	Batch  string `json:"batch,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Branch string `json:"branch,omitempty"`

	// answers to admin-configured profile fields, keyed by field name
	Extra map[string]string `json:"extra,omitempty"`

	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

// CheckPassword fails for OAuth-only accounts (no password set).
func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) SetActive(active bool) {
	a.IsActive = &active
}

func (a *Account) RoleStartsWith(prefix string) bool {
	for _, role := range a.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (a *Account) IsSuperAdmin() bool {
	return a.RoleStartsWith(RoleSuperAdmin)
}

func (a *Account) IsDeptAdmin() bool {
	return a.RoleStartsWith(RoleDeptAdmin)
}

func (a *Account) IsStudent() bool {
	return a.RoleStartsWith(RoleStudent)
}

// profileFields are the built-in fields counting towards profile completion.
func (a *Account) profileFields() []string {
	return []string{a.Name, a.RegNo, a.Batch, a.Phone, a.Branch}
}

// ProfileCompletion returns the percentage of built-in profile fields set.
func (a *Account) ProfileCompletion() int {
	fields := a.profileFields()
	var completed int
	for _, f := range fields {
		if f != "" {
			completed++
		}
	}
	return (completed * 100) / len(fields)
}

// CanApply reports whether the profile is complete enough (>= 75%) to
// submit applications.
func (a *Account) CanApply() bool {
	return a.ProfileCompletion() >= 75
}

// NewAdmin contains information needed to create a new admin Account.
// An empty Password with GeneratePassword set has one generated; the
// resulting credentials are emailed to the admin.
type NewAdmin struct {
	Name             string   `json:"name" validate:"required"`
	Email            string   `json:"email" validate:"required,email"`
	Roles            []string `json:"roles" validate:"required,allroles"`
	DepartmentID     string   `json:"department_id"`
	Password         string   `json:"password"`
	PasswordConfirm  string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
	GeneratePassword bool     `json:"generate_password"`
}

func (na *NewAdmin) Validate(validate *validator.Validate, svc *Service) error {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)

	if err := validate.Struct(na); err != nil {
		return err
	}
	return svc.CheckUniqueness(na.Email)
}

// NewStudent contains information needed for student email self-signup.
type NewStudent struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (ns *NewStudent) Validate(validate *validator.Validate, svc *Service) error {
	ns.Email = core.CleanString(ns.Email, true /* lower */)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ns.Email)
}

// VerifiedIdentity is a verified student identity produced by the
// external identity provider.
type VerifiedIdentity struct {
	GoogleID string
	Email    string
	Name     string
	PhotoURL string
}

// UpdateAccount defines what information may be provided to modify an
// existing Account.
type UpdateAccount struct {
	Name            string   `json:"name"`
	Email           string   `json:"email" validate:"omitempty,email"`
	IsActive        *bool    `json:"is_active"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	DepartmentID    *string  `json:"department_id"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (ua *UpdateAccount) Validate(orig Account, validate *validator.Validate, svc *Service) error {
	name := core.CleanString(ua.Name)
	if name != "" {
		ua.Name = name
	} else {
		ua.Name = orig.Name
	}

	email := core.CleanString(ua.Email, true /* lower */)
	if email != "" {
		ua.Email = email
	} else {
		ua.Email = orig.Email
	}

	if err := validate.Struct(ua); err != nil {
		return err
	}
	return svc.CheckUniqueness(ua.Email, orig)
}

// ProfileUpdate carries the student-editable profile fields, both
// built-in and admin-configured.
type ProfileUpdate struct {
	Name   string            `json:"name" validate:"required"`
	RegNo  string            `json:"reg_no"`
	Batch  string            `json:"batch"`
	Phone  string            `json:"phone" validate:"omitempty,min=7,max=15"`
	Branch string            `json:"branch"`
	Extra  map[string]string `json:"extra"`
}

func (pu *ProfileUpdate) Validate(validate *validator.Validate) error {
	pu.Name = core.CleanString(pu.Name)
	pu.RegNo = core.CleanString(pu.RegNo, true /* lower */)
	pu.Batch = core.CleanString(pu.Batch)
	pu.Phone = core.CleanString(pu.Phone)
	pu.Branch = core.CleanString(pu.Branch)
	return validate.Struct(pu)
}

type ResetAccountPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetAccountPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search       string    `query:"search"`
	Roles        []string  `query:"role"`
	IsActive     *bool     `query:"is_active"`
	DepartmentID string    `query:"department_id"`
	CreatedFrom  time.Time `query:"created_from"`
	CreatedTo    time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil &&
		qf.DepartmentID == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single Account; fields are tried in order.
type GetFilter struct {
	ID       string
	Email    string
	GoogleID string
}
