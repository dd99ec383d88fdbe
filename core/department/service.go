package department

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core"
)

var (
	// errors
	ErrNotFound   = errors.New("department not found")
	ErrNameExists = errors.New("a department with this name already exists")
)

type (
	Repository interface {
		CheckNameUniqueness(ctx context.Context, name string, excluded ...Department) error
		CreateDepartment(ctx context.Context, dept Department) (Department, error)
		GetDepartment(ctx context.Context, filter GetFilter) (Department, error)
		// QueryDepartments applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Department.Name.
		QueryDepartments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Department, error)
		ListDepartmentIDs(ctx context.Context) ([]string, error)
		UpdateDepartment(ctx context.Context, dept Department, isActive *bool) (Department, error)
		DeleteDepartmentsByID(ctx context.Context, ids ...string) error
	}

	// StateInitializer backfills per-department round states for a new
	// department. Implemented by the round service.
	StateInitializer interface {
		InitDepartmentStates(ctx context.Context, departmentID string) error
	}

	Service struct {
		repo   Repository
		states StateInitializer
	}
)

func NewService(repo Repository, states StateInitializer) *Service {
	return &Service{repo: repo, states: states}
}

// CheckUniqueness wraps repository uniqueness errors as field errors.
func (svc *Service) CheckUniqueness(name string, excl ...Department) error {
	if err := svc.repo.CheckNameUniqueness(context.Background(), name, excl...); err != nil {
		if errors.Cause(err) == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nd NewDepartment) (Department, error) {
	now := time.Now().UTC()
	dept := Department{
		ID:               uuid.New().String(),
		Name:             nd.Name,
		ShortDescription: nd.ShortDescription,
		Description:      nd.Description,
		Image:            nd.Image,
		Positions:        nd.Positions,
		Requirements:     nd.Requirements,
		IsActive:         true,
		RecruitmentStart: nd.RecruitmentStart,
		RecruitmentEnd:   nd.RecruitmentEnd,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	dept, err := svc.repo.CreateDepartment(ctx, dept)
	if err != nil {
		return Department{}, err
	}

	if svc.states != nil {
		if err = svc.states.InitDepartmentStates(ctx, dept.ID); err != nil {
			return Department{}, errors.Wrap(err, "initializing round states")
		}
	}
	return dept, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Department, error) {
	return svc.repo.QueryDepartments(ctx, filter, ordering)
}

// QueryOpen returns active departments, for the student browsing view.
func (svc *Service) QueryOpen(ctx context.Context, ordering []core.DBOrdering) ([]Department, error) {
	active := true
	return svc.repo.QueryDepartments(ctx, &QueryFilter{IsActive: &active}, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Department, error) {
	return svc.repo.GetDepartment(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByName(ctx context.Context, name string) (Department, error) {
	return svc.repo.GetDepartment(ctx, GetFilter{Name: core.CleanString(name)})
}

func (svc *Service) Update(ctx context.Context, orig Department, ud UpdateDepartment) (Department, error) {
	dept := orig
	dept.Name = ud.Name
	if ud.ShortDescription != nil {
		dept.ShortDescription = *ud.ShortDescription
	}
	if ud.Description != nil {
		dept.Description = *ud.Description
	}
	if ud.Image != nil {
		dept.Image = *ud.Image
	}
	if ud.Positions != nil {
		dept.Positions = *ud.Positions
	}
	if ud.Requirements != nil {
		dept.Requirements = *ud.Requirements
	}
	if ud.RecruitmentStart != nil {
		dept.RecruitmentStart = *ud.RecruitmentStart
	}
	if ud.RecruitmentEnd != nil {
		dept.RecruitmentEnd = *ud.RecruitmentEnd
	}
	dept.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateDepartment(ctx, dept, ud.IsActive)
}

// ToggleActive opens or closes the department.
func (svc *Service) ToggleActive(ctx context.Context, dept Department) (Department, error) {
	active := !dept.IsActive
	dept.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateDepartment(ctx, dept, &active)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteDepartmentsByID(ctx, ids...)
}
