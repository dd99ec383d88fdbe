package round

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core"
	"github.com/vitccacm/recruitment-portal/core/application"
)

var (
	// errors
	ErrNotFound          = errors.New("round not found")
	ErrStateNotFound     = errors.New("round state not found for this department")
	ErrLocked            = errors.New("this round is locked for your department")
	ErrHasDependents     = errors.New("other rounds depend on this round")
	ErrPrereqNotFound    = errors.New("prerequisite round not found")
	ErrPrereqCycle       = errors.New("round prerequisites cannot form a cycle")
	ErrNotEligible       = errors.New("this application is not eligible for this round")
	ErrWrongDepartment   = errors.New("this application belongs to another department")
	ErrCandidateNotFound = errors.New("candidate entry not found")
)

type (
	Repository interface {
		CreateRound(ctx context.Context, rnd Round) (Round, error)
		GetRound(ctx context.Context, id string) (Round, error)
		// QueryRounds returns all rounds ordered by (Order, CreatedAt).
		QueryRounds(ctx context.Context) ([]Round, error)
		UpdateRound(ctx context.Context, rnd Round) (Round, error)
		DeleteRoundsByID(ctx context.Context, ids ...string) error
		// QueryDependentRounds returns rounds having the given round as prerequisite.
		QueryDependentRounds(ctx context.Context, roundID string) ([]Round, error)

		// CreateDepartmentStates skips pairs that already exist.
		CreateDepartmentStates(ctx context.Context, states ...DepartmentState) error
		GetDepartmentState(ctx context.Context, roundID, departmentID string) (DepartmentState, error)
		QueryDepartmentStates(ctx context.Context, filter *StateFilter) ([]DepartmentState, error)
		UpdateDepartmentState(ctx context.Context, state DepartmentState) (DepartmentState, error)
		DeleteDepartmentStatesByRound(ctx context.Context, roundIDs ...string) error

		GetCandidate(ctx context.Context, roundID, applicationID string) (Candidate, error)
		QueryCandidates(ctx context.Context, filter *CandidateFilter) ([]Candidate, error)
		UpsertCandidate(ctx context.Context, cand Candidate) (Candidate, error)
	}

	// DepartmentLister yields all department IDs; the department
	// repository satisfies it.
	DepartmentLister interface {
		ListDepartmentIDs(ctx context.Context) ([]string, error)
	}

	// ApplicationDirectory is the slice of the application repository the
	// engine needs; application.Repository satisfies it.
	ApplicationDirectory interface {
		GetApplication(ctx context.Context, filter application.GetFilter) (application.Application, error)
		QueryApplications(ctx context.Context, filter *application.QueryFilter, ordering []core.DBOrdering) ([]application.Application, error)
	}

	Service struct {
		repo  Repository
		depts DepartmentLister
		apps  ApplicationDirectory
	}
)

func NewService(repo Repository, depts DepartmentLister, apps ApplicationDirectory) *Service {
	return &Service{repo: repo, depts: depts, apps: apps}
}

// Rounds

func (svc *Service) Create(ctx context.Context, nr NewRound) (Round, error) {
	if nr.PrerequisiteID != "" {
		if _, err := svc.repo.GetRound(ctx, nr.PrerequisiteID); err != nil {
			if errors.Cause(err) == ErrNotFound {
				return Round{}, core.NewValidationError(ErrPrereqNotFound,
					core.FieldError{Field: "prerequisite_id", Error: ErrPrereqNotFound.Error()})
			}
			return Round{}, err
		}
	}

	now := time.Now().UTC()
	rnd := Round{
		ID:                     uuid.New().String(),
		Name:                   nr.Name,
		Description:            nr.Description,
		PrerequisiteID:         nr.PrerequisiteID,
		IsVisibleBeforeResults: nr.IsVisibleBeforeResults,
		Order:                  nr.Order,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	rnd, err := svc.repo.CreateRound(ctx, rnd)
	if err != nil {
		return Round{}, err
	}
	return rnd, svc.initRoundStates(ctx, rnd.ID)
}

func (svc *Service) Query(ctx context.Context) ([]Round, error) {
	return svc.repo.QueryRounds(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Round, error) {
	return svc.repo.GetRound(ctx, id)
}

func (svc *Service) Update(ctx context.Context, orig Round, ur UpdateRound) (Round, error) {
	rnd := orig
	rnd.Name = ur.Name
	if ur.Description != nil {
		rnd.Description = *ur.Description
	}
	if ur.PrerequisiteID != nil && *ur.PrerequisiteID != orig.PrerequisiteID {
		if err := svc.checkPrerequisite(ctx, orig.ID, *ur.PrerequisiteID); err != nil {
			return Round{}, err
		}
		rnd.PrerequisiteID = *ur.PrerequisiteID
	}
	if ur.IsVisibleBeforeResults != nil {
		rnd.IsVisibleBeforeResults = *ur.IsVisibleBeforeResults
	}
	if ur.Order != nil {
		rnd.Order = *ur.Order
	}
	rnd.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateRound(ctx, rnd)
}

// checkPrerequisite verifies the prerequisite exists and that following
// the prerequisite chain from it never comes back to roundID.
func (svc *Service) checkPrerequisite(ctx context.Context, roundID, prereqID string) error {
	cycleErr := func() error {
		return core.NewValidationError(ErrPrereqCycle,
			core.FieldError{Field: "prerequisite_id", Error: ErrPrereqCycle.Error()})
	}

	seen := map[string]bool{roundID: true}
	for id := prereqID; id != ""; {
		if seen[id] {
			return cycleErr()
		}
		seen[id] = true

		rnd, err := svc.repo.GetRound(ctx, id)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				return core.NewValidationError(ErrPrereqNotFound,
					core.FieldError{Field: "prerequisite_id", Error: ErrPrereqNotFound.Error()})
			}
			return err
		}
		id = rnd.PrerequisiteID
	}
	return nil
}

// Delete removes rounds along with their department states. A round
// other rounds depend on cannot be deleted.
func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		dependents, err := svc.repo.QueryDependentRounds(ctx, id)
		if err != nil {
			return err
		}
		if len(dependents) > 0 {
			return core.NewValidationError(ErrHasDependents)
		}
	}
	if err := svc.repo.DeleteDepartmentStatesByRound(ctx, ids...); err != nil {
		return err
	}
	return svc.repo.DeleteRoundsByID(ctx, ids...)
}

// Department states

// InitDepartmentStates backfills states for a new department across all
// rounds. It implements department.StateInitializer.
func (svc *Service) InitDepartmentStates(ctx context.Context, departmentID string) error {
	rounds, err := svc.repo.QueryRounds(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	states := make([]DepartmentState, 0, len(rounds))
	for _, rnd := range rounds {
		states = append(states, DepartmentState{RoundID: rnd.ID, DepartmentID: departmentID, UpdatedAt: now})
	}
	return svc.repo.CreateDepartmentStates(ctx, states...)
}

// initRoundStates backfills states for a new round across all departments.
func (svc *Service) initRoundStates(ctx context.Context, roundID string) error {
	deptIDs, err := svc.depts.ListDepartmentIDs(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	states := make([]DepartmentState, 0, len(deptIDs))
	for _, deptID := range deptIDs {
		states = append(states, DepartmentState{RoundID: roundID, DepartmentID: deptID, UpdatedAt: now})
	}
	return svc.repo.CreateDepartmentStates(ctx, states...)
}

// GetState returns the (round, department) state, creating the default
// one on the fly for pairs predating the backfill.
func (svc *Service) GetState(ctx context.Context, roundID, departmentID string) (DepartmentState, error) {
	state, err := svc.repo.GetDepartmentState(ctx, roundID, departmentID)
	if errors.Cause(err) == ErrStateNotFound {
		state = DepartmentState{RoundID: roundID, DepartmentID: departmentID, UpdatedAt: time.Now().UTC()}
		if err = svc.repo.CreateDepartmentStates(ctx, state); err != nil {
			return DepartmentState{}, err
		}
		return state, nil
	}
	return state, err
}

func (svc *Service) QueryStates(ctx context.Context, filter *StateFilter) ([]DepartmentState, error) {
	return svc.repo.QueryDepartmentStates(ctx, filter)
}

// UpdateState flips a department's switches on a round.
func (svc *Service) UpdateState(ctx context.Context, roundID, departmentID string, su StateUpdate) (DepartmentState, error) {
	state, err := svc.GetState(ctx, roundID, departmentID)
	if err != nil {
		return DepartmentState{}, err
	}

	if su.IsLocked != nil {
		state.IsLocked = *su.IsLocked
	}
	if su.ResultsReleased != nil {
		state.ResultsReleased = *su.ResultsReleased
	}
	if su.NotesPublic != nil {
		state.NotesPublic = *su.NotesPublic
	}
	state.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateDepartmentState(ctx, state)
}

// Candidates

// isEligible reports whether the application may enter the round: either
// the round has no prerequisite, or the application was selected in it.
func (svc *Service) isEligible(ctx context.Context, rnd Round, applicationID string) (bool, error) {
	if rnd.PrerequisiteID == "" {
		return true, nil
	}
	cand, err := svc.repo.GetCandidate(ctx, rnd.PrerequisiteID, applicationID)
	if err != nil {
		if errors.Cause(err) == ErrCandidateNotFound {
			return false, nil
		}
		return false, err
	}
	return cand.Status == CandidateSelected, nil
}

// EligibleCandidates lists a department's applications that may enter
// the round, along with their current standing.
func (svc *Service) EligibleCandidates(ctx context.Context, rnd Round, departmentID string) ([]CandidateView, error) {
	apps, err := svc.apps.QueryApplications(
		ctx,
		&application.QueryFilter{DepartmentID: departmentID},
		[]core.DBOrdering{{Field: "applied_at", Ascending: true}},
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying department applications")
	}

	views := make([]CandidateView, 0, len(apps))
	for _, app := range apps {
		ok, err := svc.isEligible(ctx, rnd, app.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		view := CandidateView{
			ApplicationID: app.ID,
			StudentID:     app.StudentID,
			Status:        CandidatePending,
			AppliedAt:     app.AppliedAt,
		}
		if cand, err := svc.repo.GetCandidate(ctx, rnd.ID, app.ID); err == nil {
			view.Status = cand.Status
			view.Notes = cand.Notes
		} else if errors.Cause(err) != ErrCandidateNotFound {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// DepartmentStats summarizes a round's candidates for one department.
func (svc *Service) DepartmentStats(ctx context.Context, rnd Round, departmentID string) (Stats, error) {
	views, err := svc.EligibleCandidates(ctx, rnd, departmentID)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(views)}
	for _, v := range views {
		switch v.Status {
		case CandidateSelected:
			stats.Selected++
		case CandidateNotSelected:
			stats.NotSelected++
		default:
			stats.Pending++
		}
	}
	return stats, nil
}

// guardCandidateWrite enforces the lock and department scoping shared by
// candidate mutations.
func (svc *Service) guardCandidateWrite(ctx context.Context, rnd Round, departmentID, applicationID string) (application.Application, error) {
	state, err := svc.GetState(ctx, rnd.ID, departmentID)
	if err != nil {
		return application.Application{}, err
	}
	if state.IsLocked {
		return application.Application{}, core.NewValidationError(ErrLocked)
	}

	app, err := svc.apps.GetApplication(ctx, application.GetFilter{ID: applicationID})
	if err != nil {
		if errors.Cause(err) == application.ErrNotFound {
			return application.Application{}, core.NewValidationError(err)
		}
		return application.Application{}, errors.Wrap(err, "finding application")
	}
	if app.DepartmentID != departmentID {
		return application.Application{}, core.NewValidationError(ErrWrongDepartment)
	}
	return app, nil
}

// ToggleCandidate flips an application between selected and not
// selected, creating its entry as selected on first toggle.
func (svc *Service) ToggleCandidate(ctx context.Context, rnd Round, departmentID, applicationID string) (Candidate, error) {
	app, err := svc.guardCandidateWrite(ctx, rnd, departmentID, applicationID)
	if err != nil {
		return Candidate{}, err
	}

	eligible, err := svc.isEligible(ctx, rnd, app.ID)
	if err != nil {
		return Candidate{}, err
	}
	if !eligible {
		return Candidate{}, core.NewValidationError(ErrNotEligible)
	}

	cand, err := svc.repo.GetCandidate(ctx, rnd.ID, app.ID)
	switch {
	case err == nil:
		if cand.Status == CandidateSelected {
			cand.Status = CandidateNotSelected
		} else {
			cand.Status = CandidateSelected
		}
	case errors.Cause(err) == ErrCandidateNotFound:
		cand = Candidate{
			ID:            uuid.New().String(),
			RoundID:       rnd.ID,
			ApplicationID: app.ID,
			Status:        CandidateSelected,
		}
	default:
		return Candidate{}, err
	}

	cand.UpdatedAt = time.Now().UTC()
	return svc.repo.UpsertCandidate(ctx, cand)
}

// SetCandidateNotes records free-text notes on a candidate, creating the
// entry as pending if need be.
func (svc *Service) SetCandidateNotes(ctx context.Context, rnd Round, departmentID, applicationID, notes string) (Candidate, error) {
	app, err := svc.guardCandidateWrite(ctx, rnd, departmentID, applicationID)
	if err != nil {
		return Candidate{}, err
	}

	cand, err := svc.repo.GetCandidate(ctx, rnd.ID, app.ID)
	switch {
	case err == nil:
	case errors.Cause(err) == ErrCandidateNotFound:
		cand = Candidate{
			ID:            uuid.New().String(),
			RoundID:       rnd.ID,
			ApplicationID: app.ID,
			Status:        CandidatePending,
		}
	default:
		return Candidate{}, err
	}

	cand.Notes = notes
	cand.UpdatedAt = time.Now().UTC()
	return svc.repo.UpsertCandidate(ctx, cand)
}

// StudentProgress builds the rounds a student sees for one application.
// A round appears only once visible for the department; statuses read
// StatusAwaitingResults until results are released.
func (svc *Service) StudentProgress(ctx context.Context, app application.Application) ([]ProgressEntry, error) {
	rounds, err := svc.repo.QueryRounds(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]ProgressEntry, 0, len(rounds))
	for _, rnd := range rounds {
		state, err := svc.GetState(ctx, rnd.ID, app.DepartmentID)
		if err != nil {
			return nil, err
		}
		if !rnd.IsVisibleBeforeResults && !state.ResultsReleased {
			continue
		}

		entry := ProgressEntry{
			Round:           rnd,
			Status:          StatusAwaitingResults,
			ResultsReleased: state.ResultsReleased,
		}
		if state.ResultsReleased {
			entry.Status = CandidatePending
			if cand, err := svc.repo.GetCandidate(ctx, rnd.ID, app.ID); err == nil {
				entry.Status = cand.Status
				if state.NotesPublic {
					entry.Notes = cand.Notes
				}
			} else if errors.Cause(err) != ErrCandidateNotFound {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
