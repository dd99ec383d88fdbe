package department

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vitccacm/recruitment-portal/core"
)

// Recruitment statuses, derived from the recruitment window.
const (
	StatusUpcoming = "upcoming"
	StatusOpen     = "open"
	StatusEnded    = "ended"
	StatusClosed   = "closed"
)

// Department is a recruiting unit of the organization.
type Department struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ShortDescription string    `json:"short_description"`
	Description      string    `json:"description"`
	Image            string    `json:"image,omitempty"`
	Positions        string    `json:"positions"` // comma-separated
	Requirements     string    `json:"requirements"`
	IsActive         bool      `json:"is_active"`
	RecruitmentStart time.Time `json:"recruitment_start"` // zero: opens immediately
	RecruitmentEnd   time.Time `json:"recruitment_end"`   // zero: no deadline
	CreatedAt        time.Time `json:"created_at"`        // UTC
	UpdatedAt        time.Time `json:"updated_at"`        // UTC
}

// RecruitmentStatus derives the department's recruitment state at `at`
// (default: now).
func (d *Department) RecruitmentStatus(at ...time.Time) string {
	now := time.Now().UTC()
	if len(at) > 0 {
		now = at[0].UTC()
	}

	if !d.RecruitmentStart.IsZero() && now.Before(d.RecruitmentStart) {
		return StatusUpcoming
	}
	if !d.RecruitmentEnd.IsZero() && now.After(d.RecruitmentEnd) {
		return StatusEnded
	}
	if d.IsActive {
		return StatusOpen
	}
	return StatusClosed
}

// IsOpen reports whether the department currently accepts applications.
func (d *Department) IsOpen(at ...time.Time) bool {
	return d.RecruitmentStatus(at...) == StatusOpen
}

// PositionList splits the comma-separated open positions.
func (d *Department) PositionList() []string {
	return core.SplitCSV(d.Positions)
}

type NewDepartment struct {
	Name             string    `json:"name" validate:"required"`
	ShortDescription string    `json:"short_description"`
	Description      string    `json:"description"`
	Image            string    `json:"image"`
	Positions        string    `json:"positions"`
	Requirements     string    `json:"requirements"`
	RecruitmentStart time.Time `json:"recruitment_start"`
	RecruitmentEnd   time.Time `json:"recruitment_end"`
}

func (nd *NewDepartment) Validate(validate *validator.Validate, svc *Service) error {
	nd.Name = core.CleanString(nd.Name)
	nd.ShortDescription = core.CleanString(nd.ShortDescription)

	if err := validate.Struct(nd); err != nil {
		return err
	}
	if err := validateRecruitmentWindow(nd.RecruitmentStart, nd.RecruitmentEnd); err != nil {
		return err
	}
	return svc.CheckUniqueness(nd.Name)
}

// UpdateDepartment defines what information may be provided to modify an
// existing Department. Department admins may not change Name or IsActive;
// the API enforces that.
type UpdateDepartment struct {
	Name             string     `json:"name"`
	ShortDescription *string    `json:"short_description"`
	Description      *string    `json:"description"`
	Image            *string    `json:"image"`
	Positions        *string    `json:"positions"`
	Requirements     *string    `json:"requirements"`
	IsActive         *bool      `json:"is_active"`
	RecruitmentStart *time.Time `json:"recruitment_start"`
	RecruitmentEnd   *time.Time `json:"recruitment_end"`
}

func (ud *UpdateDepartment) Validate(orig Department, validate *validator.Validate, svc *Service) error {
	name := core.CleanString(ud.Name)
	if name != "" {
		ud.Name = name
	} else {
		ud.Name = orig.Name
	}

	if err := validate.Struct(ud); err != nil {
		return err
	}

	start, end := orig.RecruitmentStart, orig.RecruitmentEnd
	if ud.RecruitmentStart != nil {
		start = *ud.RecruitmentStart
	}
	if ud.RecruitmentEnd != nil {
		end = *ud.RecruitmentEnd
	}
	if err := validateRecruitmentWindow(start, end); err != nil {
		return err
	}
	return svc.CheckUniqueness(ud.Name, orig)
}

func validateRecruitmentWindow(start, end time.Time) error {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "recruitment_end", Error: "recruitment must end after it starts",
		})
	}
	return nil
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single Department; fields are tried in order.
type GetFilter struct {
	ID   string
	Name string
}
