package application

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vitccacm/recruitment-portal/core"
)

// Application statuses.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

var Statuses = []string{StatusPending, StatusAccepted, StatusRejected}

// Application is a student's submission to one department. A student
// may hold at most one application per department.
type Application struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"student_id"`
	DepartmentID string    `json:"department_id"`
	Position     string    `json:"position,omitempty"`
	CoverLetter  string    `json:"cover_letter,omitempty"`
	Status       string    `json:"status"`
	AppliedAt    time.Time `json:"applied_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

type NewApplication struct {
	DepartmentID string `json:"department_id" form:"department_id" validate:"required"`
	Position     string `json:"position" form:"position"`
	CoverLetter  string `json:"cover_letter" form:"cover_letter"`
}

func (na *NewApplication) Validate(validate *validator.Validate) error {
	na.Position = core.CleanString(na.Position)
	na.CoverLetter = core.CleanString(na.CoverLetter)
	return validate.Struct(na)
}

type UpdateStatus struct {
	Status string `json:"status" validate:"required,oneof=pending accepted rejected"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.Status = core.CleanString(us.Status, true /* lower */)
	return validate.Struct(us)
}

type QueryFilter struct {
	StudentID    string    `query:"student_id"`
	DepartmentID string    `query:"department_id"`
	Status       string    `query:"status"`
	AppliedFrom  time.Time `query:"applied_from"`
	AppliedTo    time.Time `query:"applied_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.DepartmentID == "" && qf.Status == "" &&
		qf.AppliedFrom.IsZero() && qf.AppliedTo.IsZero()
}

// GetFilter selects a single Application: by ID, or by the unique
// (StudentID, DepartmentID) pair.
type GetFilter struct {
	ID           string
	StudentID    string
	DepartmentID string
}

// Stats summarizes applications for dashboards.
type Stats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}
