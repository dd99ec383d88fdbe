package round

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vitccacm/recruitment-portal/core"
)

// Candidate statuses within a round.
const (
	CandidatePending     = "pending"
	CandidateSelected    = "selected"
	CandidateNotSelected = "not_selected"

	// StatusAwaitingResults is what students see before a department
	// releases a round's results.
	StatusAwaitingResults = "awaiting_results"
)

// Round is a global stage of the recruitment pipeline. Rounds chain
// through PrerequisiteID: only applications selected in the prerequisite
// are eligible for this round.
type Round struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Description            string    `json:"description"`
	PrerequisiteID         string    `json:"prerequisite_id,omitempty"`
	IsVisibleBeforeResults bool      `json:"is_visible_before_results"`
	Order                  int       `json:"order"`
	CreatedAt              time.Time `json:"created_at"` // UTC
	UpdatedAt              time.Time `json:"updated_at"` // UTC
}

// DepartmentState tracks one department's handling of one round.
type DepartmentState struct {
	RoundID         string    `json:"round_id"`
	DepartmentID    string    `json:"department_id"`
	IsLocked        bool      `json:"is_locked"`
	ResultsReleased bool      `json:"results_released"`
	NotesPublic     bool      `json:"notes_public"`
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// Candidate is one application's standing in one round.
type Candidate struct {
	ID            string    `json:"id"`
	RoundID       string    `json:"round_id"`
	ApplicationID string    `json:"application_id"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

type NewRound struct {
	Name                   string `json:"name" validate:"required"`
	Description            string `json:"description"`
	PrerequisiteID         string `json:"prerequisite_id"`
	IsVisibleBeforeResults bool   `json:"is_visible_before_results"`
	Order                  int    `json:"order"`
}

func (nr *NewRound) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	return validate.Struct(nr)
}

type UpdateRound struct {
	Name                   string  `json:"name"`
	Description            *string `json:"description"`
	PrerequisiteID         *string `json:"prerequisite_id"`
	IsVisibleBeforeResults *bool   `json:"is_visible_before_results"`
	Order                  *int    `json:"order"`
}

func (ur *UpdateRound) Validate(orig Round, validate *validator.Validate) error {
	name := core.CleanString(ur.Name)
	if name != "" {
		ur.Name = name
	} else {
		ur.Name = orig.Name
	}
	return validate.Struct(ur)
}

// StateUpdate toggles one department's switches on a round.
type StateUpdate struct {
	IsLocked        *bool `json:"is_locked"`
	ResultsReleased *bool `json:"results_released"`
	NotesPublic     *bool `json:"notes_public"`
}

// UpdateNotes carries a candidate's note text.
type UpdateNotes struct {
	Notes string `json:"notes"`
}

// CandidateView is an eligible application with its standing in a round,
// as shown to department admins.
type CandidateView struct {
	ApplicationID string    `json:"application_id"`
	StudentID     string    `json:"student_id"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes"`
	AppliedAt     time.Time `json:"applied_at"`
}

// Stats summarizes a (round, department) pair for admin listings.
type Stats struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Selected    int `json:"selected"`
	NotSelected int `json:"not_selected"`
}

// ProgressEntry is one visible round in a student's progress view.
type ProgressEntry struct {
	Round           Round  `json:"round"`
	Status          string `json:"status"`
	Notes           string `json:"notes,omitempty"`
	ResultsReleased bool   `json:"results_released"`
}

type StateFilter struct {
	RoundID      string
	DepartmentID string
}

type CandidateFilter struct {
	RoundID       string
	ApplicationID string
	Status        string
}
