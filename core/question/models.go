package question

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vitccacm/recruitment-portal/core"
)

// Question types.
const (
	TypeText           = "text"
	TypeSingleChoice   = "single_choice"
	TypeMultipleChoice = "multiple_choice"
	TypeFileUpload     = "file_upload"
	TypeLink           = "link"
)

var Types = []string{TypeText, TypeSingleChoice, TypeMultipleChoice, TypeFileUpload, TypeLink}

const defaultFileMaxSize = 5120 // KB

// Question is a department-configured application form field.
type Question struct {
	ID           string   `json:"id"`
	DepartmentID string   `json:"department_id"`
	Text         string   `json:"text"`
	Type         string   `json:"type"`
	Options      []string `json:"options,omitempty"` // choice types only
	IsRequired   bool     `json:"is_required"`

	// file_upload only
	FileMaxSize       int    `json:"file_max_size,omitempty"` // KB
	AllowedExtensions string `json:"allowed_extensions,omitempty"`

	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (q *Question) IsChoice() bool {
	return q.Type == TypeSingleChoice || q.Type == TypeMultipleChoice
}

func (q *Question) AllowedExtensionList() []string {
	return core.SplitCSV(strings.ToLower(q.AllowedExtensions))
}

func (q *Question) hasOption(value string) bool {
	for _, opt := range q.Options {
		if opt == value {
			return true
		}
	}
	return false
}

// Answer is a student's response to a Question on one application.
type Answer struct {
	ID            string    `json:"id"`
	QuestionID    string    `json:"question_id"`
	ApplicationID string    `json:"application_id"`
	Response      string    `json:"response"` // choices joined with commas
	FilePath      string    `json:"file_path,omitempty"`
	CreatedAt     time.Time `json:"created_at"` // UTC
}

type NewQuestion struct {
	DepartmentID      string   `json:"department_id" validate:"required"`
	Text              string   `json:"text" validate:"required"`
	Type              string   `json:"type" validate:"required,oneof=text single_choice multiple_choice file_upload link"`
	Options           []string `json:"options"`
	IsRequired        bool     `json:"is_required"`
	FileMaxSize       int      `json:"file_max_size" validate:"omitempty,min=1"`
	AllowedExtensions string   `json:"allowed_extensions"`
	Order             int      `json:"order"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Text = core.CleanString(nq.Text)
	for i, opt := range nq.Options {
		nq.Options[i] = core.CleanString(opt)
	}

	if err := validate.Struct(nq); err != nil {
		return err
	}
	return validateOptions(nq.Type, nq.Options)
}

type UpdateQuestion struct {
	Text              string   `json:"text"`
	Type              string   `json:"type" validate:"omitempty,oneof=text single_choice multiple_choice file_upload link"`
	Options           []string `json:"options"`
	IsRequired        *bool    `json:"is_required"`
	FileMaxSize       *int     `json:"file_max_size" validate:"omitempty,min=1"`
	AllowedExtensions *string  `json:"allowed_extensions"`
	Order             *int     `json:"order"`
}

func (uq *UpdateQuestion) Validate(orig Question, validate *validator.Validate) error {
	text := core.CleanString(uq.Text)
	if text != "" {
		uq.Text = text
	} else {
		uq.Text = orig.Text
	}
	if uq.Type == "" {
		uq.Type = orig.Type
	}

	if err := validate.Struct(uq); err != nil {
		return err
	}

	opts := orig.Options
	if uq.Options != nil {
		opts = uq.Options
	}
	return validateOptions(uq.Type, opts)
}

// validateOptions requires at least one option on choice questions.
func validateOptions(qtype string, options []string) error {
	if (qtype == TypeSingleChoice || qtype == TypeMultipleChoice) && len(options) == 0 {
		return core.NewValidationError(nil, core.FieldError{
			Field: "options", Error: "choice questions require at least one option",
		})
	}
	return nil
}

type QueryFilter struct {
	DepartmentID string `query:"department_id"`
}

// AnswerInput is a student's raw response to one question, as read off
// the submitted form.
type AnswerInput struct {
	Values []string // text, link or selected choices
	File   *FileMeta
}

// FileMeta describes an uploaded file before it is stored.
type FileMeta struct {
	Filename string
	Size     int64 // bytes
}

// ValidateAnswers checks submitted answers against the department's
// question configuration. Field errors are keyed by question ID.
func ValidateAnswers(questions []Question, inputs map[string]AnswerInput) error {
	var fieldErrs []core.FieldError
	reportErr := func(q Question, text string) {
		fieldErrs = append(fieldErrs, core.FieldError{Field: q.ID, Error: text})
	}

	for _, q := range questions {
		in, answered := inputs[q.ID]
		if q.Type == TypeFileUpload {
			answered = answered && in.File != nil
		} else {
			answered = answered && len(in.Values) > 0 && in.Values[0] != ""
		}
		if !answered {
			if q.IsRequired {
				reportErr(q, "this question is required")
			}
			continue
		}

		switch q.Type {
		case TypeSingleChoice:
			if len(in.Values) != 1 {
				reportErr(q, "select exactly one option")
			} else if !q.hasOption(in.Values[0]) {
				reportErr(q, "invalid option")
			}
		case TypeMultipleChoice:
			for _, v := range in.Values {
				if !q.hasOption(v) {
					reportErr(q, "invalid option")
					break
				}
			}
		case TypeLink:
			u, err := url.ParseRequestURI(in.Values[0])
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				reportErr(q, "enter a valid http(s) link")
			}
		case TypeFileUpload:
			validateFile(q, *in.File, reportErr)
		}
	}

	if fieldErrs != nil {
		return core.NewValidationError(nil, fieldErrs...)
	}
	return nil
}

func validateFile(q Question, file FileMeta, reportErr func(Question, string)) {
	maxSize := q.FileMaxSize
	if maxSize == 0 {
		maxSize = defaultFileMaxSize
	}
	if file.Size > int64(maxSize)*1024 {
		reportErr(q, fmt.Sprintf("file exceeds the %d KB limit", maxSize))
		return
	}
	if allowed := q.AllowedExtensionList(); len(allowed) > 0 {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Filename)), ".")
		for _, a := range allowed {
			if ext == strings.TrimPrefix(a, ".") {
				return
			}
		}
		reportErr(q, fmt.Sprintf("allowed file types: %s", q.AllowedExtensions))
	}
}
