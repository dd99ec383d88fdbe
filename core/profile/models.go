// Package profile manages the admin-configured student profile fields
// and validates the answers students file under Account.Extra.
package profile

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vitccacm/recruitment-portal/core"
)

// Field types.
const (
	TypeText   = "text"
	TypeSelect = "select"
	TypeNumber = "number"
)

var Types = []string{TypeText, TypeSelect, TypeNumber}

// Field is one admin-configured profile field.
type Field struct {
	ID         string   `json:"id"`
	FieldName  string   `json:"field_name"` // key under Account.Extra
	Label      string   `json:"label"`
	Type       string   `json:"type"`
	Options    []string `json:"options,omitempty"` // select only
	IsRequired bool     `json:"is_required"`
	IsEnabled  bool     `json:"is_enabled"`
	Order      int      `json:"order"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (f *Field) hasOption(value string) bool {
	for _, opt := range f.Options {
		if opt == value {
			return true
		}
	}
	return false
}

type NewField struct {
	FieldName  string   `json:"field_name" validate:"required,alphanum_"`
	Label      string   `json:"label" validate:"required"`
	Type       string   `json:"type" validate:"required,oneof=text select number"`
	Options    []string `json:"options"`
	IsRequired bool     `json:"is_required"`
	Order      int      `json:"order"`
}

func (nf *NewField) Validate(validate *validator.Validate, svc *Service) error {
	nf.FieldName = core.CleanString(nf.FieldName, true /* lower */)
	nf.Label = core.CleanString(nf.Label)

	if err := validate.Struct(nf); err != nil {
		return err
	}
	if err := validateFieldOptions(nf.Type, nf.Options); err != nil {
		return err
	}
	return svc.CheckUniqueness(nf.FieldName)
}

type UpdateField struct {
	Label      string   `json:"label"`
	Type       string   `json:"type" validate:"omitempty,oneof=text select number"`
	Options    []string `json:"options"`
	IsRequired *bool    `json:"is_required"`
	IsEnabled  *bool    `json:"is_enabled"`
	Order      *int     `json:"order"`
}

func (uf *UpdateField) Validate(orig Field, validate *validator.Validate) error {
	label := core.CleanString(uf.Label)
	if label != "" {
		uf.Label = label
	} else {
		uf.Label = orig.Label
	}
	if uf.Type == "" {
		uf.Type = orig.Type
	}

	if err := validate.Struct(uf); err != nil {
		return err
	}

	opts := orig.Options
	if uf.Options != nil {
		opts = uf.Options
	}
	return validateFieldOptions(uf.Type, opts)
}

func validateFieldOptions(ftype string, options []string) error {
	if ftype == TypeSelect && len(options) == 0 {
		return core.NewValidationError(nil, core.FieldError{
			Field: "options", Error: "select fields require at least one option",
		})
	}
	return nil
}

// ValidateAnswers checks a student's dynamic profile answers against the
// enabled fields. Field errors are keyed by field name.
func ValidateAnswers(fields []Field, answers map[string]string) error {
	var fieldErrs []core.FieldError
	reportErr := func(f Field, text string) {
		fieldErrs = append(fieldErrs, core.FieldError{Field: f.FieldName, Error: text})
	}

	for _, f := range fields {
		if !f.IsEnabled {
			continue
		}
		value, ok := answers[f.FieldName]
		if !ok || value == "" {
			if f.IsRequired {
				reportErr(f, "this field is required")
			}
			continue
		}

		switch f.Type {
		case TypeSelect:
			if !f.hasOption(value) {
				reportErr(f, "invalid option")
			}
		case TypeNumber:
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				reportErr(f, "enter a number")
			}
		}
	}

	if fieldErrs != nil {
		return core.NewValidationError(nil, fieldErrs...)
	}
	return nil
}
