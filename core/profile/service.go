package profile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core"
)

var (
	ErrNotFound   = errors.New("profile field not found")
	ErrNameExists = errors.New("a profile field with this name already exists")
)

type (
	Repository interface {
		CheckFieldNameUniqueness(ctx context.Context, name string) error
		CreateField(ctx context.Context, f Field) (Field, error)
		GetField(ctx context.Context, id string) (Field, error)
		// QueryFields returns all fields ordered by (Order, CreatedAt).
		QueryFields(ctx context.Context) ([]Field, error)
		UpdateField(ctx context.Context, f Field, isRequired, isEnabled *bool) (Field, error)
		DeleteFieldsByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CheckUniqueness wraps repository uniqueness errors as field errors.
func (svc *Service) CheckUniqueness(name string) error {
	if err := svc.repo.CheckFieldNameUniqueness(context.Background(), name); err != nil {
		if errors.Cause(err) == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "field_name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nf NewField) (Field, error) {
	now := time.Now().UTC()
	f := Field{
		ID:         uuid.New().String(),
		FieldName:  nf.FieldName,
		Label:      nf.Label,
		Type:       nf.Type,
		Options:    nf.Options,
		IsRequired: nf.IsRequired,
		IsEnabled:  true,
		Order:      nf.Order,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateField(ctx, f)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Field, error) {
	return svc.repo.GetField(ctx, id)
}

func (svc *Service) Query(ctx context.Context) ([]Field, error) {
	return svc.repo.QueryFields(ctx)
}

// QueryEnabled returns the fields students actually see.
func (svc *Service) QueryEnabled(ctx context.Context) ([]Field, error) {
	fields, err := svc.repo.QueryFields(ctx)
	if err != nil {
		return nil, err
	}

	enabled := fields[:0]
	for _, f := range fields {
		if f.IsEnabled {
			enabled = append(enabled, f)
		}
	}
	return enabled, nil
}

func (svc *Service) Update(ctx context.Context, orig Field, uf UpdateField) (Field, error) {
	f := orig
	f.Label = uf.Label
	f.Type = uf.Type
	if uf.Options != nil {
		f.Options = uf.Options
	}
	if uf.Order != nil {
		f.Order = *uf.Order
	}
	f.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateField(ctx, f, uf.IsRequired, uf.IsEnabled)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteFieldsByID(ctx, ids...)
}
