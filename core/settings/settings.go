// Package settings holds the global key/value site settings, notably
// the signup gates checked by the auth endpoints.
package settings

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core"
)

// Known setting keys.
const (
	KeyAllowSignup    = "allow_signup"
	KeyAllowGoogle    = "allow_google"
	KeyAllowEmail     = "allow_email"
	KeyAllowedDomains = "allowed_domains"
)

// Defaults apply until a key is explicitly set.
var Defaults = map[string]string{
	KeyAllowSignup:    "true",
	KeyAllowGoogle:    "true",
	KeyAllowEmail:     "true",
	KeyAllowedDomains: "",
}

var (
	ErrNotFound   = errors.New("setting not found")
	errUnknownKey = errors.New("unknown setting")
)

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type (
	Repository interface {
		GetSetting(ctx context.Context, key string) (Setting, error)
		QuerySettings(ctx context.Context) ([]Setting, error)
		UpsertSetting(ctx context.Context, s Setting) (Setting, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// All returns every known setting, defaults overlaid with stored values.
func (svc *Service) All(ctx context.Context) (map[string]string, error) {
	values := make(map[string]string, len(Defaults))
	for k, v := range Defaults {
		values[k] = v
	}

	stored, err := svc.repo.QuerySettings(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range stored {
		if _, known := Defaults[s.Key]; known {
			values[s.Key] = s.Value
		}
	}
	return values, nil
}

func (svc *Service) Get(ctx context.Context, key string) (string, error) {
	if _, known := Defaults[key]; !known {
		return "", core.NewValidationError(errUnknownKey, core.FieldError{Field: key, Error: errUnknownKey.Error()})
	}
	s, err := svc.repo.GetSetting(ctx, key)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Defaults[key], nil
		}
		return "", err
	}
	return s.Value, nil
}

// Update stores the provided keys; unknown keys are rejected.
func (svc *Service) Update(ctx context.Context, values map[string]string) error {
	for key := range values {
		if _, known := Defaults[key]; !known {
			return core.NewValidationError(errUnknownKey, core.FieldError{Field: key, Error: errUnknownKey.Error()})
		}
	}

	now := time.Now().UTC()
	for key, value := range values {
		if _, err := svc.repo.UpsertSetting(ctx, Setting{Key: key, Value: strings.TrimSpace(value), UpdatedAt: now}); err != nil {
			return err
		}
	}
	return nil
}

func (svc *Service) getBool(ctx context.Context, key string) (bool, error) {
	v, err := svc.Get(ctx, key)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, nil
	}
	return b, nil
}

// AllowSignup gates all student self-signup.
func (svc *Service) AllowSignup(ctx context.Context) (bool, error) {
	return svc.getBool(ctx, KeyAllowSignup)
}

// AllowGoogle gates signing in through the identity provider.
func (svc *Service) AllowGoogle(ctx context.Context) (bool, error) {
	return svc.getBool(ctx, KeyAllowGoogle)
}

// AllowEmail gates email + password signup.
func (svc *Service) AllowEmail(ctx context.Context) (bool, error) {
	return svc.getBool(ctx, KeyAllowEmail)
}

// IsEmailDomainAllowed checks the address against the allowed_domains
// list; an empty list allows every domain.
func (svc *Service) IsEmailDomainAllowed(ctx context.Context, email string) (bool, error) {
	v, err := svc.Get(ctx, KeyAllowedDomains)
	if err != nil {
		return false, err
	}
	domains := core.SplitCSV(strings.ToLower(v))
	if len(domains) == 0 {
		return true, nil
	}

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false, nil
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range domains {
		if domain == strings.TrimPrefix(d, "@") {
			return true, nil
		}
	}
	return false, nil
}
