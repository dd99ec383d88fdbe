package account

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core"
)

var (
	// errors
	ErrNotFound      = errors.New("account not found")
	ErrEmailExists   = errors.New("an account with this email already exists")
	ErrNoPassword    = errors.New("this account has no password; use the identity provider to sign in")
	ErrAccountClosed = errors.New("this account has been deactivated")
)

type Repository interface {
	CheckEmailUniqueness(ctx context.Context, email string, excluded ...Account) error
	CreateAccount(ctx context.Context, acct Account) (Account, error)
	GetAccount(ctx context.Context, filter GetFilter) (Account, error)
	// QueryAccounts applies AND operation on available QueryFilter fields.
	// QueryFilter.Search does a case-insensitive match on Account.Name, Account.Email or Account.RegNo.
	QueryAccounts(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Account, error)
	UpdateAccount(ctx context.Context, acct Account, isActive *bool) (Account, error)
	DeleteAccountsByID(ctx context.Context, ids ...string) error
}

type Service struct {
	repo    Repository
	mailSvc core.EmailService
	conf    *core.Config

	// tests flip this to send mails synchronously
	mailSync bool
}

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

// CheckUniqueness wraps repository uniqueness errors as field errors.
func (svc *Service) CheckUniqueness(email string, excl ...Account) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, excl...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// CreateAdmin creates a super admin or department admin account. When
// na.GeneratePassword is set and no password was provided, a random one
// is generated and the credentials are emailed to the new admin.
func (svc *Service) CreateAdmin(ctx context.Context, na NewAdmin) (Account, error) {
	pwd := na.Password
	generated := false
	if pwd == "" && na.GeneratePassword {
		pwd = RandomPassword()
		generated = true
	}

	now := time.Now().UTC()
	acct := Account{
		ID:           uuid.New().String(),
		Name:         na.Name,
		Email:        na.Email,
		Roles:        na.Roles,
		DepartmentID: na.DepartmentID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	acct.SetActive(true)
	if err := acct.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "setting password")
	}

	acct, err := svc.repo.CreateAccount(ctx, acct)
	if err != nil {
		return Account{}, err
	}

	if generated {
		svc.sendMail(func() { svc.sendAdminCredentialsMail(acct, pwd) })
	}
	return acct, nil
}

// RegisterStudent self-signs a student up with email and password.
func (svc *Service) RegisterStudent(ctx context.Context, ns NewStudent) (Account, error) {
	now := time.Now().UTC()
	acct := Account{
		ID:        uuid.New().String(),
		Email:     ns.Email,
		Roles:     []string{RoleStudent},
		CreatedAt: now,
		UpdatedAt: now,
	}
	acct.SetActive(true)
	if err := acct.SetPassword(ns.Password); err != nil {
		return Account{}, errors.Wrap(err, "setting password")
	}

	acct, err := svc.repo.CreateAccount(ctx, acct)
	if err != nil {
		return Account{}, err
	}

	svc.sendMail(func() { svc.sendWelcomeMail(acct) })
	return acct, nil
}

// GetByIdentity finds the account matching a verified external identity,
// by identity first and by email next. An existing account with the same
// email is linked to the identity. Returns ErrNotFound when the identity
// matches no account, so callers may gate creation on sign-up settings.
func (svc *Service) GetByIdentity(ctx context.Context, idn VerifiedIdentity) (Account, error) {
	if acct, err := svc.repo.GetAccount(ctx, GetFilter{GoogleID: idn.GoogleID}); err == nil {
		return acct, nil
	} else if errors.Cause(err) != ErrNotFound {
		return Account{}, err
	}

	email := core.CleanString(idn.Email, true /* lower */)
	if acct, err := svc.repo.GetAccount(ctx, GetFilter{Email: email}); err == nil {
		// link identity to the existing account
		acct.GoogleID = idn.GoogleID
		if acct.PhotoURL == "" {
			acct.PhotoURL = idn.PhotoURL
		}
		acct.UpdatedAt = time.Now().UTC()
		return svc.repo.UpdateAccount(ctx, acct, nil)
	} else if errors.Cause(err) != ErrNotFound {
		return Account{}, err
	}
	return Account{}, ErrNotFound
}

// CreateByIdentity creates a new active student account (without
// password) for a verified external identity.
func (svc *Service) CreateByIdentity(ctx context.Context, idn VerifiedIdentity) (Account, error) {
	email := core.CleanString(idn.Email, true /* lower */)

	now := time.Now().UTC()
	acct := Account{
		ID:        uuid.New().String(),
		Name:      idn.Name,
		Email:     email,
		Roles:     []string{RoleStudent},
		GoogleID:  idn.GoogleID,
		PhotoURL:  idn.PhotoURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	acct.SetActive(true)

	acct, err := svc.repo.CreateAccount(ctx, acct)
	if err != nil {
		return Account{}, err
	}
	svc.sendMail(func() { svc.sendWelcomeMail(acct) })
	return acct, nil
}

// Authenticate checks the credentials and refuses inactive accounts.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Account, error) {
	acct, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return Account{}, err
	}
	if acct.IsActive != nil && !*acct.IsActive {
		return Account{}, ErrAccountClosed
	}
	if len(acct.PasswordHash) == 0 {
		return Account{}, ErrNoPassword
	}
	if err = acct.CheckPassword(pwd); err != nil {
		return Account{}, ErrNotFound
	}
	return acct, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Account, error) {
	return svc.repo.QueryAccounts(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) Update(ctx context.Context, orig Account, ua UpdateAccount) (Account, error) {
	acct := orig
	acct.Name = ua.Name
	acct.Email = ua.Email
	if ua.Roles != nil {
		acct.Roles = ua.Roles
	}
	if ua.DepartmentID != nil {
		acct.DepartmentID = *ua.DepartmentID
	}
	acct.UpdatedAt = time.Now().UTC()
	if ua.Password != "" {
		if err := acct.SetPassword(ua.Password); err != nil {
			return Account{}, errors.Wrap(err, "setting password")
		}
	}
	return svc.repo.UpdateAccount(ctx, acct, ua.IsActive)
}

// UpdateProfile applies a student's own profile changes.
func (svc *Service) UpdateProfile(ctx context.Context, orig Account, pu ProfileUpdate) (Account, error) {
	acct := orig
	acct.Name = pu.Name
	acct.RegNo = pu.RegNo
	acct.Batch = pu.Batch
	acct.Phone = pu.Phone
	acct.Branch = pu.Branch
	if pu.Extra != nil {
		acct.Extra = pu.Extra
	}
	acct.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAccount(ctx, acct, nil)
}

// SetLastLogin stamps a successful login. This also invalidates any
// outstanding password reset tokens.
func (svc *Service) SetLastLogin(ctx context.Context, acct Account) (Account, error) {
	acct.LastLogin = time.Now().UTC()
	return svc.repo.UpdateAccount(ctx, acct, nil)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteAccountsByID(ctx, ids...)
}

// RequestPasswordReset sends a password reset link to the account's email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	acct, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if acct.IsActive != nil && !*acct.IsActive {
		return ErrNotFound
	}
	svc.sendMail(func() { svc.sendPasswordResetMail(acct) })
	return nil
}

// ResetPassword sets a new password from a valid reset token.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetAccountPassword) error {
	uid, err := base64.RawURLEncoding.DecodeString(rp.UID)
	if err != nil {
		return errInvalidToken
	}
	acct, err := svc.GetByID(ctx, string(uid))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return errInvalidToken
		}
		return err
	}
	if err = VerifyToken(acct, rp.Token); err != nil {
		return err
	}
	if err = acct.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	acct.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateAccount(ctx, acct, nil)
	return err
}

// Emails

func (svc *Service) sendMail(send func()) {
	if svc.mailSync {
		send()
		return
	}
	go send()
}

func (svc *Service) sendWelcomeMail(acct Account) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acct.Name, Address: acct.Email}},
		Subject:      fmt.Sprintf("Welcome to %s", svc.conf.AppName),
		TemplateName: "welcome",
		TemplateData: struct{ Name string }{acct.Name},
	})
}

func (svc *Service) sendPasswordResetMail(acct Account) {
	uid := base64.RawURLEncoding.EncodeToString([]byte(acct.ID))
	token := MakeToken(acct)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acct.Name, Address: acct.Email}},
		Subject:      fmt.Sprintf("Password reset on %s", svc.conf.AppName),
		TemplateName: "password-reset",
		TemplateData: struct {
			Name string
			URL  string
		}{acct.Name, fmt.Sprintf("%s/password-reset/%s/%s", svc.conf.FrontendBaseURL, uid, token)},
	})
}

func (svc *Service) sendAdminCredentialsMail(acct Account, pwd string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acct.Name, Address: acct.Email}},
		Subject:      fmt.Sprintf("Your %s admin account", svc.conf.AppName),
		TemplateName: "admin-credentials",
		TemplateData: struct {
			Name     string
			Email    string
			Password string
			URL      string
		}{acct.Name, acct.Email, pwd, svc.conf.FrontendBaseURL},
	})
}

// pwdAlphabet leaves out look-alike characters.
const pwdAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789!@#$%&*"

// RandomPassword generates a policy-compliant random password.
func RandomPassword() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand is broken; nothing sane to do
	}
	for i, b := range buf {
		buf[i] = pwdAlphabet[int(b)%len(pwdAlphabet)]
	}
	// guarantee one of each required class
	buf[0], buf[1], buf[2], buf[3] = 'a', 'A', '7', '!'
	return string(buf)
}
