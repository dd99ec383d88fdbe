package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core"
	"github.com/vitccacm/recruitment-portal/core/account"
	"github.com/vitccacm/recruitment-portal/core/settings"
	identitysvc "github.com/vitccacm/recruitment-portal/services/identity"
)

var (
	errEmailLoginDisabled = echo.NewHTTPError(http.StatusForbidden, "email sign-in is disabled")
	errSignupDisabled     = echo.NewHTTPError(http.StatusForbidden, "sign-up is disabled")
	errGoogleDisabled     = echo.NewHTTPError(http.StatusForbidden, "google sign-in is disabled")
	errDomainNotAllowed   = "this email domain is not allowed on this portal"
)

type authApi struct {
	svc         *account.Service
	settingsSvc *settings.Service
	identity    identitysvc.Verifier
	validate    *validator.Validate
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := authApi{
		svc:         opts.AccountSvc,
		settingsSvc: opts.SettingsSvc,
		identity:    opts.Identity,
		validate:    opts.Validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.POST("/register", api.register)
	ag.POST("/google-login", api.googleLogin)
	ag.POST("/logout", api.logout)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx, data.Email, data.Password, api.svc)
	if err != nil {
		return err
	}

	// admins keep password access when student email sign-in is off
	if claims.IsStudent {
		if allowed, err := api.settingsSvc.AllowEmail(ctx.Request().Context()); err != nil {
			return errors.Wrap(err, "reading auth settings")
		} else if !allowed {
			return errEmailLoginDisabled
		}
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) register(ctx echo.Context) error {
	var data account.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	if allowed, err := api.settingsSvc.AllowSignup(rctx); err != nil {
		return errors.Wrap(err, "reading auth settings")
	} else if !allowed {
		return errSignupDisabled
	}
	if allowed, err := api.settingsSvc.AllowEmail(rctx); err != nil {
		return errors.Wrap(err, "reading auth settings")
	} else if !allowed {
		return errEmailLoginDisabled
	}
	if allowed, err := api.settingsSvc.IsEmailDomainAllowed(rctx, data.Email); err != nil {
		return errors.Wrap(err, "reading auth settings")
	} else if !allowed {
		return core.NewValidationError(nil, core.FieldError{Field: "email", Error: errDomainNotAllowed})
	}

	acct, err := api.svc.RegisterStudent(rctx, data)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}

	token, err := GenerateToken(GetAccountClaims(acct))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, LoginResponse{Token: token})
}

func (api *authApi) googleLogin(ctx echo.Context) error {
	var data GoogleLoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GoogleLoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	if allowed, err := api.settingsSvc.AllowGoogle(rctx); err != nil {
		return errors.Wrap(err, "reading auth settings")
	} else if !allowed {
		return errGoogleDisabled
	}

	idn, err := api.identity.Verify(rctx, data.IDToken)
	if err != nil {
		switch errors.Cause(err) {
		case identitysvc.ErrInvalidToken, identitysvc.ErrAudienceMismatch, identitysvc.ErrEmailNotVerified:
			return core.NewValidationError(err, core.FieldError{Field: "id_token", Error: err.Error()})
		}
		return errors.Wrap(err, "verifying identity token")
	}

	if allowed, err := api.settingsSvc.IsEmailDomainAllowed(rctx, idn.Email); err != nil {
		return errors.Wrap(err, "reading auth settings")
	} else if !allowed {
		return core.NewValidationError(nil, core.FieldError{Field: "id_token", Error: errDomainNotAllowed})
	}

	acct, err := api.svc.GetByIdentity(rctx, idn)
	if err != nil {
		if errors.Cause(err) != account.ErrNotFound {
			return errors.Wrap(err, "resolving identity account")
		}
		if allowed, err := api.settingsSvc.AllowSignup(rctx); err != nil {
			return errors.Wrap(err, "reading auth settings")
		} else if !allowed {
			return errSignupDisabled
		}
		if acct, err = api.svc.CreateByIdentity(rctx, idn); err != nil {
			return errors.Wrap(err, "creating identity account")
		}
	}
	if acct.IsActive != nil && !*acct.IsActive {
		return errAccountDeactivated
	}
	if acct, err = api.svc.SetLastLogin(rctx, acct); err != nil {
		return errors.Wrap(err, "setting lastLogin")
	}

	token, err := GenerateToken(GetAccountClaims(acct))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// logout exists for client parity; tokens are dropped client-side.
func (api *authApi) logout(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Logged out."})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == account.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data account.ResetAccountPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetAccountPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	GoogleLoginRequest struct {
		IDToken string `json:"id_token" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (gr *GoogleLoginRequest) Validate(validate *validator.Validate) error {
	gr.IDToken = core.CleanString(gr.IDToken)
	return validate.Struct(gr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
