package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core/account"
	"github.com/vitccacm/recruitment-portal/core/profile"
)

var errFieldNotFoundInCtx = errors.New("profile field object not found in echo.Context")

type profileApi struct {
	svc        *profile.Service
	accountSvc *account.Service
	validate   *validator.Validate
}

// ProfileView is a student's account along with the profile form
// configuration and completion standing.
type ProfileView struct {
	account.Account
	ProfileCompletion int             `json:"profile_completion"`
	CanApply          bool            `json:"can_apply"`
	Fields            []profile.Field `json:"fields"`
}

func registerProfileAPI(admin, student *echo.Group, opts *Options) {
	api := profileApi{
		svc:        opts.ProfileSvc,
		accountSvc: opts.AccountSvc,
		validate:   opts.Validate,
	}

	ag := admin.Group("/profile-fields")
	ag.POST("", api.create)
	ag.GET("", api.query)
	adg := ag.Group("/:id", api.objectMiddleware)
	adg.GET("", api.retrieve)
	adg.PUT("", api.update)
	adg.DELETE("", api.destroy)

	student.GET("/profile", api.retrieveOwn)
	student.PUT("/profile", api.updateOwn)
}

func (api *profileApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		f, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == profile.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding profile field by ID")
		}
		ctx.Set("object", f)
		return next(ctx)
	}
}

// Handlers

func (api *profileApi) create(ctx echo.Context) error {
	var data profile.NewField
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewField")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	f, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating profile field")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *profileApi) query(ctx echo.Context) error {
	fields, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying profile fields")
	}
	if fields == nil {
		fields = []profile.Field{}
	}
	return ctx.JSON(http.StatusOK, fields)
}

func (api *profileApi) retrieve(ctx echo.Context) error {
	f, ok := ctx.Get("object").(profile.Field)
	if !ok {
		return errors.Wrap(errFieldNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *profileApi) update(ctx echo.Context) error {
	f, ok := ctx.Get("object").(profile.Field)
	if !ok {
		return errors.Wrap(errFieldNotFoundInCtx, "retrieving object from context")
	}

	var data profile.UpdateField
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateField")
	}
	if err := data.Validate(f, api.validate); err != nil {
		return err
	}

	f, err := api.svc.Update(ctx.Request().Context(), f, data)
	if err != nil {
		return errors.Wrap(err, "updating profile field")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *profileApi) destroy(ctx echo.Context) error {
	f, ok := ctx.Get("object").(profile.Field)
	if !ok {
		return errors.Wrap(errFieldNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), f.ID); err != nil {
		return errors.Wrap(err, "deleting profile field")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *profileApi) retrieveOwn(ctx echo.Context) error {
	acct, err := getContextAccount(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	return api.respondProfile(ctx, acct)
}

func (api *profileApi) updateOwn(ctx echo.Context) error {
	acct, err := getContextAccount(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	var data account.ProfileUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProfileUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	fields, err := api.svc.QueryEnabled(rctx)
	if err != nil {
		return errors.Wrap(err, "querying profile fields")
	}
	if err = profile.ValidateAnswers(fields, data.Extra); err != nil {
		return err
	}

	acct, err = api.accountSvc.UpdateProfile(rctx, acct, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	ctx.Set(contextAccountKey, acct)
	return api.respondProfile(ctx, acct)
}

func (api *profileApi) respondProfile(ctx echo.Context, acct account.Account) error {
	fields, err := api.svc.QueryEnabled(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying profile fields")
	}
	if fields == nil {
		fields = []profile.Field{}
	}
	return ctx.JSON(http.StatusOK, ProfileView{
		Account:           acct,
		ProfileCompletion: acct.ProfileCompletion(),
		CanApply:          acct.CanApply(),
		Fields:            fields,
	})
}
