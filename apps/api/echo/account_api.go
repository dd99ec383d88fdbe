package echoapi

import (
	"net/http"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core"
	"github.com/vitccacm/recruitment-portal/core/account"
)

var (
	errAcctNotFoundInCtx = errors.New("account object not found in echo.Context")
	errNoPermsToSetRoles = "not enough rights to set these roles"
	errHttpDefaultAdmin  = echo.NewHTTPError(http.StatusForbidden, "cannot delete the default admin account")
)

type accountApi struct {
	svc      *account.Service
	validate *validator.Validate
	conf     *core.Config
}

func registerAccountAPI(admin *echo.Group, opts *Options) {
	api := accountApi{
		svc:      opts.AccountSvc,
		validate: opts.Validate,
		conf:     opts.Conf,
	}

	ag := admin.Group("/accounts")
	ag.POST("", api.create)
	ag.GET("", api.query)
	ag.DELETE("", api.destroyMultiple)
	ag.GET("/roles", api.queryRoles)

	dg := ag.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func (api *accountApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		acct, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == account.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding account by ID")
		}
		ctx.Set("object", acct)
		return next(ctx)
	}
}

// Handlers

func (api *accountApi) create(ctx echo.Context) error {
	var data account.NewAdmin
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAdmin")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	// ctx account cannot set a role > their own max role
	ctxAcct, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	if account.MaxRolePriority(data.Roles) > account.MaxRolePriority(ctxAcct.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	acct, err := api.svc.CreateAdmin(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating account")
	}

	return ctx.JSON(http.StatusCreated, acct)
}

func (api *accountApi) query(ctx echo.Context) error {
	filter := new(account.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []account.Account{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	accts, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying accounts")
	}
	if accts == nil {
		accts = []account.Account{}
	}
	return ctx.JSON(http.StatusOK, accts)
}

func (api *accountApi) retrieve(ctx echo.Context) error {
	acct, ok := ctx.Get("object").(account.Account)
	if !ok {
		return errors.Wrap(errAcctNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, acct)
}

func (api *accountApi) update(ctx echo.Context) error {
	acct, ok := ctx.Get("object").(account.Account)
	if !ok {
		return errors.Wrap(errAcctNotFoundInCtx, "retrieving object from context")
	}

	var data account.UpdateAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAccount")
	}
	if err := data.Validate(acct, api.validate, api.svc); err != nil {
		return err
	}

	// ctx account cannot set a role > their own max role
	ctxAcct, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	if account.MaxRolePriority(data.Roles) > account.MaxRolePriority(ctxAcct.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	acct, err = api.svc.Update(ctx.Request().Context(), acct, data)
	if err != nil {
		return errors.Wrap(err, "updating account")
	}

	return ctx.JSON(http.StatusOK, acct)
}

func (api *accountApi) destroy(ctx echo.Context) error {
	acct, ok := ctx.Get("object").(account.Account)
	if !ok {
		return errors.Wrap(errAcctNotFoundInCtx, "retrieving object from context")
	}

	// ctx account cannot delete themselves
	ctxAcct, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	if acct.ID == ctxAcct.ID {
		return errHttpForbidden
	}
	if api.isDefaultAdmin(acct) {
		return errHttpDefaultAdmin
	}

	if err := api.svc.Delete(ctx.Request().Context(), acct.ID); err != nil {
		return errors.Wrap(err, "deleting account")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// isDefaultAdmin reports whether acct is the bootstrap super admin.
func (api *accountApi) isDefaultAdmin(acct account.Account) bool {
	return api.conf.DefaultAdminEmail != "" && acct.Email == api.conf.DefaultAdminEmail
}

func (api *accountApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	// ctx account cannot delete themselves
	ctxAcct, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	sort.Strings(query.IDs)
	if i := sort.SearchStrings(query.IDs, ctxAcct.ID); i < len(query.IDs) {
		if match := query.IDs[i]; ctxAcct.ID == match {
			return errHttpForbidden
		}
	}

	if api.conf.DefaultAdminEmail != "" {
		if root, err := api.svc.GetByEmail(ctx.Request().Context(), api.conf.DefaultAdminEmail); err == nil {
			if i := sort.SearchStrings(query.IDs, root.ID); i < len(query.IDs) && query.IDs[i] == root.ID {
				return errHttpDefaultAdmin
			}
		} else if errors.Cause(err) != account.ErrNotFound {
			return errors.Wrap(err, "finding default admin")
		}
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting accounts")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *accountApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, account.Roles)
}
