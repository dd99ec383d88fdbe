package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core/settings"
)

type settingsApi struct {
	svc *settings.Service
}

func registerSettingsAPI(admin *echo.Group, opts *Options) {
	api := settingsApi{svc: opts.SettingsSvc}

	admin.GET("/settings", api.retrieve)
	admin.PUT("/settings", api.update)
}

func (api *settingsApi) retrieve(ctx echo.Context) error {
	values, err := api.svc.All(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading settings")
	}
	return ctx.JSON(http.StatusOK, values)
}

func (api *settingsApi) update(ctx echo.Context) error {
	var data map[string]string
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding settings")
	}

	rctx := ctx.Request().Context()
	if err := api.svc.Update(rctx, data); err != nil {
		return err
	}

	values, err := api.svc.All(rctx)
	if err != nil {
		return errors.Wrap(err, "reading settings")
	}
	return ctx.JSON(http.StatusOK, values)
}
