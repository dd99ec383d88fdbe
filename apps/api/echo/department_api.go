package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core/department"
)

var errDeptNotFoundInCtx = errors.New("department object not found in echo.Context")

type departmentApi struct {
	svc      *department.Service
	validate *validator.Validate
}

// DepartmentView is a Department along with its derived recruitment
// status.
type DepartmentView struct {
	department.Department
	RecruitmentStatus string `json:"recruitment_status"`
}

func newDepartmentView(dept department.Department) DepartmentView {
	return DepartmentView{Department: dept, RecruitmentStatus: dept.RecruitmentStatus()}
}

func newDepartmentViews(depts []department.Department) []DepartmentView {
	views := make([]DepartmentView, 0, len(depts))
	for _, dept := range depts {
		views = append(views, newDepartmentView(dept))
	}
	return views
}

func registerDepartmentAPI(admin, dept, student *echo.Group, opts *Options) {
	api := departmentApi{
		svc:      opts.DepartmentSvc,
		validate: opts.Validate,
	}

	ag := admin.Group("/departments")
	ag.POST("", api.create)
	ag.GET("", api.query)
	ag.DELETE("", api.destroyMultiple)
	dg := ag.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.POST("/toggle-active", api.toggleActive)
	dg.DELETE("", api.destroy)

	// department admins manage their own department only
	dept.GET("/department", api.retrieveOwn)
	dept.PUT("/department", api.updateOwn)

	student.GET("/departments", api.queryOpen)
	student.GET("/departments/:id", api.retrieveActive)
}

func (api *departmentApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		dept, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == department.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding department by ID")
		}
		ctx.Set("object", dept)
		return next(ctx)
	}
}

// Handlers

func (api *departmentApi) create(ctx echo.Context) error {
	var data department.NewDepartment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDepartment")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	dept, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating department")
	}
	return ctx.JSON(http.StatusCreated, newDepartmentView(dept))
}

func (api *departmentApi) query(ctx echo.Context) error {
	filter := new(department.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []DepartmentView{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	depts, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying departments")
	}
	return ctx.JSON(http.StatusOK, newDepartmentViews(depts))
}

func (api *departmentApi) retrieve(ctx echo.Context) error {
	dept, ok := ctx.Get("object").(department.Department)
	if !ok {
		return errors.Wrap(errDeptNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, newDepartmentView(dept))
}

func (api *departmentApi) update(ctx echo.Context) error {
	dept, ok := ctx.Get("object").(department.Department)
	if !ok {
		return errors.Wrap(errDeptNotFoundInCtx, "retrieving object from context")
	}

	var data department.UpdateDepartment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDepartment")
	}
	if err := data.Validate(dept, api.validate, api.svc); err != nil {
		return err
	}

	dept, err := api.svc.Update(ctx.Request().Context(), dept, data)
	if err != nil {
		return errors.Wrap(err, "updating department")
	}
	return ctx.JSON(http.StatusOK, newDepartmentView(dept))
}

func (api *departmentApi) toggleActive(ctx echo.Context) error {
	dept, ok := ctx.Get("object").(department.Department)
	if !ok {
		return errors.Wrap(errDeptNotFoundInCtx, "retrieving object from context")
	}

	dept, err := api.svc.ToggleActive(ctx.Request().Context(), dept)
	if err != nil {
		return errors.Wrap(err, "toggling department")
	}
	return ctx.JSON(http.StatusOK, newDepartmentView(dept))
}

func (api *departmentApi) destroy(ctx echo.Context) error {
	dept, ok := ctx.Get("object").(department.Department)
	if !ok {
		return errors.Wrap(errDeptNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), dept.ID); err != nil {
		return errors.Wrap(err, "deleting department")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *departmentApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting departments")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *departmentApi) retrieveOwn(ctx echo.Context) error {
	dept, err := getOwnDepartment(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newDepartmentView(dept))
}

// updateOwn lets a department admin edit their department's listing.
// Name and IsActive stay super admin territory.
func (api *departmentApi) updateOwn(ctx echo.Context) error {
	dept, err := getOwnDepartment(ctx, api.svc)
	if err != nil {
		return err
	}

	var data department.UpdateDepartment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDepartment")
	}
	if data.Name != "" || data.IsActive != nil {
		return errHttpForbidden
	}
	if err := data.Validate(dept, api.validate, api.svc); err != nil {
		return err
	}

	dept, err = api.svc.Update(ctx.Request().Context(), dept, data)
	if err != nil {
		return errors.Wrap(err, "updating department")
	}
	return ctx.JSON(http.StatusOK, newDepartmentView(dept))
}

func (api *departmentApi) queryOpen(ctx echo.Context) error {
	isActive := true
	depts, err := api.svc.Query(ctx.Request().Context(), &department.QueryFilter{IsActive: &isActive}, nil)
	if err != nil {
		return errors.Wrap(err, "querying departments")
	}
	return ctx.JSON(http.StatusOK, newDepartmentViews(depts))
}

func (api *departmentApi) retrieveActive(ctx echo.Context) error {
	dept, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == department.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding department by ID")
	}
	if !dept.IsActive {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, newDepartmentView(dept))
}

// getOwnDepartment resolves the department bound to the dept admin's
// claims.
func getOwnDepartment(ctx echo.Context, svc *department.Service) (department.Department, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return department.Department{}, errors.Wrap(err, "getting context claims")
	}

	dept, err := svc.GetByID(ctx.Request().Context(), claims.DepartmentID)
	if err != nil {
		if errors.Cause(err) == department.ErrNotFound {
			return department.Department{}, errHttpNotFound
		}
		return department.Department{}, errors.Wrap(err, "finding department by ID")
	}
	return dept, nil
}
