package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core/question"
)

var errQuestNotFoundInCtx = errors.New("question object not found in echo.Context")

type questionApi struct {
	svc      *question.Service
	validate *validator.Validate
}

func registerQuestionAPI(admin, dept, student *echo.Group, opts *Options) {
	api := questionApi{
		svc:      opts.QuestionSvc,
		validate: opts.Validate,
	}

	ag := admin.Group("/questions")
	ag.POST("", api.create)
	ag.GET("", api.query)
	adg := ag.Group("/:id", api.objectMiddleware)
	adg.GET("", api.retrieve)
	adg.PUT("", api.update)
	adg.DELETE("", api.destroy)

	dg := dept.Group("/questions")
	dg.POST("", api.createOwnDept)
	dg.GET("", api.queryOwnDept)
	ddg := dg.Group("/:id", api.objectMiddleware, api.ownDeptMiddleware)
	ddg.GET("", api.retrieve)
	ddg.PUT("", api.update)
	ddg.DELETE("", api.destroy)

	student.GET("/departments/:id/questions", api.queryByDepartment)
}

func (api *questionApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		q, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == question.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding question by ID")
		}
		ctx.Set("object", q)
		return next(ctx)
	}
}

func (api *questionApi) ownDeptMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		q, ok := ctx.Get("object").(question.Question)
		if !ok {
			return errors.Wrap(errQuestNotFoundInCtx, "retrieving object from context")
		}
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if q.DepartmentID != claims.DepartmentID {
			return errHttpNotFound
		}
		return next(ctx)
	}
}

// Handlers

func (api *questionApi) create(ctx echo.Context) error {
	var data question.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *questionApi) createOwnDept(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data question.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	data.DepartmentID = claims.DepartmentID
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *questionApi) query(ctx echo.Context) error {
	questions, err := api.svc.QueryByDepartment(ctx.Request().Context(), ctx.QueryParam("department_id"))
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}
	if questions == nil {
		questions = []question.Question{}
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *questionApi) queryOwnDept(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	questions, err := api.svc.QueryByDepartment(ctx.Request().Context(), claims.DepartmentID)
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}
	if questions == nil {
		questions = []question.Question{}
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *questionApi) queryByDepartment(ctx echo.Context) error {
	questions, err := api.svc.QueryByDepartment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}
	if questions == nil {
		questions = []question.Question{}
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *questionApi) retrieve(ctx echo.Context) error {
	q, ok := ctx.Get("object").(question.Question)
	if !ok {
		return errors.Wrap(errQuestNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *questionApi) update(ctx echo.Context) error {
	q, ok := ctx.Get("object").(question.Question)
	if !ok {
		return errors.Wrap(errQuestNotFoundInCtx, "retrieving object from context")
	}

	var data question.UpdateQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuestion")
	}
	if err := data.Validate(q, api.validate); err != nil {
		return err
	}

	q, err := api.svc.Update(ctx.Request().Context(), q, data)
	if err != nil {
		return errors.Wrap(err, "updating question")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *questionApi) destroy(ctx echo.Context) error {
	q, ok := ctx.Get("object").(question.Question)
	if !ok {
		return errors.Wrap(errQuestNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), q.ID); err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return ctx.NoContent(http.StatusNoContent)
}
