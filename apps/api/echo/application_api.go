package echoapi

import (
	"mime/multipart"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core/account"
	"github.com/vitccacm/recruitment-portal/core/application"
	"github.com/vitccacm/recruitment-portal/core/question"
	uploadsvc "github.com/vitccacm/recruitment-portal/services/upload"
)

var errAppNotFoundInCtx = errors.New("application object not found in echo.Context")

// form fields of the submission itself; everything else is treated as a
// question answer keyed by question ID
var applicationFormFields = map[string]bool{
	"department_id": true,
	"position":      true,
	"cover_letter":  true,
}

type applicationApi struct {
	svc         *application.Service
	accountSvc  *account.Service
	questionSvc *question.Service
	uploads     uploadsvc.Service
	validate    *validator.Validate
}

// ApplicationDetail is an Application along with its question answers and
// the applicant.
type ApplicationDetail struct {
	application.Application
	Student account.Account   `json:"student"`
	Answers []question.Answer `json:"answers"`
}

func registerApplicationAPI(admin, dept, student *echo.Group, opts *Options) {
	api := applicationApi{
		svc:         opts.ApplicationSvc,
		accountSvc:  opts.AccountSvc,
		questionSvc: opts.QuestionSvc,
		uploads:     opts.Uploads,
		validate:    opts.Validate,
	}

	ag := admin.Group("/applications")
	ag.GET("", api.query)
	adg := ag.Group("/:id", api.objectMiddleware)
	adg.GET("", api.retrieve)
	adg.PUT("/status", api.updateStatus)
	adg.DELETE("", api.destroy)

	dg := dept.Group("/applications")
	dg.GET("", api.queryOwnDept)
	ddg := dg.Group("/:id", api.objectMiddleware, api.ownDeptMiddleware)
	ddg.GET("", api.retrieve)
	ddg.PUT("/status", api.updateStatus)

	student.POST("/applications", api.submit)
	student.GET("/applications", api.queryMine)
	student.GET("/applications/:id", api.retrieveMine)
}

func (api *applicationApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		app, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == application.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding application by ID")
		}
		ctx.Set("object", app)
		return next(ctx)
	}
}

func (api *applicationApi) ownDeptMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		app, ok := ctx.Get("object").(application.Application)
		if !ok {
			return errors.Wrap(errAppNotFoundInCtx, "retrieving object from context")
		}
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if app.DepartmentID != claims.DepartmentID {
			return errHttpNotFound
		}
		return next(ctx)
	}
}

// Handlers

func (api *applicationApi) query(ctx echo.Context) error {
	filter := new(application.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []application.Application{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	apps, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	if apps == nil {
		apps = []application.Application{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *applicationApi) queryOwnDept(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(application.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []application.Application{})
	}
	filter.DepartmentID = claims.DepartmentID
	ordering := new(Ordering)
	ordering.Bind(ctx)

	apps, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	if apps == nil {
		apps = []application.Application{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *applicationApi) retrieve(ctx echo.Context) error {
	app, ok := ctx.Get("object").(application.Application)
	if !ok {
		return errors.Wrap(errAppNotFoundInCtx, "retrieving object from context")
	}
	detail, err := api.buildDetail(ctx, app)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *applicationApi) buildDetail(ctx echo.Context, app application.Application) (ApplicationDetail, error) {
	rctx := ctx.Request().Context()

	student, err := api.accountSvc.GetByID(rctx, app.StudentID)
	if err != nil && errors.Cause(err) != account.ErrNotFound {
		return ApplicationDetail{}, errors.Wrap(err, "finding applicant")
	}
	answers, err := api.questionSvc.AnswersByApplication(rctx, app.ID)
	if err != nil {
		return ApplicationDetail{}, errors.Wrap(err, "loading answers")
	}
	if answers == nil {
		answers = []question.Answer{}
	}
	return ApplicationDetail{Application: app, Student: student, Answers: answers}, nil
}

func (api *applicationApi) updateStatus(ctx echo.Context) error {
	app, ok := ctx.Get("object").(application.Application)
	if !ok {
		return errors.Wrap(errAppNotFoundInCtx, "retrieving object from context")
	}

	var data application.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	app, err := api.svc.UpdateStatus(ctx.Request().Context(), app, data.Status)
	if err != nil {
		return errors.Wrap(err, "updating application status")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) destroy(ctx echo.Context) error {
	app, ok := ctx.Get("object").(application.Application)
	if !ok {
		return errors.Wrap(errAppNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), app.ID); err != nil {
		return errors.Wrap(err, "deleting application")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *applicationApi) submit(ctx echo.Context) error {
	var data application.NewApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplication")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	student, err := getContextAccount(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	rctx := ctx.Request().Context()
	inputs, fileHeaders := api.collectAnswers(ctx)

	// reject bad answers before touching the disk
	questions, err := api.questionSvc.QueryByDepartment(rctx, data.DepartmentID)
	if err != nil {
		return errors.Wrap(err, "loading department questions")
	}
	if err = question.ValidateAnswers(questions, inputs); err != nil {
		return err
	}

	filePaths := make(map[string]string, len(fileHeaders))
	for qID, fh := range fileHeaders {
		path, err := api.uploads.Save(fh, "applications")
		if err != nil {
			return errors.Wrap(err, "saving upload")
		}
		filePaths[qID] = path
	}

	app, err := api.svc.Submit(rctx, student, data, inputs, filePaths)
	if err != nil {
		// a rejected submission must not leave stored files behind
		for _, path := range filePaths {
			if rmErr := api.uploads.Remove(path); rmErr != nil {
				ctx.Logger().Error(errors.Wrap(rmErr, "removing rejected upload"))
			}
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, app)
}

// collectAnswers reads question answers off the submitted form: plain
// values and file uploads, both keyed by question ID.
func (api *applicationApi) collectAnswers(ctx echo.Context) (map[string]question.AnswerInput, map[string]*multipart.FileHeader) {
	inputs := make(map[string]question.AnswerInput)
	files := make(map[string]*multipart.FileHeader)

	form, err := ctx.MultipartForm()
	if err != nil {
		return inputs, files
	}

	for key, vals := range form.Value {
		if applicationFormFields[key] {
			continue
		}
		inputs[key] = question.AnswerInput{Values: vals}
	}
	for key, fhs := range form.File {
		if len(fhs) == 0 {
			continue
		}
		fh := fhs[0]
		in := inputs[key]
		in.File = &question.FileMeta{Filename: fh.Filename, Size: fh.Size}
		inputs[key] = in
		files[key] = fh
	}
	return inputs, files
}

func (api *applicationApi) queryMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	apps, err := api.svc.QueryByStudent(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	if apps == nil {
		apps = []application.Application{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *applicationApi) retrieveMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	app, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == application.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding application by ID")
	}
	if app.StudentID != claims.Subject {
		return errHttpNotFound
	}

	detail, err := api.buildDetail(ctx, app)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, detail)
}
