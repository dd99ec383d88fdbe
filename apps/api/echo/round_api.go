package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core/application"
	"github.com/vitccacm/recruitment-portal/core/round"
)

var errRoundNotFoundInCtx = errors.New("round object not found in echo.Context")

type roundApi struct {
	svc      *round.Service
	appSvc   *application.Service
	validate *validator.Validate
}

// RoundStateView is a Round along with one department's state on it.
type RoundStateView struct {
	round.Round
	State round.DepartmentState `json:"state"`
}

func registerRoundAPI(admin, dept, student *echo.Group, opts *Options) {
	api := roundApi{
		svc:      opts.RoundSvc,
		appSvc:   opts.ApplicationSvc,
		validate: opts.Validate,
	}

	ag := admin.Group("/rounds")
	ag.POST("", api.create)
	ag.GET("", api.query)
	adg := ag.Group("/:id", api.objectMiddleware)
	adg.GET("", api.retrieve)
	adg.PUT("", api.update)
	adg.DELETE("", api.destroy)
	adg.GET("/states", api.queryStates)
	adg.PUT("/states/:deptID", api.updateState)
	adg.GET("/candidates", api.queryCandidates)
	adg.GET("/stats", api.stats)

	dg := dept.Group("/rounds")
	dg.GET("", api.queryOwnDept)
	ddg := dg.Group("/:id", api.objectMiddleware)
	ddg.GET("/candidates", api.queryOwnDeptCandidates)
	ddg.GET("/stats", api.ownDeptStats)
	ddg.POST("/candidates/:appID/toggle", api.toggleCandidate)
	ddg.PUT("/candidates/:appID/notes", api.setCandidateNotes)

	student.GET("/applications/:id/progress", api.studentProgress)
}

func (api *roundApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		rnd, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == round.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding round by ID")
		}
		ctx.Set("object", rnd)
		return next(ctx)
	}
}

func contextRound(ctx echo.Context) (round.Round, error) {
	rnd, ok := ctx.Get("object").(round.Round)
	if !ok {
		return round.Round{}, errors.Wrap(errRoundNotFoundInCtx, "retrieving object from context")
	}
	return rnd, nil
}

// Handlers

func (api *roundApi) create(ctx echo.Context) error {
	var data round.NewRound
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRound")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rnd, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rnd)
}

func (api *roundApi) query(ctx echo.Context) error {
	rounds, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying rounds")
	}
	if rounds == nil {
		rounds = []round.Round{}
	}
	return ctx.JSON(http.StatusOK, rounds)
}

func (api *roundApi) retrieve(ctx echo.Context) error {
	rnd, err := contextRound(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rnd)
}

func (api *roundApi) update(ctx echo.Context) error {
	rnd, err := contextRound(ctx)
	if err != nil {
		return err
	}

	var data round.UpdateRound
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRound")
	}
	if err := data.Validate(rnd, api.validate); err != nil {
		return err
	}

	rnd, err = api.svc.Update(ctx.Request().Context(), rnd, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rnd)
}

func (api *roundApi) destroy(ctx echo.Context) error {
	rnd, err := contextRound(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), rnd.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *roundApi) queryStates(ctx echo.Context) error {
	rnd, err := contextRound(ctx)
	if err != nil {
		return err
	}

	states, err := api.svc.QueryStates(ctx.Request().Context(), &round.StateFilter{RoundID: rnd.ID})
	if err != nil {
		return errors.Wrap(err, "querying round states")
	}
	if states == nil {
		states = []round.DepartmentState{}
	}
	return ctx.JSON(http.StatusOK, states)
}

func (api *roundApi) updateState(ctx echo.Context) error {
	rnd, err := contextRound(ctx)
	if err != nil {
		return err
	}

	var data round.StateUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StateUpdate")
	}

	state, err := api.svc.UpdateState(ctx.Request().Context(), rnd.ID, ctx.Param("deptID"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, state)
}

func (api *roundApi) queryCandidates(ctx echo.Context) error {
	rnd, err := contextRound(ctx)
	if err != nil {
		return err
	}
	return api.respondCandidates(ctx, rnd, ctx.QueryParam("department_id"))
}

func (api *roundApi) stats(ctx echo.Context) error {
	rnd, err := contextRound(ctx)
	if err != nil {
		return err
	}
	return api.respondStats(ctx, rnd, ctx.QueryParam("department_id"))
}

func (api *roundApi) queryOwnDept(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	rctx := ctx.Request().Context()

	rounds, err := api.svc.Query(rctx)
	if err != nil {
		return errors.Wrap(err, "querying rounds")
	}

	views := make([]RoundStateView, 0, len(rounds))
	for _, rnd := range rounds {
		state, err := api.svc.GetState(rctx, rnd.ID, claims.DepartmentID)
		if err != nil {
			return errors.Wrap(err, "getting round state")
		}
		views = append(views, RoundStateView{Round: rnd, State: state})
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *roundApi) queryOwnDeptCandidates(ctx echo.Context) error {
	rnd, err := contextRound(ctx)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	return api.respondCandidates(ctx, rnd, claims.DepartmentID)
}

func (api *roundApi) ownDeptStats(ctx echo.Context) error {
	rnd, err := contextRound(ctx)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	return api.respondStats(ctx, rnd, claims.DepartmentID)
}

func (api *roundApi) respondCandidates(ctx echo.Context, rnd round.Round, departmentID string) error {
	views, err := api.svc.EligibleCandidates(ctx.Request().Context(), rnd, departmentID)
	if err != nil {
		return errors.Wrap(err, "listing eligible candidates")
	}
	if views == nil {
		views = []round.CandidateView{}
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *roundApi) respondStats(ctx echo.Context, rnd round.Round, departmentID string) error {
	stats, err := api.svc.DepartmentStats(ctx.Request().Context(), rnd, departmentID)
	if err != nil {
		return errors.Wrap(err, "computing round stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *roundApi) toggleCandidate(ctx echo.Context) error {
	rnd, err := contextRound(ctx)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	cand, err := api.svc.ToggleCandidate(ctx.Request().Context(), rnd, claims.DepartmentID, ctx.Param("appID"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cand)
}

func (api *roundApi) setCandidateNotes(ctx echo.Context) error {
	rnd, err := contextRound(ctx)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data round.UpdateNotes
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateNotes")
	}

	cand, err := api.svc.SetCandidateNotes(ctx.Request().Context(), rnd, claims.DepartmentID, ctx.Param("appID"), data.Notes)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cand)
}

func (api *roundApi) studentProgress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	app, err := api.appSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == application.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding application by ID")
	}
	if app.StudentID != claims.Subject {
		return errHttpNotFound
	}

	entries, err := api.svc.StudentProgress(ctx.Request().Context(), app)
	if err != nil {
		return errors.Wrap(err, "building student progress")
	}
	if entries == nil {
		entries = []round.ProgressEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}
