package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core/account"
	"github.com/vitccacm/recruitment-portal/core/application"
	"github.com/vitccacm/recruitment-portal/core/department"
	"github.com/vitccacm/recruitment-portal/core/round"
)

type dashboardApi struct {
	accountSvc *account.Service
	deptSvc    *department.Service
	appSvc     *application.Service
	roundSvc   *round.Service
}

type (
	AdminDashboard struct {
		Departments  int               `json:"departments"`
		Students     int               `json:"students"`
		Applications application.Stats `json:"applications"`
	}

	DeptDashboard struct {
		Department   DepartmentView    `json:"department"`
		Applications application.Stats `json:"applications"`
		Rounds       []RoundStats      `json:"rounds"`
	}

	RoundStats struct {
		Round round.Round `json:"round"`
		Stats round.Stats `json:"stats"`
	}

	StudentDashboard struct {
		ProfileCompletion int                       `json:"profile_completion"`
		CanApply          bool                      `json:"can_apply"`
		OpenDepartments   int                       `json:"open_departments"`
		Applications      []application.Application `json:"applications"`
	}
)

func registerDashboardAPI(admin, dept, student *echo.Group, opts *Options) {
	api := dashboardApi{
		accountSvc: opts.AccountSvc,
		deptSvc:    opts.DepartmentSvc,
		appSvc:     opts.ApplicationSvc,
		roundSvc:   opts.RoundSvc,
	}

	admin.GET("/dashboard", api.adminDashboard)
	dept.GET("/dashboard", api.deptDashboard)
	student.GET("/dashboard", api.studentDashboard)
}

func (api *dashboardApi) adminDashboard(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	depts, err := api.deptSvc.Query(rctx, nil, nil)
	if err != nil {
		return errors.Wrap(err, "querying departments")
	}
	students, err := api.accountSvc.Query(rctx, &account.QueryFilter{Roles: account.StudentRoles}, nil)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	appStats, err := api.appSvc.Stats(rctx, "")
	if err != nil {
		return errors.Wrap(err, "computing application stats")
	}

	return ctx.JSON(http.StatusOK, AdminDashboard{
		Departments:  len(depts),
		Students:     len(students),
		Applications: appStats,
	})
}

func (api *dashboardApi) deptDashboard(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	rctx := ctx.Request().Context()

	dept, err := api.deptSvc.GetByID(rctx, claims.DepartmentID)
	if err != nil {
		if errors.Cause(err) == department.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding department by ID")
	}
	appStats, err := api.appSvc.Stats(rctx, dept.ID)
	if err != nil {
		return errors.Wrap(err, "computing application stats")
	}

	rounds, err := api.roundSvc.Query(rctx)
	if err != nil {
		return errors.Wrap(err, "querying rounds")
	}
	roundStats := make([]RoundStats, 0, len(rounds))
	for _, rnd := range rounds {
		stats, err := api.roundSvc.DepartmentStats(rctx, rnd, dept.ID)
		if err != nil {
			return errors.Wrap(err, "computing round stats")
		}
		roundStats = append(roundStats, RoundStats{Round: rnd, Stats: stats})
	}

	return ctx.JSON(http.StatusOK, DeptDashboard{
		Department:   newDepartmentView(dept),
		Applications: appStats,
		Rounds:       roundStats,
	})
}

func (api *dashboardApi) studentDashboard(ctx echo.Context) error {
	acct, err := getContextAccount(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	rctx := ctx.Request().Context()

	isActive := true
	depts, err := api.deptSvc.Query(rctx, &department.QueryFilter{IsActive: &isActive}, nil)
	if err != nil {
		return errors.Wrap(err, "querying departments")
	}
	var open int
	for _, dept := range depts {
		if dept.IsOpen() {
			open++
		}
	}

	apps, err := api.appSvc.QueryByStudent(rctx, acct.ID)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	if apps == nil {
		apps = []application.Application{}
	}

	return ctx.JSON(http.StatusOK, StudentDashboard{
		ProfileCompletion: acct.ProfileCompletion(),
		CanApply:          acct.CanApply(),
		OpenDepartments:   open,
		Applications:      apps,
	})
}
