package echoapi

import (
	"net/http"
	"testing"

	"github.com/vitccacm/recruitment-portal/core/account"
	"github.com/vitccacm/recruitment-portal/core/application"
	"github.com/vitccacm/recruitment-portal/core/round"
)

func Test_dashboardApi(t *testing.T) {
	env := newTestServer(t)

	admin := createAccount(t, env.accountRepo, "Admin", "admin@test.cd", "", []string{account.RoleSuperAdmin}, true)
	adminToken := getToken(t, admin)

	robotics := createDepartment(t, env.departmentRepo, "Robotics", true)
	createDepartment(t, env.departmentRepo, "Design", false) // inactive

	deptAdmin := createAccount(t, env.accountRepo, "Robo Boss", "roboboss@test.cd", "", []string{account.RoleDeptAdmin}, true, robotics.ID)
	hero := createApplicant(t, env.accountRepo, "Hero", "hero@test.cd")
	app := createApplication(t, env.applicationRepo, hero.ID, robotics.ID)

	screening := createRound(t, env, adminToken, "Screening", "", 1)

	t.Run("Admin overview", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, AdminDashboard{
				Departments:  2,
				Students:     1,
				Applications: application.Stats{Total: 1, Pending: 1},
			}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/api/admin/dashboard", adminToken)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Department overview", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, DeptDashboard{
				Department:   newDepartmentView(robotics),
				Applications: application.Stats{Total: 1, Pending: 1},
				Rounds: []RoundStats{
					{Round: screening, Stats: round.Stats{Total: 1, Pending: 1}},
				},
			}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/api/dept/dashboard", getToken(t, deptAdmin))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Student overview", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, StudentDashboard{
				ProfileCompletion: 80,
				CanApply:          true,
				OpenDepartments:   1,
				Applications:      []application.Application{app},
			}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/api/student/dashboard", getToken(t, hero))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Role scoping", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		req, rec := newAuthRequest(http.MethodGet, "/api/admin/dashboard", getToken(t, hero))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		req, rec = newAuthRequest(http.MethodGet, "/api/dept/dashboard", getToken(t, hero))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}
