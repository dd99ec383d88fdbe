package echoapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/vitccacm/recruitment-portal/core/account"
	"github.com/vitccacm/recruitment-portal/core/department"
)

func Test_departmentApi_query(t *testing.T) {
	env := newTestServer(t)

	robotics := createDepartment(t, env.departmentRepo, "Robotics", true)
	design := createDepartment(t, env.departmentRepo, "Design", true)
	events := createDepartment(t, env.departmentRepo, "Events", false)

	admin := createAccount(t, env.accountRepo, "Admin", "admin@test.cd", "", []string{account.RoleSuperAdmin}, true)
	student := createAccount(t, env.accountRepo, "Hero", "hero@test.cd", "", account.StudentRoles, true)
	adminToken := getToken(t, admin)

	path := func(search string, isActive *bool) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		return "/api/admin/departments?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/api/admin/departments", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/api/admin/departments", token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Get all", path: "/api/admin/departments", token: adminToken,
			wantData: marchallList(t, newDepartmentView(design), newDepartmentView(events), newDepartmentView(robotics)),
		},
		{name: "search (unknown)", path: path("lol", nil), token: adminToken, wantData: empty},
		{
			name: "search=rob", path: path("rob", nil), token: adminToken,
			wantData: marchallList(t, newDepartmentView(robotics)),
		},
		{
			name: "is_active=true", path: path("", bPtr(true)), token: adminToken,
			wantData: marchallList(t, newDepartmentView(design), newDepartmentView(robotics)),
		},
		{
			name: "is_active=false", path: path("", bPtr(false)), token: adminToken,
			wantData: marchallList(t, newDepartmentView(events)),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_departmentApi_create(t *testing.T) {
	env := newTestServer(t)

	createDepartment(t, env.departmentRepo, "Robotics", true)
	admin := createAccount(t, env.accountRepo, "Admin", "admin@test.cd", "", []string{account.RoleSuperAdmin}, true)
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{
			name: "Name required", body: nil, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "Duplicate name", body: marchallObj(t, department.NewDepartment{Name: "robotics"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": department.ErrNameExists.Error()}),
		},
		{
			name: "Create OK", wantCode: http.StatusCreated,
			body: marchallObj(t, department.NewDepartment{
				Name:             "Design",
				ShortDescription: "Posters and branding",
				Positions:        "Member,Lead",
			}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/admin/departments"
		tt.token = adminToken

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %v", rec.Code, tt.wantCode, rec.Body.String())
				}
				var view DepartmentView
				if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if view.ID == "" || view.Name != "Design" || !view.IsActive {
					t.Errorf("unexpected department: %+v", view.Department)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_departmentApi_toggleActive(t *testing.T) {
	env := newTestServer(t)

	dept := createDepartment(t, env.departmentRepo, "Robotics", false)
	admin := createAccount(t, env.accountRepo, "Admin", "admin@test.cd", "", []string{account.RoleSuperAdmin}, true)
	adminToken := getToken(t, admin)

	toggle := func(t *testing.T) DepartmentView {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, "/api/admin/departments/"+dept.ID+"/toggle-active", adminToken)
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		var view DepartmentView
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		return view
	}

	if view := toggle(t); !view.IsActive {
		t.Error("first toggle should activate the department")
	}
	if view := toggle(t); view.IsActive {
		t.Error("second toggle should deactivate the department")
	}

	t.Run("Unknown department", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		req, rec := newAuthRequest(http.MethodPost, "/api/admin/departments/nope/toggle-active", adminToken)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_departmentApi_ownDepartment(t *testing.T) {
	env := newTestServer(t)

	robotics := createDepartment(t, env.departmentRepo, "Robotics", true)
	design := createDepartment(t, env.departmentRepo, "Design", true)
	_ = design

	deptAdmin := createAccount(t, env.accountRepo, "Robo Boss", "roboboss@test.cd", "", []string{account.RoleDeptAdmin}, true, robotics.ID)
	student := createAccount(t, env.accountRepo, "Hero", "hero@test.cd", "", account.StudentRoles, true)
	deptToken := getToken(t, deptAdmin)

	t.Run("Dept admin required", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		req, rec := newAuthRequest(http.MethodGet, "/api/dept/department", getToken(t, student))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Retrieve own", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, newDepartmentView(robotics))}
		req, rec := newAuthRequest(http.MethodGet, "/api/dept/department", deptToken)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Name change forbidden", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		body := marchallObj(t, map[string]string{"name": "Not Robotics"})
		req, rec := newAuthRequest(http.MethodPut, "/api/dept/department", deptToken, body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Activation forbidden", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		body := marchallObj(t, map[string]bool{"is_active": false})
		req, rec := newAuthRequest(http.MethodPut, "/api/dept/department", deptToken, body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Update own", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"short_description": "We build robots", "positions": "Member,Lead"})
		req, rec := newAuthRequest(http.MethodPut, "/api/dept/department", deptToken, body)
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		var view DepartmentView
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if view.ShortDescription != "We build robots" || view.Name != "Robotics" {
			t.Errorf("unexpected department: %+v", view.Department)
		}
	})
}

func Test_departmentApi_studentListing(t *testing.T) {
	env := newTestServer(t)

	now := time.Now().UTC()
	open := createDepartment(t, env.departmentRepo, "Robotics", true, now.Add(-time.Hour), now.Add(time.Hour))
	upcoming := createDepartment(t, env.departmentRepo, "Design", true, now.Add(time.Hour), now.Add(2*time.Hour))
	hidden := createDepartment(t, env.departmentRepo, "Events", false)

	student := createAccount(t, env.accountRepo, "Hero", "hero@test.cd", "", account.StudentRoles, true)
	studentToken := getToken(t, student)

	tests := []httpTest{
		{name: "Auth required", path: "/api/student/departments", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Active departments only", path: "/api/student/departments", token: studentToken,
			wantData: marchallList(t, newDepartmentView(upcoming), newDepartmentView(open)),
		},
		{
			name: "Retrieve active", path: "/api/student/departments/" + open.ID, token: studentToken,
			wantData: marchallObj(t, newDepartmentView(open)),
		},
		{
			name: "Inactive department hidden", path: "/api/student/departments/" + hidden.ID, token: studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "Unknown department", path: "/api/student/departments/nope", token: studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
