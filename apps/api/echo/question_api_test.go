package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitccacm/recruitment-portal/core/account"
	"github.com/vitccacm/recruitment-portal/core/question"
)

func Test_questionApi_adminCRUD(t *testing.T) {
	env := newTestServer(t)

	admin := createAccount(t, env.accountRepo, "Admin", "admin@test.cd", "", []string{account.RoleSuperAdmin}, true)
	adminToken := getToken(t, admin)

	robotics := createDepartment(t, env.departmentRepo, "Robotics", true)
	design := createDepartment(t, env.departmentRepo, "Design", true)

	tests := []httpTest{
		{
			name: "Empty body", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"department_id": "this field is required",
				"text":          "this field is required",
				"type":          "this field is required",
			}),
		},
		{
			name: "Choice question without options", wantCode: http.StatusBadRequest,
			body: marchallObj(t, question.NewQuestion{
				DepartmentID: robotics.ID, Text: "Preferred track?", Type: question.TypeSingleChoice,
			}),
			wantData: marchallObj(t, map[string]string{"options": "choice questions require at least one option"}),
		},
		{
			name: "Create OK", wantCode: http.StatusCreated,
			body: marchallObj(t, question.NewQuestion{
				DepartmentID: robotics.ID, Text: "Why robotics?", Type: question.TypeText, IsRequired: true,
			}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/admin/questions"
		tt.token = adminToken

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

				var q question.Question
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
				assert.NotEmpty(t, q.ID)
				assert.Equal(t, robotics.ID, q.DepartmentID)
				assert.True(t, q.IsRequired)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Query by department", func(t *testing.T) {
		whyQ := createQuestion(t, env.questionRepo, design.ID, "Why design?", question.TypeText, true)

		req, rec := newAuthRequest(http.MethodGet, "/api/admin/questions?department_id="+design.ID, adminToken)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, whyQ)}, rec)
	})
}

func Test_questionApi_deptScoping(t *testing.T) {
	env := newTestServer(t)

	robotics := createDepartment(t, env.departmentRepo, "Robotics", true)
	design := createDepartment(t, env.departmentRepo, "Design", true)

	deptAdmin := createAccount(t, env.accountRepo, "Robo Boss", "roboboss@test.cd", "", []string{account.RoleDeptAdmin}, true, robotics.ID)
	deptToken := getToken(t, deptAdmin)

	foreignQ := createQuestion(t, env.questionRepo, design.ID, "Why design?", question.TypeText, true)

	var ownQ question.Question
	t.Run("Create for own department", func(t *testing.T) {
		// department_id comes from the claims, not the payload
		body := marchallObj(t, question.NewQuestion{
			DepartmentID: design.ID, Text: "Preferred track?", Type: question.TypeSingleChoice,
			Options: []string{"Hardware", "Software"},
		})
		req, rec := newAuthRequest(http.MethodPost, "/api/dept/questions", deptToken, body)
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ownQ))
		assert.Equal(t, robotics.ID, ownQ.DepartmentID)
	})

	t.Run("Listing is scoped", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/dept/questions", deptToken)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, ownQ)}, rec)
	})

	t.Run("Foreign question is invisible", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		req, rec := newAuthRequest(http.MethodGet, "/api/dept/questions/"+foreignQ.ID, deptToken)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Update own question", func(t *testing.T) {
		body := marchallObj(t, question.UpdateQuestion{Text: "Which track suits you best?"})
		req, rec := newAuthRequest(http.MethodPut, "/api/dept/questions/"+ownQ.ID, deptToken, body)
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated question.Question
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "Which track suits you best?", updated.Text)
		assert.Equal(t, ownQ.Options, updated.Options)
	})

	t.Run("Delete own question", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/dept/questions/"+ownQ.ID, deptToken)
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	})

	t.Run("Students see department questions", func(t *testing.T) {
		student := createAccount(t, env.accountRepo, "Hero", "hero@test.cd", "", account.StudentRoles, true)

		req, rec := newAuthRequest(http.MethodGet, "/api/student/departments/"+design.ID+"/questions", getToken(t, student))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, foreignQ)}, rec)
	})
}
