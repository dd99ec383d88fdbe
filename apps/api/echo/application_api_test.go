package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vitccacm/recruitment-portal/core/account"
	"github.com/vitccacm/recruitment-portal/core/application"
	"github.com/vitccacm/recruitment-portal/core/question"
	emailsvc "github.com/vitccacm/recruitment-portal/services/email"
	uploadsvc "github.com/vitccacm/recruitment-portal/services/upload"
)

func createQuestion(t *testing.T, repo question.Repository, deptID, text, qtype string, required bool, options ...string) question.Question {
	t.Helper()

	now := time.Now().UTC()
	q := question.Question{
		ID:           uuid.New().String(),
		DepartmentID: deptID,
		Text:         text,
		Type:         qtype,
		Options:      options,
		IsRequired:   required,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	q, err := repo.CreateQuestion(context.Background(), q)
	if err != nil {
		t.Fatalf("createQuestion() failed: %v", err)
	}
	return q
}

func createApplication(t *testing.T, repo application.Repository, studentID, deptID string) application.Application {
	t.Helper()

	now := time.Now().UTC()
	app := application.Application{
		ID:           uuid.New().String(),
		StudentID:    studentID,
		DepartmentID: deptID,
		Status:       application.StatusPending,
		AppliedAt:    now,
		UpdatedAt:    now,
	}
	app, err := repo.CreateApplication(context.Background(), app)
	if err != nil {
		t.Fatalf("createApplication() failed: %v", err)
	}
	return app
}

// createApplicant seeds a student whose profile is complete enough to
// pass the submission gate.
func createApplicant(t *testing.T, repo account.Repository, name, email string) account.Account {
	t.Helper()

	acct := createAccount(t, repo, name, email, "", account.StudentRoles, true)
	acct.RegNo = "21BCE0001"
	acct.Batch = "2021"
	acct.Phone = "+91 9999999999"
	acct, err := repo.UpdateAccount(context.Background(), acct, nil)
	if err != nil {
		t.Fatalf("createApplicant() failed: %v", err)
	}
	return acct
}

// multipartBody builds an application submission form: fields plus
// optional file parts keyed by question ID.
func multipartBody(t *testing.T, fields map[string][]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, vals := range fields {
		for _, v := range vals {
			if err := w.WriteField(key, v); err != nil {
				t.Fatalf("WriteField() failed: %v", err)
			}
		}
	}
	for key, filename := range files {
		fw, err := w.CreateFormFile(key, filename)
		if err != nil {
			t.Fatalf("CreateFormFile() failed: %v", err)
		}
		if _, err = fw.Write([]byte("file contents")); err != nil {
			t.Fatalf("Write() failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func newSubmitRequest(t *testing.T, token string, fields map[string][]string, files map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	body, contentType := multipartBody(t, fields, files)
	req := httptest.NewRequest(http.MethodPost, "/api/student/applications", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	return req, rec
}

func Test_applicationApi_submit(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()

	now := time.Now().UTC()
	dept := createDepartment(t, env.departmentRepo, "Robotics", true, now.Add(-time.Hour), now.Add(time.Hour))
	closed := createDepartment(t, env.departmentRepo, "Design", true, now.Add(-2*time.Hour), now.Add(-time.Hour))

	whyQ := createQuestion(t, env.questionRepo, dept.ID, "Why do you want to join?", question.TypeText, true)
	trackQ := createQuestion(t, env.questionRepo, dept.ID, "Pick a track", question.TypeSingleChoice, false, "Hardware", "Software")
	cvQ := createQuestion(t, env.questionRepo, dept.ID, "Upload your CV", question.TypeFileUpload, false)

	student := createApplicant(t, env.accountRepo, "Hero", "hero@test.cd")
	slacker := createAccount(t, env.accountRepo, "Slacker", "slacker@test.cd", "", account.StudentRoles, true)
	studentToken := getToken(t, student)

	t.Run("Incomplete profile rejected", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: application.ErrProfileIncomplete.Error()}),
		}
		req, rec := newSubmitRequest(t, getToken(t, slacker), map[string][]string{
			"department_id": {dept.ID},
			whyQ.ID:         {"Robots are cool"},
		}, nil)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Department required", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"department_id": "this field is required"}),
		}
		req, rec := newSubmitRequest(t, studentToken, map[string][]string{"position": {"Member"}}, nil)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Closed department rejected", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: application.ErrDepartmentClosed.Error()}),
		}
		req, rec := newSubmitRequest(t, studentToken, map[string][]string{"department_id": {closed.ID}}, nil)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Required answer missing", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{whyQ.ID: "this question is required"}),
		}
		req, rec := newSubmitRequest(t, studentToken, map[string][]string{"department_id": {dept.ID}}, nil)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Invalid choice rejected", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{trackQ.ID: "invalid option"}),
		}
		req, rec := newSubmitRequest(t, studentToken, map[string][]string{
			"department_id": {dept.ID},
			whyQ.ID:         {"Robots are cool"},
			trackQ.ID:       {"Underwater"},
		}, nil)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Submit OK", func(t *testing.T) {
		emailsvc.ClearSentMessages()

		req, rec := newSubmitRequest(t, studentToken, map[string][]string{
			"department_id": {dept.ID},
			"position":      {"Member"},
			"cover_letter":  {"Please take me"},
			whyQ.ID:         {"Robots are cool"},
			trackQ.ID:       {"Hardware"},
		}, map[string]string{cvQ.ID: "cv.pdf"})
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
		}

		var app application.Application
		if err := json.Unmarshal(rec.Body.Bytes(), &app); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if app.Status != application.StatusPending || app.StudentID != student.ID || app.DepartmentID != dept.ID {
			t.Errorf("unexpected application: %+v", app)
		}

		answers, err := env.questionRepo.QueryAnswersByApplication(ctx, app.ID)
		if err != nil {
			t.Fatalf("QueryAnswersByApplication() failed: %v", err)
		}
		if len(answers) != 3 {
			t.Fatalf("saved %d answers; want 3", len(answers))
		}
		byQuestion := make(map[string]question.Answer, len(answers))
		for _, ans := range answers {
			byQuestion[ans.QuestionID] = ans
		}
		if byQuestion[whyQ.ID].Response != "Robots are cool" {
			t.Errorf("text answer = %q", byQuestion[whyQ.ID].Response)
		}
		if byQuestion[trackQ.ID].Response != "Hardware" {
			t.Errorf("choice answer = %q", byQuestion[trackQ.ID].Response)
		}
		if byQuestion[cvQ.ID].FilePath == "" {
			t.Error("file answer has no stored path")
		}

		if n := len(emailsvc.SentMessages); n != 1 {
			t.Fatalf("sent %d emails; want 1", n)
		}
		msg := emailsvc.SentMessages[0]
		if len(msg.To) != 1 || msg.To[0].Address != student.Email {
			t.Errorf("email recipients = %v; want %v", msg.To, student.Email)
		}
	})

	t.Run("Duplicate application rejected", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: application.ErrAlreadyApplied.Error()}),
		}
		req, rec := newSubmitRequest(t, studentToken, map[string][]string{
			"department_id": {dept.ID},
			whyQ.ID:         {"Robots are still cool"},
		}, nil)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Rejected submission leaves no files", func(t *testing.T) {
		uploadsvc.ClearStoredPaths()

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: application.ErrAlreadyApplied.Error()}),
		}
		req, rec := newSubmitRequest(t, studentToken, map[string][]string{
			"department_id": {dept.ID},
			whyQ.ID:         {"Third time lucky"},
		}, map[string]string{cvQ.ID: "cv-again.pdf"})
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		if n := len(uploadsvc.StoredPaths); n != 0 {
			t.Errorf("stored %d files after rejection; want 0: %v", n, uploadsvc.StoredPaths)
		}
	})
}

func Test_applicationApi_studentListing(t *testing.T) {
	env := newTestServer(t)

	robotics := createDepartment(t, env.departmentRepo, "Robotics", true)
	design := createDepartment(t, env.departmentRepo, "Design", true)

	hero := createApplicant(t, env.accountRepo, "Hero", "hero@test.cd")
	rival := createApplicant(t, env.accountRepo, "Rival", "rival@test.cd")
	heroToken := getToken(t, hero)

	app1 := createApplication(t, env.applicationRepo, hero.ID, robotics.ID)
	app2 := createApplication(t, env.applicationRepo, hero.ID, design.ID)
	other := createApplication(t, env.applicationRepo, rival.ID, robotics.ID)

	t.Run("Query mine", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallList(t, app2, app1)}
		req, rec := newAuthRequest(http.MethodGet, "/api/student/applications", heroToken)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Retrieve mine", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, ApplicationDetail{Application: app1, Student: hero, Answers: []question.Answer{}}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/api/student/applications/"+app1.ID, heroToken)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Someone else's application hidden", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		req, rec := newAuthRequest(http.MethodGet, "/api/student/applications/"+other.ID, heroToken)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_applicationApi_adminAndDept(t *testing.T) {
	env := newTestServer(t)

	robotics := createDepartment(t, env.departmentRepo, "Robotics", true)
	design := createDepartment(t, env.departmentRepo, "Design", true)

	hero := createApplicant(t, env.accountRepo, "Hero", "hero@test.cd")
	rival := createApplicant(t, env.accountRepo, "Rival", "rival@test.cd")

	admin := createAccount(t, env.accountRepo, "Admin", "admin@test.cd", "", []string{account.RoleSuperAdmin}, true)
	roboBoss := createAccount(t, env.accountRepo, "Robo Boss", "roboboss@test.cd", "", []string{account.RoleDeptAdmin}, true, robotics.ID)
	adminToken := getToken(t, admin)
	roboToken := getToken(t, roboBoss)

	roboApp := createApplication(t, env.applicationRepo, hero.ID, robotics.ID)
	designApp := createApplication(t, env.applicationRepo, rival.ID, design.ID)

	t.Run("Admin sees all", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallList(t, designApp, roboApp)}
		req, rec := newAuthRequest(http.MethodGet, "/api/admin/applications", adminToken)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Dept admin sees own department only", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallList(t, roboApp)}
		req, rec := newAuthRequest(http.MethodGet, "/api/dept/applications", roboToken)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Dept filter cannot be widened", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallList(t, roboApp)}
		req, rec := newAuthRequest(http.MethodGet, "/api/dept/applications?department_id="+design.ID, roboToken)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Foreign application hidden from dept admin", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		req, rec := newAuthRequest(http.MethodGet, "/api/dept/applications/"+designApp.ID, roboToken)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Detail includes the applicant", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, ApplicationDetail{Application: roboApp, Student: hero, Answers: []question.Answer{}}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/api/dept/applications/"+roboApp.ID, roboToken)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Invalid status rejected", func(t *testing.T) {
		body := marchallObj(t, application.UpdateStatus{Status: "maybe"})
		req, rec := newAuthRequest(http.MethodPut, "/api/dept/applications/"+roboApp.ID+"/status", roboToken, body)
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
		}
		if !strings.Contains(rec.Body.String(), "status") {
			t.Errorf("expected a status field error; got %v", rec.Body.String())
		}
	})

	t.Run("Status updated", func(t *testing.T) {
		body := marchallObj(t, application.UpdateStatus{Status: application.StatusAccepted})
		req, rec := newAuthRequest(http.MethodPut, "/api/dept/applications/"+roboApp.ID+"/status", roboToken, body)
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		var app application.Application
		if err := json.Unmarshal(rec.Body.Bytes(), &app); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if app.Status != application.StatusAccepted {
			t.Errorf("status = %v; want %v", app.Status, application.StatusAccepted)
		}
	})

	t.Run("Admin destroys an application", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/admin/applications/"+designApp.ID, adminToken)
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/api/admin/applications/"+designApp.ID, adminToken)
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
		}
	})
}
