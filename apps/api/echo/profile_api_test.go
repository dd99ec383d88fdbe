package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/vitccacm/recruitment-portal/core/account"
	"github.com/vitccacm/recruitment-portal/core/profile"
)

func Test_profileApi_adminFields(t *testing.T) {
	env := newTestServer(t)

	admin := createAccount(t, env.accountRepo, "Admin", "admin@test.cd", "", []string{account.RoleSuperAdmin}, true)
	adminToken := getToken(t, admin)

	createField := func(t *testing.T, nf profile.NewField) profile.Field {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, "/api/admin/profile-fields", adminToken, marchallObj(t, nf))
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("createField() failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		var f profile.Field
		if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		return f
	}

	github := createField(t, profile.NewField{FieldName: "github", Label: "GitHub profile", Type: profile.TypeText, Order: 1})
	year := createField(t, profile.NewField{
		FieldName: "year", Label: "Year of study", Type: profile.TypeSelect,
		Options: []string{"1", "2", "3", "4"}, IsRequired: true, Order: 2,
	})

	t.Run("Missing required attributes", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"field_name": "this field is required",
				"label":      "this field is required",
				"type":       "this field is required",
			}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/api/admin/profile-fields", adminToken, nil)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Select without options rejected", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"options": "select fields require at least one option"}),
		}
		body := marchallObj(t, profile.NewField{FieldName: "track", Label: "Track", Type: profile.TypeSelect})
		req, rec := newAuthRequest(http.MethodPost, "/api/admin/profile-fields", adminToken, body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Duplicate field name rejected", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"field_name": profile.ErrNameExists.Error()}),
		}
		body := marchallObj(t, profile.NewField{FieldName: "GitHub", Label: "Another", Type: profile.TypeText})
		req, rec := newAuthRequest(http.MethodPost, "/api/admin/profile-fields", adminToken, body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Query", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallList(t, github, year)}
		req, rec := newAuthRequest(http.MethodGet, "/api/admin/profile-fields", adminToken)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Disable a field", func(t *testing.T) {
		disabled := false
		body := marchallObj(t, profile.UpdateField{IsEnabled: &disabled})
		req, rec := newAuthRequest(http.MethodPut, "/api/admin/profile-fields/"+github.ID, adminToken, body)
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		var f profile.Field
		if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if f.IsEnabled {
			t.Error("field should be disabled")
		}
	})
}

func Test_profileApi_studentProfile(t *testing.T) {
	env := newTestServer(t)

	admin := createAccount(t, env.accountRepo, "Admin", "admin@test.cd", "", []string{account.RoleSuperAdmin}, true)
	student := createAccount(t, env.accountRepo, "Hero", "hero@test.cd", "", account.StudentRoles, true)
	adminToken := getToken(t, admin)
	studentToken := getToken(t, student)

	// admin configures one required select field
	body := marchallObj(t, profile.NewField{
		FieldName: "year", Label: "Year of study", Type: profile.TypeSelect,
		Options: []string{"1", "2", "3", "4"}, IsRequired: true,
	})
	req, rec := newAuthRequest(http.MethodPost, "/api/admin/profile-fields", adminToken, body)
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("creating field failed! code = %v; body %v", rec.Code, rec.Body.String())
	}

	t.Run("Retrieve own", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/student/profile", studentToken)
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		var view ProfileView
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if view.ID != student.ID || view.CanApply {
			t.Errorf("unexpected profile: completion=%d canApply=%v", view.ProfileCompletion, view.CanApply)
		}
		if len(view.Fields) != 1 {
			t.Errorf("got %d fields; want 1", len(view.Fields))
		}
	})

	t.Run("Missing required dynamic answer", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"year": "this field is required"}),
		}
		body := marchallObj(t, account.ProfileUpdate{Name: "Hero", RegNo: "21BCE0001"})
		req, rec := newAuthRequest(http.MethodPut, "/api/student/profile", studentToken, body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Invalid select answer", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"year": "invalid option"}),
		}
		body := marchallObj(t, account.ProfileUpdate{
			Name: "Hero", Extra: map[string]string{"year": "12"},
		})
		req, rec := newAuthRequest(http.MethodPut, "/api/student/profile", studentToken, body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Update own", func(t *testing.T) {
		body := marchallObj(t, account.ProfileUpdate{
			Name: "Hero", RegNo: "21BCE0001", Batch: "2021", Phone: "+919999999999",
			Extra: map[string]string{"year": "3"},
		})
		req, rec := newAuthRequest(http.MethodPut, "/api/student/profile", studentToken, body)
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		var view ProfileView
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if !view.CanApply {
			t.Errorf("profile completion = %d; the student should be able to apply", view.ProfileCompletion)
		}
		if view.Extra["year"] != "3" {
			t.Errorf("extra = %v; want year=3", view.Extra)
		}
	})
}
