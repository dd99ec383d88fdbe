package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/vitccacm/recruitment-portal/core/account"
	"github.com/vitccacm/recruitment-portal/core/settings"
	emailsvc "github.com/vitccacm/recruitment-portal/services/email"
	identitysvc "github.com/vitccacm/recruitment-portal/services/identity"
)

func Test_authApi_login(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()

	student := createAccount(t, env.accountRepo, "Hero", "hero@test.cd", "LePassw0rd", account.StudentRoles, true)
	naughty := createAccount(t, env.accountRepo, "N Dog", "ndog@test.cd", "LePassw0rd", account.StudentRoles, false)
	oauthOnly := createAccount(t, env.accountRepo, "G Only", "gonly@test.cd", "", account.StudentRoles, true)
	_ = oauthOnly

	body := func(email, pwd string) []byte {
		return marchallObj(t, LoginRequest{Email: email, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "Empty body", body: nil, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "Unknown email", body: body("lol@test.cd", "LePassw0rd"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Wrong password", body: body(student.Email, "oops"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Inactive account", body: body(naughty.Email, "LePassw0rd"), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "OAuth-only account", body: body("gonly@test.cd", "whatever"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: account.ErrNoPassword.Error()}),
		},
		{name: "Login OK", body: body(student.Email, "LePassw0rd"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			env.server.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				checkTokenResponse(t, tt, rec.Code, rec.Body.Bytes())
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Email sign-in disabled", func(t *testing.T) {
		if err := env.settingsSvc.Update(ctx, map[string]string{settings.KeyAllowEmail: "false"}); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		defer func() { _ = env.settingsSvc.Update(ctx, map[string]string{settings.KeyAllowEmail: "true"}) }()

		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "email sign-in is disabled"}),
		}
		req, rec := newRequest(http.MethodPost, "/api/auth/login", body(student.Email, "LePassw0rd"))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		// the gate is student-only; admins keep password access
		admin := createAccount(t, env.accountRepo, "Admin", "admin@test.cd", "LePassw0rd", []string{account.RoleSuperAdmin}, true)
		req, rec = newRequest(http.MethodPost, "/api/auth/login", body(admin.Email, "LePassw0rd"))
		env.server.ServeHTTP(rec, req)
		checkTokenResponse(t, httpTest{wantCode: http.StatusOK}, rec.Code, rec.Body.Bytes())
	})
}

func Test_authApi_register(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()

	existing := createAccount(t, env.accountRepo, "Hero", "hero@test.cd", "LePassw0rd", account.StudentRoles, true)

	body := func(email, pwd, confirm string) []byte {
		return marchallObj(t, account.NewStudent{Email: email, Password: pwd, PasswordConfirm: confirm})
	}

	tests := []httpTest{
		{
			name: "Empty body", body: nil, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"email":            "this field is required",
				"password":         "this field is required",
				"password_confirm": "this field is required",
			}),
		},
		{
			name: "Duplicate email", body: body(existing.Email, "LePassw0rd", "LePassw0rd"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": account.ErrEmailExists.Error()}),
		},
		{name: "Register OK", body: body("newkid@test.cd", "LeNewPassw0rd", "LeNewPassw0rd"), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			env.server.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				checkTokenResponse(t, tt, rec.Code, rec.Body.Bytes())

				acct, err := env.accountSvc.GetByEmail(context.Background(), "newkid@test.cd")
				if err != nil {
					t.Fatalf("GetByEmail() failed: %v", err)
				}
				if !acct.IsStudent() {
					t.Errorf("registered account roles = %v; want student", acct.Roles)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Sign-up disabled", func(t *testing.T) {
		if err := env.settingsSvc.Update(ctx, map[string]string{settings.KeyAllowSignup: "false"}); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		defer func() { _ = env.settingsSvc.Update(ctx, map[string]string{settings.KeyAllowSignup: "true"}) }()

		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "sign-up is disabled"}),
		}
		req, rec := newRequest(http.MethodPost, "/api/auth/register", body("another@test.cd", "LePassw0rd", "LePassw0rd"))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Domain not allowed", func(t *testing.T) {
		if err := env.settingsSvc.Update(ctx, map[string]string{settings.KeyAllowedDomains: "vitstudent.ac.in"}); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		defer func() { _ = env.settingsSvc.Update(ctx, map[string]string{settings.KeyAllowedDomains: ""}) }()

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": errDomainNotAllowed}),
		}
		req, rec := newRequest(http.MethodPost, "/api/auth/register", body("outsider@test.cd", "LePassw0rd", "LePassw0rd"))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		// allowed domain goes through
		req, rec = newRequest(http.MethodPost, "/api/auth/register", body("insider@vitstudent.ac.in", "LePassw0rd", "LePassw0rd"))
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Errorf("failed! code = %v; wantCode %v; body %v", rec.Code, http.StatusCreated, rec.Body.String())
		}
	})
}

func Test_authApi_googleLogin(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()

	body := marchallObj(t, GoogleLoginRequest{IDToken: "le-token"})

	t.Run("Google sign-in disabled", func(t *testing.T) {
		if err := env.settingsSvc.Update(ctx, map[string]string{settings.KeyAllowGoogle: "false"}); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		defer func() { _ = env.settingsSvc.Update(ctx, map[string]string{settings.KeyAllowGoogle: "true"}) }()

		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "google sign-in is disabled"}),
		}
		req, rec := newRequest(http.MethodPost, "/api/auth/google-login", body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Invalid token", func(t *testing.T) {
		env.identity.Returns(account.VerifiedIdentity{}, identitysvc.ErrInvalidToken)

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"id_token": identitysvc.ErrInvalidToken.Error()}),
		}
		req, rec := newRequest(http.MethodPost, "/api/auth/google-login", body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Domain not allowed", func(t *testing.T) {
		env.identity.Returns(account.VerifiedIdentity{
			GoogleID: "g-123", Email: "outsider@test.cd", Name: "Outsider",
		}, nil)
		if err := env.settingsSvc.Update(ctx, map[string]string{settings.KeyAllowedDomains: "vitstudent.ac.in"}); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		defer func() { _ = env.settingsSvc.Update(ctx, map[string]string{settings.KeyAllowedDomains: ""}) }()

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"id_token": errDomainNotAllowed}),
		}
		req, rec := newRequest(http.MethodPost, "/api/auth/google-login", body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("New identity creates a student account", func(t *testing.T) {
		env.identity.Returns(account.VerifiedIdentity{
			GoogleID: "g-456", Email: "fresh@vitstudent.ac.in", Name: "Fresh Face",
		}, nil)

		req, rec := newRequest(http.MethodPost, "/api/auth/google-login", body)
		env.server.ServeHTTP(rec, req)
		checkTokenResponse(t, httpTest{wantCode: http.StatusOK}, rec.Code, rec.Body.Bytes())

		acct, err := env.accountSvc.GetByEmail(ctx, "fresh@vitstudent.ac.in")
		if err != nil {
			t.Fatalf("GetByEmail() failed: %v", err)
		}
		if acct.GoogleID != "g-456" {
			t.Errorf("GoogleID = %v; want g-456", acct.GoogleID)
		}
		if !acct.IsStudent() {
			t.Errorf("roles = %v; want student", acct.Roles)
		}
	})

	t.Run("Existing identity reuses the account", func(t *testing.T) {
		acct := createAccount(t, env.accountRepo, "Hero", "hero@test.cd", "", account.StudentRoles, true)
		env.identity.Returns(account.VerifiedIdentity{
			GoogleID: "g-789", Email: acct.Email, Name: acct.Name,
		}, nil)

		req, rec := newRequest(http.MethodPost, "/api/auth/google-login", body)
		env.server.ServeHTTP(rec, req)
		checkTokenResponse(t, httpTest{wantCode: http.StatusOK}, rec.Code, rec.Body.Bytes())

		got, err := env.accountSvc.GetByEmail(ctx, acct.Email)
		if err != nil {
			t.Fatalf("GetByEmail() failed: %v", err)
		}
		if got.ID != acct.ID {
			t.Errorf("account ID = %v; want %v", got.ID, acct.ID)
		}
	})

	t.Run("Sign-up disabled blocks new identities", func(t *testing.T) {
		if err := env.settingsSvc.Update(ctx, map[string]string{settings.KeyAllowSignup: "false"}); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		defer func() { _ = env.settingsSvc.Update(ctx, map[string]string{settings.KeyAllowSignup: "true"}) }()

		env.identity.Returns(account.VerifiedIdentity{
			GoogleID: "g-999", Email: "gatecrash@test.cd", Name: "Gate Crash",
		}, nil)

		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "sign-up is disabled"}),
		}
		req, rec := newRequest(http.MethodPost, "/api/auth/google-login", body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		if _, err := env.accountSvc.GetByEmail(ctx, "gatecrash@test.cd"); err == nil {
			t.Error("account was created while sign-up is disabled")
		}

		// known identities still sign in
		acct := createAccount(t, env.accountRepo, "Regular", "regular@test.cd", "", account.StudentRoles, true)
		env.identity.Returns(account.VerifiedIdentity{
			GoogleID: "g-111", Email: acct.Email, Name: acct.Name,
		}, nil)
		req, rec = newRequest(http.MethodPost, "/api/auth/google-login", body)
		env.server.ServeHTTP(rec, req)
		checkTokenResponse(t, httpTest{wantCode: http.StatusOK}, rec.Code, rec.Body.Bytes())
	})

	t.Run("Deactivated account rejected", func(t *testing.T) {
		naughty := createAccount(t, env.accountRepo, "N Dog", "ndog@test.cd", "", account.StudentRoles, false)
		env.identity.Returns(account.VerifiedIdentity{
			GoogleID: "g-000", Email: naughty.Email, Name: naughty.Name,
		}, nil)

		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		}
		req, rec := newRequest(http.MethodPost, "/api/auth/google-login", body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_authApi_refreshToken(t *testing.T) {
	env := newTestServer(t)

	naughty := createAccount(t, env.accountRepo, "N Dog", "ndog@test.cd", "", account.StudentRoles, false)
	student := createAccount(t, env.accountRepo, "Hero", "hero@test.cd", "", account.StudentRoles, true)

	now := time.Now()
	unrefreshableClaims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    env.conf.AppName,
			Subject:   student.ID,
			Audience:  "Recruitment",
			ExpiresAt: now.Add(env.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * env.conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Roles:        student.Roles,
		IsStudent:    student.IsStudent(),
	}
	unrefreshableToken, err := GenerateToken(unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Inactive account not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				checkTokenResponse(t, tt, rec.Code, rec.Body.Bytes())
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_resetPassword(t *testing.T) {
	env := newTestServer(t)

	student := createAccount(t, env.accountRepo, "Hero", "hero@test.cd", "LePassw0rd", account.StudentRoles, true)

	wantData := marchallObj(t, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})

	t.Run("Unknown email still succeeds", func(t *testing.T) {
		emailsvc.ClearSentMessages()

		tt := httpTest{wantCode: http.StatusOK, wantData: wantData}
		req, rec := newRequest(http.MethodPost, "/api/auth/password-reset", marchallObj(t, PasswordResetRequest{Email: "lol@test.cd"}))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		if n := len(emailsvc.SentMessages); n != 0 {
			t.Errorf("sent %d emails; want 0", n)
		}
	})

	t.Run("Known email gets the reset email", func(t *testing.T) {
		emailsvc.ClearSentMessages()

		tt := httpTest{wantCode: http.StatusOK, wantData: wantData}
		req, rec := newRequest(http.MethodPost, "/api/auth/password-reset", marchallObj(t, PasswordResetRequest{Email: student.Email}))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		if n := len(emailsvc.SentMessages); n != 1 {
			t.Fatalf("sent %d emails; want 1", n)
		}
		msg := emailsvc.SentMessages[0]
		if len(msg.To) != 1 || msg.To[0].Address != student.Email {
			t.Errorf("email recipients = %v; want %v", msg.To, student.Email)
		}
		if !strings.Contains(strings.ToLower(msg.Subject), "password") {
			t.Errorf("email subject = %q; want a password reset subject", msg.Subject)
		}
	})
}

func checkTokenResponse(t *testing.T, tt httpTest, code int, body []byte) {
	t.Helper()
	if code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %v", code, tt.wantCode, string(body))
	}
	var respData LoginResponse
	if err := json.Unmarshal(body, &respData); err != nil {
		t.Errorf("json.Unmarshal() failed! err %v", err)
	}
	if respData.Token == "" {
		t.Error("failed! empty token")
	}
}
