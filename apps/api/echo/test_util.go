package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/vitccacm/recruitment-portal/core"
	"github.com/vitccacm/recruitment-portal/core/account"
	"github.com/vitccacm/recruitment-portal/core/application"
	"github.com/vitccacm/recruitment-portal/core/department"
	"github.com/vitccacm/recruitment-portal/core/profile"
	"github.com/vitccacm/recruitment-portal/core/question"
	"github.com/vitccacm/recruitment-portal/core/round"
	"github.com/vitccacm/recruitment-portal/core/settings"
	appfs "github.com/vitccacm/recruitment-portal/fs"
	emailsvc "github.com/vitccacm/recruitment-portal/services/email"
	identitysvc "github.com/vitccacm/recruitment-portal/services/identity"
	uploadsvc "github.com/vitccacm/recruitment-portal/services/upload"
	inmemdb "github.com/vitccacm/recruitment-portal/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

// testServer bundles the API under test with the backing repositories so
// tests can seed data directly.
type testServer struct {
	server Server
	conf   *core.Config

	accountRepo     account.Repository
	departmentRepo  department.Repository
	applicationRepo application.Repository
	questionRepo    question.Repository
	roundRepo       round.Repository
	settingsRepo    settings.Repository
	profileRepo     profile.Repository

	accountSvc  *account.Service
	settingsSvc *settings.Service
	identity    identityMock
}

// identityMock lets each test swap the canned verification outcome.
type identityMock interface {
	identitysvc.Verifier
	Returns(identity account.VerifiedIdentity, err error)
}

func newTestConfig() *core.Config {
	return &core.Config{
		TestMode: true,
		Env:      "TEST",

		AppName:          "Recruitment Portal",
		SecretKey:        "secret",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Recruitment Portal", Address: "noreply@localhost"},
		UploadDir:        "uploads",

		DefaultAdminEmail: "root@test.cd",

		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		GoogleClientID:            "test-client-id",

		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	conf := newTestConfig()
	logger := newTestLogger()

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesRoot, conf, logger)
	account.LoadCommonPasswords(appfs.FS, logger)
	account.InitResetTokenGenerator(conf)

	db := inmemdb.NewDB()
	accountRepo := inmemdb.NewAccountRepository(db)
	departmentRepo := inmemdb.NewDepartmentRepository(db)
	applicationRepo := inmemdb.NewApplicationRepository(db)
	questionRepo := inmemdb.NewQuestionRepository(db)
	roundRepo := inmemdb.NewRoundRepository(db)
	settingsRepo := inmemdb.NewSettingRepository(db)
	profileRepo := inmemdb.NewProfileFieldRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	accountSvc := account.NewServiceMock(accountRepo, mailSvc, conf)
	questionSvc := question.NewService(questionRepo)
	roundSvc := round.NewService(roundRepo, departmentRepo, applicationRepo)
	departmentSvc := department.NewService(departmentRepo, roundSvc)
	applicationSvc := application.NewServiceMock(applicationRepo, departmentSvc, questionSvc, mailSvc, conf)
	settingsSvc := settings.NewService(settingsRepo)
	profileSvc := profile.NewService(profileRepo)

	identity := identitysvc.NewVerifierMock(account.VerifiedIdentity{}, identitysvc.ErrInvalidToken)

	srv := NewServer(&Options{
		Address:        "localhost:0",
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		SignalShutdown: func() {},
		DisableReqLogs: true,

		AccountSvc:     accountSvc,
		DepartmentSvc:  departmentSvc,
		ApplicationSvc: applicationSvc,
		QuestionSvc:    questionSvc,
		RoundSvc:       roundSvc,
		SettingsSvc:    settingsSvc,
		ProfileSvc:     profileSvc,
		Identity:       identity,
		Uploads:        uploadsvc.NewServiceMock(),
	})

	return &testServer{
		identity:        identity,
		server:          srv,
		conf:            conf,
		accountRepo:     accountRepo,
		departmentRepo:  departmentRepo,
		applicationRepo: applicationRepo,
		questionRepo:    questionRepo,
		roundRepo:       roundRepo,
		settingsRepo:    settingsRepo,
		profileRepo:     profileRepo,
		accountSvc:      accountSvc,
		settingsSvc:     settingsSvc,
	}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newTestLogger() core.Logger {
	return &stdLogger{std: log.New(io.Discard, "", 0)}
}

// stdLogger drops everything; API tests assert on responses, not logs.
type stdLogger struct {
	std *log.Logger
}

func (l *stdLogger) Debug(msg string, args ...interface{}) { l.std.Println(msg, args) }
func (l *stdLogger) Info(msg string, args ...interface{})  { l.std.Println(msg, args) }
func (l *stdLogger) Warn(msg string, args ...interface{})  { l.std.Println(msg, args) }
func (l *stdLogger) Error(msg string, args ...interface{}) { l.std.Println(msg, args) }
func (l *stdLogger) Fatal(msg string, args ...interface{}) { l.std.Println(msg, args) }

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, acct account.Account) string {
	t.Helper()
	claims := GetAccountClaims(acct)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func createAccount(
	t *testing.T,
	repo account.Repository,
	name, email, pwd string,
	roles []string,
	isActive bool,
	deptID ...string,
) account.Account {
	t.Helper()

	now := time.Now().UTC()
	acct := account.Account{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	acct.SetActive(isActive)
	if len(deptID) > 0 {
		acct.DepartmentID = deptID[0]
	}
	if pwd != "" {
		if err := acct.SetPassword(pwd); err != nil {
			t.Fatalf("createAccount() failed: %v", err)
		}
	}
	acct, err := repo.CreateAccount(context.Background(), acct)
	if err != nil {
		t.Fatalf("createAccount() failed: %v", err)
	}
	return acct
}

func createDepartment(
	t *testing.T,
	repo department.Repository,
	name string,
	isActive bool,
	window ...time.Time,
) department.Department {
	t.Helper()

	now := time.Now().UTC()
	dept := department.Department{
		ID:        uuid.New().String(),
		Name:      name,
		Positions: "Member",
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(window) > 0 {
		dept.RecruitmentStart = window[0]
	}
	if len(window) > 1 {
		dept.RecruitmentEnd = window[1]
	}
	dept, err := repo.CreateDepartment(context.Background(), dept)
	if err != nil {
		t.Fatalf("createDepartment() failed: %v", err)
	}
	return dept
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
