package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/vitccacm/recruitment-portal/core"
	"github.com/vitccacm/recruitment-portal/core/account"
	"github.com/vitccacm/recruitment-portal/core/application"
	"github.com/vitccacm/recruitment-portal/core/department"
	"github.com/vitccacm/recruitment-portal/core/profile"
	"github.com/vitccacm/recruitment-portal/core/question"
	"github.com/vitccacm/recruitment-portal/core/round"
	"github.com/vitccacm/recruitment-portal/core/settings"
	identitysvc "github.com/vitccacm/recruitment-portal/services/identity"
	uploadsvc "github.com/vitccacm/recruitment-portal/services/upload"
)

type (
	Options struct {
		Address        string
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		SignalShutdown func()
		DisableReqLogs bool

		AccountSvc     *account.Service
		DepartmentSvc  *department.Service
		ApplicationSvc *application.Service
		QuestionSvc    *question.Service
		RoundSvc       *round.Service
		SettingsSvc    *settings.Service
		ProfileSvc     *profile.Service
		Identity       identitysvc.Verifier
		Uploads        uploadsvc.Service
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf
	initAuth(conf)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	api := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerAuthAPI(api, jwt, s.opts)

	admin := api.Group("/admin", jwt, adminMiddleware())
	dept := api.Group("/dept", jwt, deptAdminMiddleware())
	student := api.Group("/student", jwt, studentMiddleware())

	registerAccountAPI(admin, s.opts)
	registerDepartmentAPI(admin, dept, student, s.opts)
	registerApplicationAPI(admin, dept, student, s.opts)
	registerRoundAPI(admin, dept, student, s.opts)
	registerQuestionAPI(admin, dept, student, s.opts)
	registerSettingsAPI(admin, s.opts)
	registerProfileAPI(admin, student, s.opts)
	registerDashboardAPI(admin, dept, student, s.opts)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Recruitment Portal API!")
}
