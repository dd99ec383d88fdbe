package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/vitccacm/recruitment-portal/apps/api/echo"
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
	logsvc "github.com/vitccacm/recruitment-portal/services/logger"
	uploadsvc "github.com/vitccacm/recruitment-portal/services/upload"
	"github.com/vitccacm/recruitment-portal/storage/database"
	sqlxrepos "github.com/vitccacm/recruitment-portal/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()
	dbx := sqlx.NewDb(db, conf.Database.Engine)

	// set up repositories
	accountRepo := sqlxrepos.NewAccountRepository(dbx)
	departmentRepo := sqlxrepos.NewDepartmentRepository(dbx)
	applicationRepo := sqlxrepos.NewApplicationRepository(dbx)
	questionRepo := sqlxrepos.NewQuestionRepository(dbx)
	roundRepo := sqlxrepos.NewRoundRepository(dbx)
	settingsRepo := sqlxrepos.NewSettingsRepository(dbx)
	profileRepo := sqlxrepos.NewProfileRepository(dbx)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	accountSvc := account.NewService(accountRepo, mailSvc, conf)
	questionSvc := question.NewService(questionRepo)
	roundSvc := round.NewService(roundRepo, departmentRepo, applicationRepo)
	departmentSvc := department.NewService(departmentRepo, roundSvc)
	applicationSvc := application.NewService(applicationRepo, departmentSvc, questionSvc, mailSvc, conf)
	settingsSvc := settings.NewService(settingsRepo)
	profileSvc := profile.NewService(profileRepo)
	identitySvc := identitysvc.NewGoogleService(conf)
	uploadSvc := uploadsvc.NewLocalService(conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesRoot, conf, logger)

	account.LoadCommonPasswords(appfs.FS, logger)
	account.InitResetTokenGenerator(conf)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Address:        conf.Server.Address(),
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },

		AccountSvc:     accountSvc,
		DepartmentSvc:  departmentSvc,
		ApplicationSvc: applicationSvc,
		QuestionSvc:    questionSvc,
		RoundSvc:       roundSvc,
		SettingsSvc:    settingsSvc,
		ProfileSvc:     profileSvc,
		Identity:       identitySvc,
		Uploads:        uploadSvc,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
