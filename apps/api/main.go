package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/lalamika/apps/api/echo"
	"github.com/trezcool/lalamika/core"
	"github.com/trezcool/lalamika/core/complaint"
	"github.com/trezcool/lalamika/core/feedback"
	"github.com/trezcool/lalamika/core/user"
	emailsvc "github.com/trezcool/lalamika/services/email"
	logsvc "github.com/trezcool/lalamika/services/logger"
	"github.com/trezcool/lalamika/storage/database"
	dummydb "github.com/trezcool/lalamika/storage/database/dummy"
	sqlxrepos "github.com/trezcool/lalamika/storage/database/sqlx"
	"github.com/trezcool/lalamika/storage/uploads"
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

	// set up DB & repos
	var (
		usrRepo user.Repository
		cplRepo complaint.Repository
		fbkRepo feedback.Repository
	)
	if conf.Database.Engine == "dummy" {
		db, err := dummydb.Open()
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up dummy database: %v", err), err)
		}
		usrRepo = dummydb.NewUserRepository(db)
		cplRepo = dummydb.NewComplaintRepository(db)
		fbkRepo = dummydb.NewFeedbackRepository(db)
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Error("Failed to close", err)
			}
		}()
		usrRepo = sqlxrepos.NewUserRepository(db)
		cplRepo = sqlxrepos.NewComplaintRepository(db)
		fbkRepo = sqlxrepos.NewFeedbackRepository(db)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(usrRepo, conf)
	cplSvc := complaint.NewService(cplRepo, usrRepo, mailSvc, logger, conf)
	fbkSvc := feedback.NewService(fbkRepo, cplRepo, usrRepo)

	store, err := uploads.NewLocalStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up uploads store: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	complaint.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		&echoapi.Deps{
			Conf:         conf,
			Logger:       logger,
			UserSvc:      usrSvc,
			ComplaintSvc: cplSvc,
			FeedbackSvc:  fbkSvc,
			FileStore:    store,
			UploadsDir:   store.Dir(),
			Validate:     validate,
			Translator:   translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
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
