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

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/nae-imUam/coaching-app-api/apps/api/echo"
	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/attendance"
	"github.com/nae-imUam/coaching-app-api/core/batch"
	"github.com/nae-imUam/coaching-app-api/core/dashboard"
	"github.com/nae-imUam/coaching-app-api/core/exam"
	"github.com/nae-imUam/coaching-app-api/core/fee"
	"github.com/nae-imUam/coaching-app-api/core/owner"
	"github.com/nae-imUam/coaching-app-api/core/student"
	cachesvc "github.com/nae-imUam/coaching-app-api/services/cache"
	emailsvc "github.com/nae-imUam/coaching-app-api/services/email"
	logsvc "github.com/nae-imUam/coaching-app-api/services/logger"
	mediasvc "github.com/nae-imUam/coaching-app-api/services/media"
	"github.com/nae-imUam/coaching-app-api/storage/database"
	boiledrepos "github.com/nae-imUam/coaching-app-api/storage/database/sqlboiler"
	sqlxrepos "github.com/nae-imUam/coaching-app-api/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

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

	// set up services
	cache := cachesvc.New(conf.Redis, logger)
	media := mediasvc.NewFileStore(conf.Media)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	owner.InitValidators(validate, translator)
	exam.InitValidators(validate, translator)

	ownerRepo := boiledrepos.NewOwnerRepository(db)
	batchRepo := boiledrepos.NewBatchRepository(db)
	studentRepo := boiledrepos.NewStudentRepository(db)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

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
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			Cache:         cache,
			Media:         media,
			OwnerSvc:      owner.NewService(ownerRepo, mailSvc, validate),
			BatchSvc:      batch.NewService(batchRepo, validate),
			StudentSvc:    student.NewService(studentRepo, batchRepo, validate),
			Ledger:        fee.NewLedger(boiledrepos.NewPaymentRepository(db), studentRepo, batchRepo, validate),
			AttendanceSvc: attendance.NewService(boiledrepos.NewAttendanceRepository(db), studentRepo, batchRepo, validate),
			ExamSvc:       exam.NewService(boiledrepos.NewExamRepository(db), studentRepo, batchRepo, validate),
			DashboardSvc:  dashboard.NewService(sqlxrepos.NewDashboardRepository(db)),
			Validate:      validate,
			Translator:    translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
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

	if err = database.Migrate(db, "up"); err != nil {
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
