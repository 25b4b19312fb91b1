package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/core/attendance"
	"github.com/nae-imUam/coaching-app-api/core/batch"
	"github.com/nae-imUam/coaching-app-api/core/dashboard"
	"github.com/nae-imUam/coaching-app-api/core/exam"
	"github.com/nae-imUam/coaching-app-api/core/fee"
	"github.com/nae-imUam/coaching-app-api/core/owner"
	"github.com/nae-imUam/coaching-app-api/core/student"
)

type (
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		Cache         core.Cache
		Media         core.MediaStore
		OwnerSvc      owner.Service
		BatchSvc      *batch.Service
		StudentSvc    *student.Service
		Ledger        *fee.Ledger
		AttendanceSvc *attendance.Service
		ExamSvc       *exam.Service
		DashboardSvc  *dashboard.Service
		Validate      *validator.Validate
		Translator    ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.BodyLimit(conf.Media.MaxUploadSize))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = conf.TestMode

	s.app.GET("/", home)
	s.app.Static(conf.Media.URL, conf.Media.Root)

	api := s.app.Group("/api")
	auth := newAuthenticator(s.deps.Cache, s.deps.OwnerSvc)
	limit := rateLimit(s.deps.Cache, conf.RateLimit)

	registerOwnerAPI(api, auth, limit, s.deps.OwnerSvc, s.deps.Validate)

	authed := api.Group("", auth.required()...)
	registerBatchAPI(authed, s.deps.BatchSvc)
	registerStudentAPI(authed, s.deps.StudentSvc, s.deps.Ledger, s.deps.Media, s.deps.Logger)
	registerAttendanceAPI(authed, s.deps.AttendanceSvc)
	registerFeeAPI(authed, s.deps.Ledger)
	registerExamAPI(authed, s.deps.ExamSvc)
	registerDashboardAPI(authed, s.deps.DashboardSvc)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}
