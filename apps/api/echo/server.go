package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/bbpbat/portal/core"
	"github.com/bbpbat/portal/core/attendance"
	"github.com/bbpbat/portal/services/portalapi"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		API        *portalapi.Client
		Validate   *validator.Validate
		Translator ut.Translator
		Gate       *attendance.Gate // optional
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
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.API, "API"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
	).Check()
	if err != nil {
		panic(errors.Wrap(err, "echoapi.NewServer"))
	}
	if deps.Gate == nil {
		deps.Gate = attendance.NewGate()
	}

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

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		ExposeHeaders: []string{headerAccessToken, echo.HeaderXRequestID},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator)
	s.app.Debug = conf.Debug && !conf.TestMode
	if conf.Debug {
		s.app.Logger.SetLevel(log.DEBUG)
	}

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	auth := sessionMiddleware()

	registerAuthAPI(v1, auth, s.deps.API, s.deps.Validate)
	registerAttendanceAPI(v1, auth, attendanceApi{
		api:        s.deps.API,
		logger:     s.deps.Logger,
		validate:   s.deps.Validate,
		translator: s.deps.Translator,
		gate:       s.deps.Gate,
		zone:       conf.Zone(),
		opts:       conf.PositionOptions(),
		allowance:  conf.Geolocation.ReportAllowance,
		location:   conf.Location(),
	})
	registerProgramAPI(v1, auth, programApi{
		api:        s.deps.API,
		logger:     s.deps.Logger,
		validate:   s.deps.Validate,
		translator: s.deps.Translator,
	})
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

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"name":  s.deps.Conf.AppName,
		"build": s.deps.Conf.Build,
		"time":  time.Now().In(s.deps.Conf.Location()).Format(time.RFC3339),
	})
}
