package echoapi

import (
	"context"
	"net/http"
	"sync"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/dig"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/course"
	"github.com/trezcool/sanaa/core/enrollment"
	"github.com/trezcool/sanaa/core/media"
	"github.com/trezcool/sanaa/core/user"
)

type (
	// Deps are the Server dependencies, filled in by the dig container.
	Deps struct {
		dig.In

		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		UserSvc    user.Service
		CourseSvc  course.Service
		EnrollSvc  enrollment.Service
		MediaSvc   media.Service
	}

	Server struct {
		conf         *core.Config
		app          *echo.Echo
		shutdown     chan struct{}
		shutdownOnce sync.Once
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps Deps) *Server {
	s := &Server{
		conf:     deps.Conf,
		app:      echo.New(),
		shutdown: make(chan struct{}),
	}
	s.setup(deps)
	return s
}

func (s *Server) setup(deps Deps) {
	conf := deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(tracingMiddleware())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  conf.Server.CORSOrigins,
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{headerRateLimitRemaining},
	}))
	if conf.Server.BodyLimit != "" {
		s.app.Use(middleware.BodyLimit(conf.Server.BodyLimit))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	if conf.Storage.Backend == "local" {
		s.app.Static("/media", conf.Storage.LocalDir)
	}

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))
	optionalJWT := middleware.JWTWithConfig(newOptionalJWTConfig(conf))

	registerUserAPI(v1, jwt, conf, deps.UserSvc, deps.Validate)
	registerCourseAPI(v1, jwt, optionalJWT, deps.CourseSvc, deps.Validate)
	registerEnrollmentAPI(v1, jwt, deps.EnrollSvc, deps.Validate)
	registerMediaAPI(v1, jwt, deps.MediaSvc, deps.Validate)
}

// Start blocks serving requests until the Server is shut down.
func (s *Server) Start() error {
	if err := s.app.Start(s.conf.Server.Host); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the Server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// ShutdownRequested is closed once a handler hit an unrecoverable error.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
