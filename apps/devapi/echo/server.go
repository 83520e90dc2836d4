// Package echoapi is an in-memory implementation of the TripSync REST API, for local
// development and integration tests. It is not the production API.
package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/tripsync/core"
)

type (
	Options struct {
		Address        string
		AppName        string
		SecretKey      string
		TokenTTL       time.Duration
		Debug          bool
		DisableReqLogs bool
		Logger         core.Logger
		DB             *DB
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
		GenerateToken(claims *Claims) (string, error)
	}

	server struct {
		opts *Options
		db   *DB
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

// NewServer builds the server over opts.DB (an empty DB when nil).
func NewServer(opts *Options) Server {
	if opts.DB == nil {
		opts.DB = NewDB(0)
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = 7 * 24 * time.Hour
	}
	s := &server{
		opts: opts,
		db:   opts.DB,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in debug mode
	if !s.opts.Debug {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newHTTPErrorHandler(s.opts.Logger)
	s.app.Debug = s.opts.Debug

	s.app.GET("/", home)

	api := s.app.Group("/api")
	api.POST("/login", s.login)

	authed := api.Group("", middleware.JWTWithConfig(s.jwtConfig()))
	anyone := s.roleMiddleware()
	student := s.roleMiddleware(RoleStudent)
	driver := s.roleMiddleware(RoleDriver)
	parent := s.roleMiddleware(RoleParent)
	admin := s.roleMiddleware(RoleAdmin)

	authed.POST("/auth/register", s.register, admin)
	authed.POST("/auth/change-password", s.changePassword, anyone)

	s.registerStudentAPI(authed, anyone, student)
	s.registerDriverAPI(authed, driver, admin)
	s.registerBusAPI(authed, anyone, driver)
	s.registerAdminAPI(authed, admin)
	s.registerMessagingAPI(authed, student, driver, parent, admin)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the TripSync dev API!")
}
