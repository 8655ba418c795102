package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/core/guard"
	"github.com/codetrail/codetrail/core/resolver"
	"github.com/codetrail/codetrail/core/user"
	"github.com/codetrail/codetrail/services/identity/token"
)

type (
	Options struct {
		Address        string
		Debug          bool
		TestMode       bool
		DisableReqLogs bool
		SessionCookie  string
		ResolveWait    time.Duration // how long a guarded page waits for the role
		RoleAPIKey     string        // required by the role endpoint; only debug and test runs may leave it empty
	}

	Deps struct {
		Logger   core.Logger
		Users    *user.Service
		Tokens   *token.Manager
		Resolver *resolver.Resolver
		Routes   *guard.Routes
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		opts     Options
		deps     Deps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts Options, deps Deps) Server {
	if deps.Routes == nil {
		deps.Routes = guard.DefaultRoutes()
	}
	if opts.SessionCookie == "" {
		opts.SessionCookie = "codetrail_session"
	}
	s := &server{
		opts:     opts,
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.opts.Debug || s.opts.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Tokens, s.signalShutdown)
	s.app.Debug = s.opts.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)
	registerPages(s.app, s.opts, s.deps)
	registerRoleAPI(s.app, s.opts, s.deps)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(s.deps.Tokens))
	registerAuthAPI(v1, jwt, s.opts, s.deps)
	registerUserAPI(v1, jwt, s.opts, s.deps)
}

func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
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
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to CodeTrail!")
}
