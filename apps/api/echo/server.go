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

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/mark"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/roster"
	"github.com/trezcool/shule/core/school"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Resolver   *school.Resolver
		RosterSvc  *roster.Service
		MarkSvc    *mark.Service
		ReportSvc  *report.Service
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		deps       ServerDeps
		app        *echo.Echo
		errCh      chan error
		shutdownCh chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:       deps,
		app:        echo.New(),
		errCh:      make(chan error, 1),
		shutdownCh: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdownCh, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.Conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.deps.Conf.Debug || s.deps.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = s.deps.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	v1.GET("/tenants", s.queryTenants)

	// everything below runs against the tenant the request marks
	tg := v1.Group("", tenantMiddleware(s.deps.Resolver))

	registerRosterAPI(tg, s.deps.RosterSvc, s.deps.MarkSvc, s.deps.Validate)
	registerMarkAPI(tg, s.deps.MarkSvc, s.deps.Validate)
	registerReportAPI(tg, s.deps.ReportSvc, s.deps.Validate)
}

func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errCh <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errCh }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdownCh }

func (s *Server) signalShutdown() {
	s.shutdownCh <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Shule API!")
}

func (s *Server) queryTenants(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"default": s.deps.Resolver.Default(),
		"tenants": s.deps.Resolver.Codes(),
	})
}
