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

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/notice"
	"github.com/trezcool/homeroom/core/push"
)

type (
	PushService interface {
		PublicKey() string
		Dispatch(ctx context.Context, rec push.NotificationRecord) (push.Result, error)
		Subscribe(ctx context.Context, ns push.NewSubscription) (push.PushSubscription, error)
		Unsubscribe(ctx context.Context, endpoint string) error
	}

	NoticeService interface {
		Notify(ctx context.Context, rec push.NotificationRecord) (notice.Notification, error)
		Latest(ctx context.Context) (notice.Notification, error)
		History(ctx context.Context, limit int) ([]notice.Notification, error)
		SendDaily(ctx context.Context) (notice.JobResult, error)
		SendEvents(ctx context.Context) (notice.JobResult, error)
		ProcessFreeNotice(ctx context.Context) (notice.JobResult, error)
		Cleanup(ctx context.Context) (notice.JobResult, error)
	}

	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		PushSvc    PushService
		NoticeSvc  NoticeService
		Validate   *validator.Validate
		Translator ut.Translator
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

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Pre(rootCORSMiddleware)
	s.app.Use(middleware.RequestID())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	registerDispatchAPI(s.app, s.deps.PushSvc)

	v1 := s.app.Group("/v1")
	registerSubscriptionAPI(v1, s.deps.PushSvc)
	registerNotificationAPI(v1, s.deps.NoticeSvc)
	registerJobAPI(v1, s.deps.NoticeSvc)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
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
	default: // already shutting down
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
