package main

import (
	"context"
	"expvar"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/homeroom/apps/api/echo"
	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/notice"
	"github.com/trezcool/homeroom/core/push"
	locksvc "github.com/trezcool/homeroom/services/lock"
	logsvc "github.com/trezcool/homeroom/services/logger"
	"github.com/trezcool/homeroom/storage/database"
	inmemdb "github.com/trezcool/homeroom/storage/database/inmem"
	sqlxrepos "github.com/trezcool/homeroom/storage/database/sqlx"
)

func main() {
	inmem := flag.Bool("inmem", false, "keep everything in memory (no postgres, no redis)")
	flag.Parse()

	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewStdLogger("API : ", conf)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewStdLogger("DB : ", conf)
	dbLogger.Enable(!conf.Debug)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	push.InitValidators(validate, translator)

	signer := push.NewSigningContext(conf.Vapid)
	if err := signer.Ready(); err != nil {
		// the /v1 endpoints stay up; every dispatch answers 500 until the keys are fixed
		logger.Error("loading vapid keys", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// set up storage & services
	var (
		pushSvc   *push.Service
		noticeSvc *notice.Service
	)
	if *inmem {
		db := inmemdb.Open()
		pushSvc = push.NewService(inmemdb.NewSubscriptionRepository(db), signer, nil, validate, logger, conf.Push)
		noticeSvc = notice.NewService(inmemdb.NewNoticeRepository(db), validate, logger, conf.Jobs)

		// stands in for the insert trigger
		db.OnNotificationInsert(func(rec push.NotificationRecord) {
			go func() {
				if _, err := pushSvc.Dispatch(ctx, rec); err != nil {
					logger.Error("dispatching inserted notification", err)
				}
			}()
		})
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

		var guard push.DispatchGuard
		if conf.Redis.Address != "" {
			rg := locksvc.NewRedisGuard(conf.Redis)
			if err = rg.Ping(ctx); err != nil {
				logger.Warn(fmt.Sprintf("redis unavailable at %s", conf.Redis.Address), err)
			}
			defer func() { _ = rg.Close() }()
			guard = rg
		}

		pushSvc = push.NewService(sqlxrepos.NewSubscriptionRepository(db), signer, guard, validate, logger, conf.Push)
		noticeSvc = notice.NewService(sqlxrepos.NewNoticeRepository(db), validate, logger, conf.Jobs)

		if conf.Trigger.Listen {
			listener := database.NewListener(database.URL(conf.Database.Name, false, conf), conf.Trigger.Channel, pushSvc.HandleInsertEvent, dbLogger)
			go func() {
				if err := listener.Listen(ctx); err != nil {
					dbLogger.Error("notification listener stopped", err)
				}
			}()
		}
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			PushSvc:    pushSvc,
			NoticeSvc:  noticeSvc,
			Validate:   validate,
			Translator: translator,
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
		cancel() // stop the listener

		// give outstanding requests a deadline for completion
		sctx, scancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer scancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(sctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
