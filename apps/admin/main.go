package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/notice"
	"github.com/trezcool/homeroom/core/push"
	logsvc "github.com/trezcool/homeroom/services/logger"
	"github.com/trezcool/homeroom/storage/database"
	sqlxrepos "github.com/trezcool/homeroom/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewStdLogger("ADMIN : ", conf)
	logger.Enable(!conf.Debug)

	// start CLI
	cli := commandLine{
		conf: conf,
		out:  os.Stdout,
		open: func() (*services, error) {
			return openServices(conf, logger)
		},
	}
	err := cli.run(os.Args)
	cli.close()
	if err != nil {
		if err != errHelp {
			log.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

// openServices connects to the application database and wires the services on top of it.
func openServices(conf *core.Config, logger core.Logger) (*services, error) {
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	push.InitValidators(validate, translator)

	return &services{
		db:        db.DB,
		pushSvc:   push.NewService(sqlxrepos.NewSubscriptionRepository(db), push.NewSigningContext(conf.Vapid), nil, validate, logger, conf.Push),
		noticeSvc: notice.NewService(sqlxrepos.NewNoticeRepository(db), validate, logger, conf.Jobs),
	}, nil
}
