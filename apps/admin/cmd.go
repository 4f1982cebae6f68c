package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/notice"
	"github.com/trezcool/homeroom/core/push"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type (
	dispatcher interface {
		Dispatch(ctx context.Context, rec push.NotificationRecord) (push.Result, error)
	}

	noticeService interface {
		Notify(ctx context.Context, rec push.NotificationRecord) (notice.Notification, error)
		SendDaily(ctx context.Context) (notice.JobResult, error)
		SendEvents(ctx context.Context) (notice.JobResult, error)
		ProcessFreeNotice(ctx context.Context) (notice.JobResult, error)
		Cleanup(ctx context.Context) (notice.JobResult, error)
	}

	services struct {
		db        *sql.DB
		pushSvc   dispatcher
		noticeSvc noticeService
	}

	commandLine struct {
		conf *core.Config
		out  io.Writer
		open func() (*services, error) // only called by commands needing the database
		svcs *services
	}
)

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  genvapid - generate a new VAPID key pair")
	fmt.Fprintln(cli.out, "  pubkey - derive the public key of a VAPID private key (prompted next)")
	fmt.Fprintln(cli.out, "  createdb - create the app role and database if they do not exist")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  notify -title TITLE [-message MSG] [-url URL] [-type TYPE] - insert a notification")
	fmt.Fprintln(cli.out, "  dispatch -title TITLE [-message MSG] [-url URL] [-type TYPE] - push to every subscriber now")
	fmt.Fprintln(cli.out, "  job daily|events|freenotice|cleanup - run a notification job")
}

func (cli *commandLine) connect() (*services, error) {
	if cli.svcs == nil {
		svcs, err := cli.open()
		if err != nil {
			return nil, err
		}
		cli.svcs = svcs
	}
	return cli.svcs, nil
}

func (cli *commandLine) close() {
	if cli.svcs != nil && cli.svcs.db != nil {
		_ = cli.svcs.db.Close()
	}
}

func recordFlags(fs *flag.FlagSet) func() push.NotificationRecord {
	title := fs.String("title", "", "The notification title.")
	message := fs.String("message", "", "The notification body.")
	url := fs.String("url", "/", "The page opened when the notification is clicked.")
	typ := fs.String("type", push.TypeTest, "One of daily, event, free, test.")
	return func() push.NotificationRecord {
		return push.NotificationRecord{Title: *title, Message: *message, URL: *url, Type: *typ}
	}
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	notifyCmd := flag.NewFlagSet("notify", flag.ContinueOnError)
	notifyRec := recordFlags(notifyCmd)
	dispatchCmd := flag.NewFlagSet("dispatch", flag.ContinueOnError)
	dispatchRec := recordFlags(dispatchCmd)

	switch args[1] {
	case "genvapid":
		return cli.genVapid()

	case "pubkey":
		fmt.Fprint(cli.out, "Enter private key:")
		key, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(key) == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.publicKey(string(key))

	case "createdb":
		return createDBFunc(cli.conf)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "notify":
		if err := notifyCmd.Parse(args[2:]); err != nil {
			return err
		}
		rec := notifyRec()
		if core.CleanString(rec.Title) == "" {
			notifyCmd.Usage()
			return errHelp
		}
		return cli.notify(rec)

	case "dispatch":
		if err := dispatchCmd.Parse(args[2:]); err != nil {
			return err
		}
		rec := dispatchRec()
		if core.CleanString(rec.Title) == "" {
			dispatchCmd.Usage()
			return errHelp
		}
		return cli.dispatch(rec)

	case "job":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.job(args[2])

	default:
		cli.printUsage()
		return errHelp
	}
}
