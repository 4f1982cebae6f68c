package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core/notice"
	"github.com/trezcool/homeroom/core/push"
)

var errUnknownJob = errors.New("unknown job")

func (cli *commandLine) notify(rec push.NotificationRecord) error {
	svcs, err := cli.connect()
	if err != nil {
		return err
	}
	n, err := svcs.noticeSvc.Notify(context.Background(), rec)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "notification #%d inserted\n", n.ID)
	return nil
}

func (cli *commandLine) dispatch(rec push.NotificationRecord) error {
	svcs, err := cli.connect()
	if err != nil {
		return err
	}
	res, err := svcs.pushSvc.Dispatch(context.Background(), rec)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "sent %d/%d\n", res.Sent, res.Total)
	return nil
}

func (cli *commandLine) job(name string) error {
	svcs, err := cli.connect()
	if err != nil {
		return err
	}

	jobs := map[string]func(context.Context) (notice.JobResult, error){
		"daily":      svcs.noticeSvc.SendDaily,
		"events":     svcs.noticeSvc.SendEvents,
		"freenotice": svcs.noticeSvc.ProcessFreeNotice,
		"cleanup":    svcs.noticeSvc.Cleanup,
	}
	run, ok := jobs[name]
	if !ok {
		return errors.Wrap(errUnknownJob, name)
	}

	res, err := run(context.Background())
	if err != nil {
		return err
	}
	out, err := json.Marshal(res)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, string(out))
	return nil
}
