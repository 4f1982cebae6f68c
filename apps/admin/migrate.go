package main

import (
	"github.com/trezcool/homeroom/storage/database"
)

var (
	gooseRunFunc = database.Run              // mockable
	createDBFunc = database.CreateIfNotExist // mockable
)

func (cli *commandLine) migrate(args []string) error {
	svcs, err := cli.connect()
	if err != nil {
		return err
	}
	return gooseRunFunc(args[0], svcs.db, args[1:]...)
}
