package main

import (
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	appfs "github.com/trezcool/academia/fs"
)

var gooseRunFunc = goose.RunFS // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errors.New("migrate needs an SQL database engine")
	}
	if err := goose.SetDialect(cli.db.DriverName()); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}

	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db.DB, appfs.FS, appfs.MigrationsDir(cli.db.DriverName()), arguments...)
}
