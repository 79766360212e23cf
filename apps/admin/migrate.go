package main

import (
	"github.com/trezcool/sanaa/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(command string, args ...string) error {
	return gooseRunFunc(cli.db, command, args...)
}
