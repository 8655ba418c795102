package main

import (
	"github.com/codetrail/codetrail/apps/di"
	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/storage/database"
)

var migrateFunc = func(conf *core.Config, command string, args ...string) error { // mockable
	db, err := di.OpenDB(conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return database.Migrate(db, command, args...)
}

func (cli *commandLine) migrate(args []string) error {
	return migrateFunc(cli.conf, args[0], args[1:]...)
}
