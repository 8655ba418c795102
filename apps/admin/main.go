package main

import (
	"log"
	"os"

	"github.com/codetrail/codetrail/apps/di"
	"github.com/codetrail/codetrail/core"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	cli := commandLine{
		conf:    conf,
		out:     os.Stdout,
		tokens:  di.NewTokenManager(conf),
		timeout: conf.RoleService.Timeout * 3,
	}

	// migrations manage the database themselves
	if len(os.Args) < 2 || os.Args[1] != "migrate" {
		dir, err := di.NewDirectory(conf)
		errAndDie(err)
		defer func() { _ = dir.Close() }()

		cli.usrSvc = dir.Users
		cli.fetcher = di.NewRoleFetcher(conf, dir.Users)
	}

	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
