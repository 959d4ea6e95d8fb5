package main

import (
	"log"
	"os"

	"github.com/trezcool/shule/core"
	clerkaccounts "github.com/trezcool/shule/services/accounts/clerk"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
)

var logger *log.Logger // todo: logger service

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	cli := commandLine{
		conf:       conf,
		rosterRepo: sqlxrepos.NewRosterRepository(),
		accounts:   clerkaccounts.NewService(conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
