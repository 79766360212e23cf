package main

import (
	"log"
	"os"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/user"
	logsvc "github.com/trezcool/sanaa/services/logger"
	"github.com/trezcool/sanaa/storage/database"
	sqlxrepos "github.com/trezcool/sanaa/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	if err = db.Ping(); err != nil {
		logger.Fatal("pinging database", err)
	}

	// start CLI
	cli := commandLine{
		db:     db,
		usrSvc: user.NewService(sqlxrepos.NewUserRepository(db)),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}
