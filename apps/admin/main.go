package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/account"
	appfs "github.com/trezcool/academia/fs"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	boiledrepos "github.com/trezcool/academia/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(false)

	// set up DB
	if conf.Database.Engine == database.Memory {
		logger.Fatal("the admin CLI needs an SQL database engine")
	}
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = db.Close() }()
	if err = database.Ping(db.DB); err != nil {
		logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
	}

	// set up validators & services
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	academic.InitValidators(validate, translator)
	if err = account.LoadCommonPasswords(appfs.FS); err != nil {
		logger.Fatal(fmt.Sprintf("loading common passwords: %v", err), err)
	}

	acadRepo := sqlxrepos.NewAcademicRepository(db)
	accSvc := account.NewService(boiledrepos.NewAccountRepository(db), acadRepo, emailsvc.NewConsoleService(conf), conf)

	// start CLI
	cli := commandLine{
		db:       db,
		validate: validate,
		accSvc:   accSvc,
		acadSvc:  academic.NewService(acadRepo, accSvc),
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("\nerror: %s\n", err))
		}
		_ = db.Close()
		os.Exit(1)
	}
}
