package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/compliance"
	logsvc "github.com/trezcool/bitacora/services/logger"
	"github.com/trezcool/bitacora/storage"
	"github.com/trezcool/bitacora/storage/database"
)

func main() {
	conf := core.NewConfig()

	stdLogger := log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	compliance.InitValidators(validate, translator, compliance.NewCatalog(conf))

	// start CLI
	cli := commandLine{
		conf:     conf,
		logger:   logger,
		validate: validate,
		out:      os.Stdout,
		openDB: func(ctx context.Context) (*sql.DB, error) {
			if err := database.CreateIfNotExist(ctx, conf); err != nil {
				return nil, err
			}
			db, err := database.Open(ctx, conf)
			if err != nil {
				return nil, err
			}
			return db.DB, nil
		},
		openStore: func(ctx context.Context) (compliance.Repository, storage.CloseFunc, error) {
			return storage.Open(ctx, conf, logger)
		},
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
