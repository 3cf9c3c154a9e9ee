package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/storage/database"
	inmemdb "github.com/huyld1504/SchoolMedicalCareSystem-sub005/storage/database/inmem"
	sqlxrepos "github.com/huyld1504/SchoolMedicalCareSystem-sub005/storage/database/sqlx"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/storage/document"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	cli, closeFunc, err := setUp(conf)
	if err != nil {
		logger.Fatal(err)
	}

	err = cli.run(os.Args)
	closeFunc()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

// setUp connects to the stores the commands work on.
func setUp(conf *core.Config) (*commandLine, func(), error) {
	if conf.Storage == "memory" {
		return &commandLine{usrSvc: user.NewService(inmemdb.NewUserRepository(inmemdb.NewDB()))}, func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), conf.DocumentStore.OpTimeout)
	defer cancel()

	db, err := database.Open(conf)
	if err != nil {
		return nil, nil, err
	}
	if err = database.StatusCheck(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	// the document store is only needed by `ensureindexes`
	client, docDB, err := document.Open(ctx, conf)
	if err != nil {
		logger.Printf("document store unavailable: %v", err)
	}

	closeFunc := func() {
		closeDocumentStore(client, conf)
		if err := db.Close(); err != nil {
			logger.Printf("closing database: %v", err)
		}
	}
	return newCommandLine(db.DB, docDB, sqlxrepos.NewUserRepository(db)), closeFunc, nil
}

func newCommandLine(db *sql.DB, docDB *mongo.Database, usrRepo user.Repository) *commandLine {
	return &commandLine{
		db:     db,
		docDB:  docDB,
		usrSvc: user.NewService(usrRepo),
	}
}

func closeDocumentStore(client *mongo.Client, conf *core.Config) {
	if client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), conf.DocumentStore.OpTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Printf("closing document store: %v", err)
	}
}
