package main

import (
	"log"
	"os"

	"github.com/nae-imUam/coaching-app-api/core"
	"github.com/nae-imUam/coaching-app-api/storage/database"
	boiledrepos "github.com/nae-imUam/coaching-app-api/storage/database/sqlboiler"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up DB
	conf := core.Conf
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		db:        db,
		ownerRepo: boiledrepos.NewOwnerRepository(db),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
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
