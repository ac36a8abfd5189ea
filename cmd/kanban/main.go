package main

import (
	"context"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	"weblabs/kanban"
	"weblabs/sqlitex"
	"weblabs/web"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "kanban.db"
	}
	db, err := sqlitex.Open(dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	store := kanban.New(db)
	if err := store.Init(context.Background()); err != nil {
		log.Fatalf("init schema: %v", err)
	}

	e := web.New("kanban", logger)
	kanban.Register(e, store, logger)
	web.Static(e, os.Getenv("WEB_ROOT"))

	e.Logger.Fatal(e.Start(web.ListenAddr()))
}
