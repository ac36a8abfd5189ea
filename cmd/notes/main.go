package main

import (
	"context"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	"weblabs/notes"
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
		dbPath = "notes.db"
	}
	db, err := sqlitex.Open(dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	store := notes.New(db)
	if err := store.Init(context.Background()); err != nil {
		log.Fatalf("init schema: %v", err)
	}

	e := web.New("notes", logger)
	notes.Register(e, store, logger)
	web.Static(e, os.Getenv("WEB_ROOT"))

	e.Logger.Fatal(e.Start(web.ListenAddr()))
}
