package main

import (
	"context"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	"weblabs/library"
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
		dbPath = "library.db"
	}
	pageSize := 20
	if v := os.Getenv("BOOKS_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatalf("invalid BOOKS_PAGE_SIZE: %q", v)
		}
		pageSize = n
	}

	db, err := sqlitex.Open(dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	store := library.New(db, pageSize)
	if err := store.Init(context.Background()); err != nil {
		log.Fatalf("init schema: %v", err)
	}

	e := web.New("library", logger)
	library.Register(e, store, logger)
	web.Static(e, os.Getenv("WEB_ROOT"))

	e.Logger.Fatal(e.Start(web.ListenAddr()))
}
