package main

import (
	"context"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"weblabs/blog"
	"weblabs/ratelimit"
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
		dbPath = "blog.db"
	}
	pageSize := 10
	if v := os.Getenv("COMMENTS_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatalf("invalid COMMENTS_PAGE_SIZE: %q", v)
		}
		pageSize = n
	}

	db, err := sqlitex.Open(dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	store := blog.New(db, pageSize)
	if err := store.Init(context.Background()); err != nil {
		log.Fatalf("init schema: %v", err)
	}

	// Anti-spam: at most 3 comments per 5 minutes per client address.
	limiter := ratelimit.New(3, 5*time.Minute)

	e := web.New("blog", logger)
	blog.Register(e, store, limiter, logger)
	webRoot := os.Getenv("WEB_ROOT")
	web.Static(e, webRoot)
	blog.RegisterViews(e, webRoot)

	e.Logger.Fatal(e.Start(web.ListenAddr()))
}
