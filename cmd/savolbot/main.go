package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/savolbot/savolbot/internal/api/http"
	"github.com/savolbot/savolbot/internal/bot"
	"github.com/savolbot/savolbot/internal/catalog"
	"github.com/savolbot/savolbot/internal/config"
	"github.com/savolbot/savolbot/internal/db"
	"github.com/savolbot/savolbot/internal/results"
	"github.com/savolbot/savolbot/internal/session"
	"github.com/savolbot/savolbot/internal/storage"
)

func main() {
	initOnly := flag.Bool("init", false, "create the schema and exit")
	importPath := flag.String("import", "", "import a tests JSON file and exit")
	flag.Parse()

	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := catalog.NewSQLStore(dbh)

	if *initOnly {
		log.Printf("schema ready (driver=%s)", cfg.DBDriver)
		return
	}
	if *importPath != "" {
		data, err := os.ReadFile(*importPath)
		if err != nil {
			log.Fatalf("read %s: %v", *importPath, err)
		}
		n, err := store.Import(ctx, data)
		if err != nil {
			log.Fatalf("import failed: %v", err)
		}
		log.Printf("imported %d tests", n)
		return
	}

	engine := session.NewEngine(dbh, store)
	reader := results.NewReader(dbh)
	archive, err := storage.NewArchive(cfg.ArchiveDir)
	if err != nil {
		log.Fatalf("archive dir: %v", err)
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewRouter(store, reader, archive, cfg.AdminToken, cfg.CORSOrigins),
	}
	go func() {
		log.Printf("admin api listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN environment variable is required")
	}
	tb, err := bot.New(cfg, store, engine, reader, archive)
	if err != nil {
		log.Fatalf("bot init: %v", err)
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("shutting down")
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		_ = srv.Shutdown(shutCtx)
		tb.Stop()
	}()

	log.Println("bot polling started")
	tb.Start()
}
