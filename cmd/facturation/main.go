package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/diewo77/bon-livraison/internal/config"
	"github.com/diewo77/bon-livraison/internal/db"
	"github.com/diewo77/bon-livraison/internal/i18n"
	"github.com/diewo77/bon-livraison/internal/logging"
	"github.com/diewo77/bon-livraison/internal/services"
	"github.com/joho/godotenv"
)

var (
	langFlag = flag.String("lang", "", "language of messages and prints (fr or en)")
	userFlag = flag.String("user", "", "author recorded in the history")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	// Load configuration from environment
	cfg := config.Load()
	if *langFlag != "" {
		cfg.App.Lang = *langFlag
	}
	if *userFlag != "" {
		cfg.App.User = *userFlag
	}
	lang := i18n.DetectLanguage(cfg.App.Lang)

	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Connect(cfg.Database, cfg.App.Dev, log)
	if err != nil {
		logging.LogError(log, "main", "Connect", "database", cfg.Database.Driver, err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if sqlDB, err := dbConn.DB(); err == nil {
		defer sqlDB.Close()
	}

	args := flag.Args()
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}

	prepare := func() error { return db.Prepare(dbConn, cfg, log) }
	if cmd != "migrate" {
		if err := prepare(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}

	store := db.NewStore(dbConn, log)
	svc := services.NewInvoiceService(services.NewTracker(cfg.App.User, log), log)

	// Seed the default company and delivery note
	if cfg.App.Seed && cmd != "seed" && cmd != "migrate" {
		if err := db.Seed(ctx, store, svc); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	app := NewApp(store, svc, log, lang, os.Stdout)
	app.prepare = prepare
	if err := app.Run(ctx, args); err != nil {
		if errors.Is(err, ErrUsage) && len(args) == 0 {
			os.Exit(2)
		}
		logging.LogError(log, "main", "Run", cmd, nil, err)
		os.Exit(1)
	}
}
