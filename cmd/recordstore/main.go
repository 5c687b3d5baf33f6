package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/abrezinsky/voterreg/internal/app"
	"github.com/abrezinsky/voterreg/internal/auth"
	"github.com/abrezinsky/voterreg/internal/config"
	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/internal/models"
)

var (
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	adminEmail := flag.String("admin", "admin@localhost", "Email for the bootstrap admin when none are configured")
	adminPw := flag.String("adminpw", "", "Bootstrap admin password (auto-generated if not set)")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `recordstore - voter record store

Usage:
  recordstore [options]

Options:
  -config string  YAML config file; VOTERREG_* variables and .env override it
  -port int       HTTP port (default from config, 8090)
  -admin string   Bootstrap admin email (default "admin@localhost")
  -adminpw str    Bootstrap admin password (auto-generated if not set)
  -version        Show version and exit

The bootstrap admin is only created when the admins table is empty and no
initial_admins are configured.

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("recordstore %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if *port > 0 {
		cfg.RecordStore.Port = *port
	}

	appLog := logger.NewWithOptions(logger.Options{
		Level:     logger.ParseLevel(cfg.Log.Level),
		Format:    cfg.Log.Format,
		RedactPII: cfg.Log.RedactPII,
	})

	store, err := app.NewStore(cfg.RecordStore, appLog)
	if err != nil {
		log.Fatal("Failed to initialize record store: ", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	admins := cfg.RecordStore.InitialAdmins
	generated := ""
	if len(admins) == 0 {
		password := *adminPw
		if password == "" {
			password = auth.GeneratePassword()
			generated = password
		}
		admins = []models.Admin{{ID: "admin", Email: *adminEmail, Password: password}}
	}
	added, err := store.Bootstrap(ctx, admins)
	if err != nil {
		log.Fatal("Failed to add initial admins: ", err)
	}
	if added > 0 {
		appLog.Info("Initial admins added", "count", added)
		if generated != "" {
			appLog.Info("Admin password", "email", *adminEmail, "password", generated)
		}
	}
	if cfg.RecordStore.APIKey == "" {
		appLog.Warn("No api_key configured, the record store accepts any client")
	}

	if err := store.Run(ctx); err != nil {
		log.Fatal(err)
	}
	appLog.Info("Record store stopped")
}
