package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/abrezinsky/voterreg/internal/app"
	"github.com/abrezinsky/voterreg/internal/config"
	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/pkg/recordstore"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	red    = "\033[31m"
	green  = "\033[32m"
	cyan   = "\033[36m"
	bold   = "\033[1m"
)

var (
	version = "dev"
)

func showBanner() {
	border := strings.Repeat("═", 62)
	logo := []string{
		"   __     __    _            ____                            ",
		"   \\ \\   / /__ | |_ ___ _ __|  _ \\ ___  __ _                 ",
		"    \\ \\ / / _ \\| __/ _ \\ '__| |_) / _ \\/ _` |                ",
		"     \\ V / (_) | ||  __/ |  |  _ <  __/ (_| |                ",
		"      \\_/ \\___/ \\__\\___|_|  |_| \\_\\___|\\__, |                ",
		"                                       |___/                 ",
	}

	fmt.Printf("\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range logo {
		fmt.Printf("  %s║%s%-62s%s║%s\n", cyan, yellow, line, cyan, reset)
	}
	fmt.Printf("  %s╚%s╝%s\n\n", cyan, border, reset)
}

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	logLevel := flag.String("loglevel", "", "Log level override (debug, info, warn, error)")
	noBanner := flag.Bool("nobanner", false, "Skip the startup banner")
	noKeyboard := flag.Bool("nokeyboard", false, "Disable keyboard shortcuts")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `VoterReg - voter registration with local backup

Usage:
  voterreg [options]

Options:
  -config string  YAML config file; VOTERREG_* variables and .env override it
  -loglevel str   Log level: debug, info, warn, error
  -nobanner       Skip the startup banner
  -nokeyboard     Disable keyboard shortcuts
  -version        Show version and exit
  -help           Show this help message

Keyboard Shortcuts (when enabled):
  r              Recover locally saved registrations now
  s              Show backup status
  h              Toggle HTTP request logging
  l              Cycle log level (debug → info → warn → error)
  q              Quit server
  ?              Show keyboard help

Examples:
  voterreg -config voterreg.yaml
  VOTERREG_STORE_URL=http://store:8090 voterreg -nokeyboard

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("voterreg %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	if !*noBanner {
		showBanner()
	}

	var logOut io.Writer = os.Stdout
	if !*noKeyboard {
		logOut = crlfWriter{w: os.Stdout}
	}
	appLog := logger.NewWithOptions(logger.Options{
		Level:     logger.ParseLevel(cfg.Log.Level),
		Format:    cfg.Log.Format,
		Output:    logOut,
		RedactPII: cfg.Log.RedactPII,
	})

	client := recordstore.NewHTTPClient(cfg.Store.URL, cfg.Store.APIKey, appLog)

	a, err := app.New(cfg, appLog, client)
	if err != nil {
		log.Fatal("Failed to initialize application: ", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !*noKeyboard {
		printKeyboardHelp()
		c := &console{log: appLog, recovery: a.Monitor(), out: os.Stdout}
		go c.listen(ctx, os.Stdin, stop)
	} else {
		fmt.Printf("%sKeyboard shortcuts disabled%s\n\n", yellow, reset)
	}

	if err := a.Run(ctx); err != nil {
		log.Fatal(err)
	}
	appLog.Info("Server stopped")
}
