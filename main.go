package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"coinledger/cmd"
	"coinledger/database"

	log "github.com/sirupsen/logrus"
)

const usage = `usage: coinledger [command]

commands:
  serve                 run the HTTP API (default)
  migrate up            apply pending migrations
  migrate down [n]      roll back n migrations (default 1)
  migrate status        show the current migration version
  poll                  run one queue poll cycle
  archive <days>        archive ledger rows older than <days> days`

func main() {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if command == "migrate" {
		if err := handleMigrationCommand(os.Args[2:]); err != nil {
			log.WithError(err).Fatal("Migration failed")
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	switch command {
	case "serve":
		if err := cmd.Run(ctx); err != nil {
			log.WithError(err).Fatal("Application error")
		}
	case "poll":
		summary, err := cmd.Poll(ctx)
		if err != nil {
			log.WithError(err).Fatal("Poll failed")
		}
		fmt.Printf("received=%d processed=%d\n", summary.Received, summary.Processed)
	case "archive":
		if len(os.Args) < 3 {
			log.Fatal(usage)
		}
		days, err := strconv.Atoi(os.Args[2])
		if err != nil || days <= 0 {
			log.Fatalf("invalid days value %q: must be a positive integer", os.Args[2])
		}
		moved, err := cmd.Archive(ctx, time.Duration(days)*24*time.Hour)
		if err != nil {
			log.WithError(err).Fatal("Archive failed")
		}
		fmt.Printf("archived=%d\n", moved)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func handleMigrationCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: coinledger migrate [up|down|status] [args...]")
	}

	switch args[0] {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(args) > 1 {
			steps = args[1]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}
