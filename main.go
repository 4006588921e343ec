package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"settler/cmd"
	"settler/database"

	log "github.com/sirupsen/logrus"
)

func main() {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	// Migrations run without the service configuration
	if command == "migrate" {
		if err := handleMigrationCommand(); err != nil {
			log.Fatal("Migration error: ", err)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch command {
	case "serve":
		err = cmd.Run(ctx)
	case "settle":
		err = cmd.RunOnce(ctx, os.Stdout)
	default:
		err = fmt.Errorf("unknown command %q, usage: settler [serve|settle|migrate]", command)
	}
	if err != nil {
		log.Fatal("Application error: ", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: settler migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}
