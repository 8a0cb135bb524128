// Command deluser removes a user account by username. Owned expenses go with
// it through the store's cascade, so no orphan records survive.
package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/spendtrack/spendtrack/internal/db"
	"github.com/spendtrack/spendtrack/internal/models"
	"github.com/spendtrack/spendtrack/internal/utils"
)

func main() {
	username := flag.String("username", "", "username of the account to delete")
	flag.Parse()

	if *username == "" {
		log.Fatal("usage: deluser -username <name>")
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}

	ctx := context.Background()

	postgres, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("postgres: failed to connect: %v", err)
	}
	defer postgres.Close()

	if err := postgres.DeleteUser(ctx, *username); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Fatalf("no such user: %s", *username)
		}
		log.Fatalf("delete user: %v", err)
	}

	log.Printf("deleted user %s and all owned expenses", *username)
}
