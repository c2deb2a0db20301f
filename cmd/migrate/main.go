// Command migrate applies the database schema.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"marginalia/internal/config"
	"marginalia/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate/main.go <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("automigration failed: %w", err)
		}
		log.Println("schema applied")
	case "status":
		migrator := db.Migrator()
		for _, table := range []string{
			"users", "posts", "snippets", "comments", "tags",
			"reactions", "follows", "bookmarks", "notifications",
		} {
			log.Printf("%-15s exists=%t", table, migrator.HasTable(table))
		}
	default:
		return usage()
	}

	return nil
}
