package main

import (
	"context"
	"flag"
	"log"

	"warehouse-system/pkg/config"
	"warehouse-system/pkg/database"
)

func main() {
	command := flag.String("cmd", "up", "Команда goose: up, down, status, version, redo")
	flag.Parse()

	cfg := config.New()
	if err := database.Migrate(context.Background(), cfg.Postgres.DSN, *command); err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("✅ goose %s выполнен", *command)
}
