// migrate applies or rolls back the embedded SQL migrations against DATABASE_URL.
package main

import (
	"flag"
	"log"

	"sessionguard/internal/config"
	"sessionguard/internal/db/migrate"
)

func main() {
	flagDirection := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	direction, err := migrate.ParseDirection(*flagDirection)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := migrate.Run(cfg.DatabaseURL, direction); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("migrate: %s complete", direction)
}
