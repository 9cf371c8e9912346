package config_test

import (
	"context"
	"fmt"
	"log"

	"github.com/sagarc03/filevault/config"
)

func ExampleLoad() {
	// Load with defaults only (no config file)
	cfg, err := config.Load(nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Port: %d, Database: %s, Object store: %s\n", cfg.Server.Port, cfg.Database.Type, cfg.ObjectStore.Type)
	// Output: Port: 5708, Database: sqlite, Object store: local
}

func ExampleWithContext() {
	cfg, _ := config.Load(nil, nil)

	// Store config in context
	ctx := config.WithContext(context.Background(), cfg)

	// Retrieve later (e.g., in a subcommand)
	retrieved, err := config.FromContext(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Retrieved URL TTL: %s\n", retrieved.Service.URLTTL)
	// Output: Retrieved URL TTL: 5m0s
}
