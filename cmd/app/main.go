package main

import (
	"flag"
	"log"
	"os"

	"arbwatch/internal/di"
	"arbwatch/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s pair=%s/%s threshold=%.2f tick=%s",
		cfg.Environment, cfg.Monitor.VenueA, cfg.Monitor.VenueB, cfg.Monitor.Threshold, cfg.Monitor.TickPeriod)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
