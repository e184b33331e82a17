package main

import (
	"flag"
	"log"

	"linkedin-harvester/internal/api"
	"linkedin-harvester/internal/config"
	"linkedin-harvester/internal/database"
	"linkedin-harvester/internal/harvester"
	"linkedin-harvester/internal/monitoring"
	"linkedin-harvester/internal/utils"
)

func main() {
	var (
		configFile = flag.String("config", "configs/config.yaml", "Configuration file path")
		port       = flag.String("port", "", "API server port (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.File)

	h := harvester.New(cfg.Harvester.ToHarvestConfig(), logger)

	// The Postgres archive is optional; the flat-file sink is always on.
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.NewConnection(&cfg.Database, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.RunMigrations(); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
		h.WithArchive(db)
	}

	monitor := monitoring.NewMonitor(logger, "metrics.json")

	serverPort := cfg.Server.Port
	if *port != "" {
		serverPort = *port
	}
	if serverPort == "" {
		serverPort = "8080"
	}

	server := api.NewServer(h, db, monitor, logger, serverPort)
	if err := server.Start(); err != nil {
		logger.Fatalf("API server failed: %v", err)
	}
}
