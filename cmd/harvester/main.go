package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"linkedin-harvester/internal/config"
	"linkedin-harvester/internal/harvester"
	"linkedin-harvester/internal/utils"
)

func main() {
	var (
		configFile = flag.String("config", "configs/config.yaml", "Configuration file path")
		postURL    = flag.String("url", "", "Post URL to harvest comments from")
		runID      = flag.String("run-id", "", "Run identifier (defaults to a timestamp)")
		email      = flag.String("email", "", "Login email (optional)")
		password   = flag.String("password", "", "Login password (optional)")
		headful    = flag.Bool("headful", false, "Run the browser with a visible window")
	)
	flag.Parse()

	if *postURL == "" {
		log.Fatal("usage: --url <post url> [--email --password] [--run-id id] [--headful]")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.File)

	harvestCfg := cfg.Harvester.ToHarvestConfig()
	if *headful {
		harvestCfg.Headless = false
	}

	id := *runID
	if id == "" {
		id = fmt.Sprintf("run_%d", time.Now().Unix())
	}

	// Ctrl-C ends the run at the next loop iteration; results gathered so
	// far are already on disk.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	h := harvester.New(harvestCfg, logger)
	result, err := h.Run(ctx, harvester.Request{
		RunID:    id,
		PostURL:  *postURL,
		Email:    *email,
		Password: *password,
	})
	if err != nil {
		logger.Fatalf("Run failed: %v", err)
	}

	logger.Infof("Run %s complete: %d emails in %.2fs, results in %s",
		result.RunID, result.EmailsFound, result.ElapsedSeconds, result.ResultFile)
}
