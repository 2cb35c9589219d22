package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/head_tracker/internal/app"
	"github.com/relabs-tech/head_tracker/internal/config"
)

func main() {
	configPath := flag.String("config", "./head_tracker_config.txt", "path to configuration file")
	source := flag.String("source", config.SourceMock, "sample source: mock or imu")
	flag.Parse()

	log.Printf("starting head tracker MQTT producer (%s)", *source)

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunProducer(ctx, *source); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
