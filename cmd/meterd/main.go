// ABOUTME: Main entry point for the metering WebSocket daemon
// ABOUTME: Loads configuration and serves live parameter update streams

package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/harper/atlas-control/internal/atlas"
	"github.com/harper/atlas-control/internal/config"
	"github.com/harper/atlas-control/internal/logger"
	"github.com/harper/atlas-control/internal/meterws"
	"github.com/harper/atlas-control/internal/registry"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	listenAddr := flag.String("listen", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.SetVerbose(cfg.Logging.Verbose)

	reg, err := registry.New(cfg.RegistryDevices())
	if err != nil {
		log.Fatalf("invalid device config: %v", err)
	}
	if len(reg.Devices()) == 0 {
		log.Fatalf("no devices configured")
	}

	manager := atlas.NewManager(atlas.Options{
		ConnectTimeout: cfg.ConnectTimeout(),
		RequestTimeout: cfg.RequestTimeout(),
	})
	defer manager.Close()

	addr := cfg.Meter.ListenAddr
	if *listenAddr != "" {
		addr = *listenAddr
	}

	mux := http.NewServeMux()
	mux.Handle("/meter", meterws.NewServer(manager, reg))

	log.Printf("meterd listening on %s (%d devices configured)", addr, len(reg.Devices()))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
