/*
main.go - Application entry point

PURPOSE:

	Initializes and starts the flexi workforce engine server. Handles
	configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
 1. Parse command-line flags, load TOML config
 2. Initialize SQLite store
 3. Wire domain services (shifts, tracking, contracts, dimona, payroll)
 4. Configure HTTP router
 5. Start server with graceful shutdown

COMMAND-LINE FLAGS:

	-config  TOML config file path (missing file falls back to defaults)
	-addr    Listen address, overrides config (e.g. ":3000")
	-db      SQLite database path, overrides config
	         Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:

	On SIGINT/SIGTERM:
	1. Stop accepting new connections
	2. Wait for active requests to complete (30s timeout)
	3. Close database connection
	4. Exit

EXAMPLES:

	# Run with defaults
	./server

	# Run against the ONSS acceptance environment
	./server -config=./flexi.toml

SEE ALSO:
  - config/config.go: Config file format
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/horeca/flexi-engine/api"
	"github.com/horeca/flexi-engine/calendar"
	"github.com/horeca/flexi-engine/config"
	"github.com/horeca/flexi-engine/contract"
	"github.com/horeca/flexi-engine/dimona"
	"github.com/horeca/flexi-engine/identity"
	"github.com/horeca/flexi-engine/payroll"
	"github.com/horeca/flexi-engine/pin"
	"github.com/horeca/flexi-engine/shift"
	"github.com/horeca/flexi-engine/store/sqlite"
	"github.com/horeca/flexi-engine/tracking"
	"github.com/horeca/flexi-engine/worker"
)

func main() {
	configPath := flag.String("config", "flexi.toml", "TOML config file path")
	addr := flag.String("addr", "", "listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Server.DBPath = *dbPath
	}

	store, err := sqlite.New(cfg.Server.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// The ONSS collaborator: HTTP client when an endpoint is configured,
	// manual-portal fallback otherwise.
	var declarant dimona.Declarant
	if cfg.Dimona.Endpoint != "" {
		declarant = &dimona.ONSSClient{
			BaseURL: cfg.Dimona.Endpoint,
			APIKey:  cfg.Dimona.APIKey,
			Timeout: cfg.DimonaTimeout(),
		}
	} else {
		log.Println("No ONSS endpoint configured, declarations go through the portal fallback")
		declarant = dimona.PortalDeclarant{}
	}

	oracle := calendar.New()
	gate := &contract.Gate{Store: store}
	verifier := &pin.Verifier{Store: store}

	handler := &api.Handler{
		Workers: &worker.Service{
			Store:    store,
			Identity: identity.LocalProvider{},
			Hasher:   pin.Hasher{},
		},
		Shifts:   &shift.Service{Store: store, Declarant: declarant},
		Tracking: &tracking.Engine{Store: store, Shifts: store, Workers: store, Gate: gate, PIN: verifier},
		Gate:     gate,
		Dimona:   &dimona.Manager{Store: store, Declarant: declarant},
		Payroll:  &payroll.Aggregator{Store: store, Oracle: oracle},
		Calendar: oracle,
		Store:    store,

		DefaultGeofenceRadius: cfg.Geofence.DefaultRadiusMeters,
	}

	router := api.NewRouter(handler, cfg.Metrics.Enabled)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
