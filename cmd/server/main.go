/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Warp Capacity Engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config.toml (optional) and apply command-line flag overrides
  2. Initialize SQLite store
  3. Build the holiday provider: built-in tables plus stored custom dates
  4. Seed the default holiday calendar on first run (empty database)
  5. Create planner, API handler, and router
  6. Start the background audit scheduler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides config, config default: 8080)
  -db      SQLite database path (overrides config, config default: capacity.db)
           Use ":memory:" for an in-memory database
  -config  Path to config.toml (default: auto-discover next to binary)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the audit scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/capacity.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run with an explicit config file
  ./server -config="./config.toml"

ENVIRONMENT:
  No environment variables currently. All config via file and flags.
  Future: DATABASE_URL, PORT, LOG_LEVEL

SEE ALSO:
  - config/config.go: file format and defaults
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/capacity-engine/api"
	"github.com/warp/capacity-engine/config"
	"github.com/warp/capacity-engine/holiday"
	"github.com/warp/capacity-engine/planner"
	"github.com/warp/capacity-engine/schedule"
	"github.com/warp/capacity-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	configPath := flag.String("config", "", "path to config.toml")
	flag.Parse()

	// Load configuration, then let flags win
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	// Holiday provider: built-in country tables plus whatever the store
	// has accumulated (custom dates, previously seeded years).
	provider := holiday.Defaults()
	stored, err := store.AllHolidays(ctx)
	if err != nil {
		log.Fatalf("Failed to load holidays: %v", err)
	}
	for _, h := range stored {
		if err := provider.AddDate(h); err != nil {
			log.Printf("Warning: Skipping stored holiday %s: %v", h.ID, err)
		}
	}
	if len(stored) == 0 {
		seedHolidays(ctx, store, provider, cfg)
	}

	// Initialize planner and handler
	cal := schedule.NewCalendar(provider)
	p := planner.New(cal, schedule.Country(cfg.Country))
	handler := api.NewHandler(store, p, provider)

	// Load existing plan data into the in-memory engine
	if err := handler.Rebuild(ctx); err != nil {
		log.Printf("Warning: Failed to load plan data: %v", err)
	}

	// Create router
	router := api.NewRouter(handler, cfg.StaticDir)

	// Start the background audit scheduler
	scheduler := api.NewAuditScheduler(handler)
	scheduler.Enabled = cfg.Audit.Enabled
	scheduler.CheckInterval = cfg.Audit.Interval()
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", cfg.Port)
		log.Printf("📊 API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	scheduler.Stop()

	log.Println("Server stopped")
}

func loadConfig(path string) (config.AppConfig, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// seedHolidays materializes the built-in holiday table for the default
// country into the store. Runs only against an empty database, so a
// fresh install has visible holidays without a manual seeding call.
func seedHolidays(ctx context.Context, store planner.Store, provider *holiday.TableProvider, cfg config.AppConfig) {
	country := schedule.Country(cfg.Country)
	if !provider.Known(country) {
		log.Printf("Warning: No built-in holiday table for country %s, skipping seed", cfg.Country)
		return
	}

	startYear := time.Now().Year()
	count := 0
	for year := startYear; year <= startYear+cfg.HolidayYears; year++ {
		for _, h := range provider.Holidays(country, year) {
			if err := store.SaveHoliday(ctx, h); err != nil {
				log.Printf("Warning: Failed to seed holiday %s: %v", h.ID, err)
				continue
			}
			count++
		}
	}
	log.Printf("Seeded %d holidays for %s (%d-%d)", count, cfg.Country, startYear, startYear+cfg.HolidayYears)
}
