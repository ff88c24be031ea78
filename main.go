package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/apexmetrics/vertical.report/internal/api"
	"github.com/apexmetrics/vertical.report/internal/config"
	"github.com/apexmetrics/vertical.report/internal/db"
	"github.com/apexmetrics/vertical.report/internal/detector"
	"github.com/apexmetrics/vertical.report/internal/monitoring"
	"github.com/apexmetrics/vertical.report/internal/pose"
	"github.com/apexmetrics/vertical.report/internal/units"
	"github.com/apexmetrics/vertical.report/internal/version"
)

var (
	devMode     = flag.Bool("dev", false, "Run in dev mode with a synthetic detector")
	listen      = flag.String("listen", ":8080", "Listen address")
	dbFile      = flag.String("db", "vertical.db", "Path to sessions database")
	portPath    = flag.String("port", "/dev/ttyUSB0", "Serial path of the pose detector")
	configPath  = flag.String("config", "", "Path to tuning config JSON (defaults baked in)")
	recordPath  = flag.String("record", "", "Append detector frames to this file for offline replay")
	lengthUnits = flag.String("units", units.CM, "Length units for API responses (cm, in, m)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// handleLine routes one detector line into the engine. Keepalives and acks
// are expected traffic, not errors.
func handleLine(engine *pose.Engine, line string) error {
	frame, err := detector.ParseFrame(line)
	if errors.Is(err, detector.ErrNotAFrame) {
		return nil
	}
	if err != nil {
		return err
	}
	engine.ProcessFrame(frame)
	return nil
}

func main() {
	flag.Parse()

	if *showVersion {
		log.Printf("vertical-report %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	// Subcommand dispatch before the long-running services start.
	if args := flag.Args(); len(args) > 0 && args[0] == "migrate" {
		db.RunMigrateCommand(args[1:], *dbFile)
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !units.IsValid(*lengthUnits) {
		log.Fatalf("Invalid units %q; valid values: %s", *lengthUnits, units.GetValidUnitsString())
	}

	tuning := config.MustLoadDefaultConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	var m detector.DetectorMuxInterface
	if *devMode {
		m = detector.NewMockDetectorMux()
	} else {
		var err error
		m, err = detector.NewRealDetectorMux(*portPath, detector.DefaultPortOptions())
		if err != nil {
			log.Fatalf("failed to open detector port: %v", err)
		}
		if err := m.Initialize(); err != nil {
			log.Fatalf("failed to initialize detector: %v", err)
		}
	}
	defer m.Close()

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	engine := pose.NewEngine(pose.EngineConfigFromTuning(tuning), nil)
	defer engine.Close()

	var recorder *detector.FrameRecorder
	if *recordPath != "" {
		recorder, err = detector.NewFrameRecorder(*recordPath)
		if err != nil {
			log.Fatalf("failed to open frame recording: %v", err)
		}
		defer recorder.Close()
	}

	// Create a wait group for the HTTP server, detector monitor, and frame
	// handler routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the detector link
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor detector link: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// subscribe to detector lines and feed them to the engine
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := m.Subscribe()
		defer m.Unsubscribe(id)
		for {
			select {
			case line := <-c:
				if err := handleLine(engine, line); err != nil {
					monitoring.Logf("error handling detector line: %v", err)
				}
				if recorder != nil {
					if err := recorder.Record(line); err != nil {
						monitoring.Logf("error recording detector line: %v", err)
					}
				}
			case <-ctx.Done():
				log.Printf("frame routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
		database.AttachAdminRoutes(mux)

		// mount the API handlers at the root
		apiMux := api.NewServer(engine, database, *lengthUnits).ServeMux()
		mux.Handle("/", apiMux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	log.Printf("vertical-report %s listening on %s (db=%s, units=%s, dev=%v)",
		version.Version, *listen, *dbFile, *lengthUnits, *devMode)

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
