// Command server runs the control-plane HTTP gateway: it loads
// configuration, wires RunStore, ProgressJournal, Scheduler, and Gateway
// together, and serves §6's API until interrupted.
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

	"simbench/internal/config"
	"simbench/internal/gateway"
	"simbench/internal/progress"
	"simbench/internal/runstore"
	"simbench/internal/scheduler"
)

func main() {
	configPath := flag.String("config", ".", "directory to search for config.yaml")
	configDir := flag.String("config-dir", "./configs", "directory of named starter configs served by GET /api/configs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("server: load config: %v", err)
	}

	store, err := runstore.New(cfg.RunRoot)
	if err != nil {
		log.Fatalf("server: init run store: %v", err)
	}

	journal := progress.New(store)

	sched := scheduler.New(store, journal, nil, scheduler.Config{
		SimConcurrency:   cfg.SimConcurrency,
		RisConcurrency:   cfg.RisConcurrency,
		VRAMThresholdPct: cfg.VRAMThresholdPct,
		SimWorkerBin:     cfg.SimWorkerBin,
		RisWorkerBin:     cfg.RisWorkerBin,
	})
	defer sched.Close()

	gw := gateway.New(store, journal, sched, *configDir, gateway.NewGorillaUpgrader())

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      gw.Router(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: 0, // the live progress websocket endpoint streams indefinitely
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("server: listening on %s (run_root=%s)", cfg.ListenAddr, cfg.RunRoot)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("server: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: graceful shutdown failed: %v", err)
	}
}
