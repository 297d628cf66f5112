// Command main is the entry point for the OnStream backend server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"onstream/internal/config"
	"onstream/internal/observability"
	"onstream/internal/scheduler"
	"onstream/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "onstream-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.Env != "test",
		OTLPEndpoint:   cfg.OTLPEndpoint,
	})
	if err != nil {
		log.Printf("Tracing initialization failed: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Seed the configured admin account on first boot.
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	if err := srv.Accounts().SeedAdmin(seedCtx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Printf("Admin seeding failed: %v", err)
	}
	cancelSeed()

	sweeper := scheduler.NewSweeper(srv.CatalogRepo())
	if err := sweeper.Start(cfg.SweepSchedule); err != nil {
		log.Fatalf("Failed to start sweep scheduler: %v", err)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		sweeper.Stop()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on port %s...", cfg.Port)
	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
}
