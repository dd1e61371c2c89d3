// Package main is the entry point for the poslog server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poslog/poslog/internal/api"
	"github.com/poslog/poslog/internal/auth"
	"github.com/poslog/poslog/internal/config"
	"github.com/poslog/poslog/internal/drive"
	"github.com/poslog/poslog/internal/receiver"
	"github.com/poslog/poslog/internal/storage"
	"github.com/poslog/poslog/internal/sweeper"
)

func main() {
	log.Println("Starting poslog...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx := context.Background()

	store, err := storage.NewStorage(ctx, storage.Config{
		Backend:            cfg.Backend,
		DBPath:             cfg.DBPath,
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
	})
	if err != nil {
		log.Fatalf("Storage error: %v", err)
	}

	guard := auth.New(auth.Config{
		Password:   cfg.AuthPassword,
		Secret:     cfg.JWTSecret,
		CookieName: cfg.CookieName,
		TTL:        cfg.AuthTTL,
		Secure:     cfg.Production(),
		APIKey:     cfg.APIKey,
	})

	driveStore, err := drive.New(cfg.StorageDir)
	if err != nil {
		log.Fatalf("Drive storage error: %v", err)
	}

	apiServer := api.NewServer(cfg.APIAddr, store, guard, driveStore, api.Options{
		MaxBodyBytes: cfg.MaxBodyBytes,
		ClientDist:   cfg.ClientDist,
	})

	var httpReceiver *receiver.HTTPReceiver
	var grpcReceiver *receiver.GRPCReceiver
	if cfg.OTLPHTTPAddr != "" {
		httpReceiver = receiver.NewHTTPReceiver(cfg.OTLPHTTPAddr, store)
	}
	if cfg.OTLPGRPCAddr != "" {
		grpcReceiver = receiver.NewGRPCReceiver(cfg.OTLPGRPCAddr, store)
	}

	sweep := sweeper.New(sweeper.Config{
		RetentionDays: cfg.RetentionDays,
		Cron:          cfg.RetentionCron,
		Interval:      cfg.SweepInterval,
	}, store)
	if err := sweep.Start(ctx); err != nil {
		log.Fatalf("Sweeper error: %v", err)
	}

	// Start servers in goroutines
	errChan := make(chan error, 3)

	go func() {
		log.Printf("Starting API server on %s", cfg.APIAddr)
		if err := apiServer.Start(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	if httpReceiver != nil {
		go func() {
			log.Printf("Starting OTLP HTTP receiver on %s", cfg.OTLPHTTPAddr)
			if err := httpReceiver.Start(); err != nil {
				errChan <- fmt.Errorf("OTLP HTTP receiver error: %w", err)
			}
		}()
	}

	if grpcReceiver != nil {
		go func() {
			log.Printf("Starting OTLP gRPC receiver on %s", cfg.OTLPGRPCAddr)
			if err := grpcReceiver.Start(); err != nil {
				errChan <- fmt.Errorf("OTLP gRPC receiver error: %w", err)
			}
		}()
	}

	// Give servers time to start
	time.Sleep(100 * time.Millisecond)
	log.Println("All servers started successfully")
	log.Printf("  - API:    http://%s/api/logs", cfg.APIAddr)
	log.Printf("  - Health: http://%s/health", cfg.APIAddr)
	if httpReceiver != nil {
		log.Printf("  - OTLP HTTP: http://%s/v1/logs", cfg.OTLPHTTPAddr)
	}
	if grpcReceiver != nil {
		log.Printf("  - OTLP gRPC: %s", cfg.OTLPGRPCAddr)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v, shutting down...", sig)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sweep.Stop()

	log.Println("Shutting down servers...")
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down API server: %v", err)
	}
	if httpReceiver != nil {
		if err := httpReceiver.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down OTLP HTTP receiver: %v", err)
		}
	}
	if grpcReceiver != nil {
		if err := grpcReceiver.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down OTLP gRPC receiver: %v", err)
		}
	}

	log.Println("Closing storage...")
	if err := store.Close(); err != nil {
		log.Printf("Error closing storage: %v", err)
	}

	log.Println("Shutdown complete")
}
