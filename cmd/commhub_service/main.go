package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/jdialer/commhub/internal/bootstrap"
	"github.com/jdialer/commhub/internal/platform/config"
	"github.com/jdialer/commhub/internal/platform/database"
	"github.com/jdialer/commhub/internal/platform/logger"
	"github.com/jdialer/commhub/internal/platform/messagebroker"
	httptransport "github.com/jdialer/commhub/internal/public_api_service/transport/http"
)

const (
	serviceName     = "commhub_service"
	spamFeedQueue   = "commhub_spam_feed"
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("Commhub service starting...", "http_port", cfg.HTTPPort, "grpc_health_port", cfg.GRPCHealthPort)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewDBPool(ctx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	if err := database.Migrate(ctx, dbPool); err != nil {
		appLogger.Error("Failed to apply schema", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Connected to PostgreSQL database")

	// The service degrades without NATS: device-backed probes fail closed and
	// message sends return an error.
	natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to NATS, continuing without broker", "error", err)
	}
	defer natsClient.Close()

	services := bootstrap.New(cfg, dbPool, natsClient, appLogger)
	if natsClient != nil {
		if err := services.SpamFeed.Start(ctx, cfg.SpamFeedSubject, spamFeedQueue); err != nil {
			appLogger.Error("Failed to subscribe to spam feed", "subject", cfg.SpamFeedSubject, "error", err)
		}
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: httptransport.NewRouter(services.Handlers(appLogger), cfg.JWTSecret, requestTimeout, appLogger),
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCHealthPort))
	if err != nil {
		appLogger.Error("Failed to listen for gRPC health", "port", cfg.GRPCHealthPort, "error", err)
		os.Exit(1)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		appLogger.Info("gRPC health server listening", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		appLogger.Info("Shutting down commhub service...")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("HTTP server forced to shutdown", "error", err)
		}
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Commhub service stopped with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Commhub service exited gracefully")
}
