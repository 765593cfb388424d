// server runs the identity HTTP API and the gRPC health service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"blogger-platform/backend/internal/app"
	"blogger-platform/backend/internal/config"
	"blogger-platform/backend/internal/db"
	healthhandler "blogger-platform/backend/internal/health/handler"
	"blogger-platform/backend/internal/server"
	"blogger-platform/backend/internal/telemetry"
	otelsetup "blogger-platform/backend/internal/telemetry/otel"
	"blogger-platform/backend/internal/telemetry/producer"
)

const (
	serviceName         = "identity-server"
	healthWatchInterval = 10 * time.Second
	shutdownTimeout     = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel: shutdown: %v", err)
		}
	}()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	tokens, err := app.NewTokenProvider(cfg)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	policyEngine, err := app.NewPolicyEngine(ctx, cfg)
	if err != nil {
		log.Fatalf("authz: %v", err)
	}

	kafkaProducer := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.SecurityEventsTopic)
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			log.Printf("telemetry: kafka close: %v", err)
		}
	}()
	events := telemetry.MultiEmitter{otelsetup.NewEventEmitter(providers.LoggerProvider), kafkaProducer}

	identity := app.NewIdentity(cfg, app.NewStores(conn), tokens, events)
	checker := healthhandler.NewChecker(conn, policyEngine)

	httpSrv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(server.Deps{
			Auth:              identity.Auth,
			Authenticator:     identity.Authenticator,
			Evaluator:         policyEngine,
			Health:            checker,
			SecureCookie:      cfg.CookieSecure,
			TrustProxyHeaders: cfg.TrustProxyHeaders,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	grpcSrv, healthSrv := server.NewGRPCServer(!cfg.IsProduction())
	go checker.Watch(ctx, healthSrv, healthWatchInterval)

	serveErr := make(chan error, 2)
	go func() {
		log.Printf("HTTP server listening on %s (authz engine %s)", cfg.HTTPAddr, cfg.AuthzEngine)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		log.Printf("gRPC health server listening on %s", cfg.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr <- fmt.Errorf("grpc: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("shutting down...")
	case err := <-serveErr:
		log.Printf("serve: %v", err)
	}

	healthSrv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	grpcSrv.GracefulStop()
	// Let in-flight async security events reach Kafka and the collector before closing them.
	time.Sleep(telemetry.ShutdownDrainDuration)
	log.Println("server stopped")
}
