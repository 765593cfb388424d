// Worker purges expired sessions and revocation entries on SWEEP_INTERVAL and, when KAFKA_BROKERS is
// set, consumes ban notifications from BAN_EVENTS_TOPIC and ends every session of banned users.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"blogger-platform/backend/internal/app"
	"blogger-platform/backend/internal/config"
	"blogger-platform/backend/internal/db"
	"blogger-platform/backend/internal/identity/events"
	"blogger-platform/backend/internal/sweeper"
	"blogger-platform/backend/internal/telemetry"
	otelsetup "blogger-platform/backend/internal/telemetry/otel"
	"blogger-platform/backend/internal/telemetry/producer"
)

const serviceName = "identity-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel: shutdown: %v", err)
		}
	}()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	kafkaProducer := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.SecurityEventsTopic)
	defer kafkaProducer.Close()
	emitter := telemetry.MultiEmitter{otelsetup.NewEventEmitter(providers.LoggerProvider), kafkaProducer}

	stores := app.NewStores(conn)
	var wg sync.WaitGroup

	sw := sweeper.New(stores.Sessions, stores.Revocations, emitter, cfg.SweepEvery())
	wg.Add(1)
	go func() {
		defer wg.Done()
		sw.Run(ctx)
	}()

	tokens, err := app.NewTokenProvider(cfg)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	identity := app.NewIdentity(cfg, stores, tokens, emitter)
	consumer := events.NewKafkaBanConsumer(cfg.KafkaBrokersList(), cfg.BanEventsTopic, cfg.KafkaGroupID, identity.Auth)
	if consumer == nil {
		log.Println("worker: KAFKA_BROKERS not set, ban consumer disabled")
	} else {
		defer consumer.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("worker: consuming ban events from %s (group %s)", cfg.BanEventsTopic, cfg.KafkaGroupID)
			if err := consumer.Run(ctx); err != nil {
				log.Printf("worker: ban consumer stopped: %v", err)
				cancel()
			}
		}()
	}

	wg.Wait()
	log.Println("worker: stopped")
}
