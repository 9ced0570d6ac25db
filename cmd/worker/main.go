// Worker sweeps expired sessions and remember tokens on CLEANUP_INTERVAL. When KAFKA_BROKERS is set it also
// consumes SECURITY_EVENTS_KAFKA_TOPIC and logs blocked and suspicious events as alerts.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"sessionguard/internal/app"
	"sessionguard/internal/config"
	"sessionguard/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Println("worker: DATABASE_URL not set, sweeping an empty in-memory store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("app: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Printf("worker: shutdown: %v", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("worker: sweeping expired sessions every %s", cfg.CleanupInterval())
		worker.Sweep(gctx, a.Manager, cfg.CleanupInterval())
		return nil
	})

	if brokers := cfg.KafkaBrokersList(); len(brokers) > 0 {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          cfg.SecurityEventsTopic,
			GroupID:        cfg.KafkaGroupID,
			MinBytes:       1,
			MaxBytes:       10e6, // 10MB
			MaxWait:        1 * time.Second,
			CommitInterval: time.Second,
		})
		defer reader.Close()
		g.Go(func() error {
			log.Printf("worker: consuming from %s (group %s)", cfg.SecurityEventsTopic, cfg.KafkaGroupID)
			alerts := worker.Consume(gctx, reader)
			log.Printf("worker: consumer stopped after %d alerts", alerts)
			return nil
		})
	}

	_ = g.Wait()
	log.Println("worker: stopped")
}
