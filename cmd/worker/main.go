// Worker consumes client change events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, CLIENT_EVENTS_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"crm-backend/internal/config"
	"crm-backend/internal/telemetry/loki"
)

// pushTimeout bounds a single Loki push.
const pushTimeout = 10 * time.Second

// messageReader is the subset of *kafka.Reader the worker needs.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// eventPusher is the subset of *loki.Client the worker needs.
type eventPusher interface {
	PushEventJSON(ctx context.Context, rawJSON []byte) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	lokiClient, err := loki.NewClient(cfg.LokiURL, cfg.ServiceName)
	if err != nil {
		log.Fatalf("worker: LOKI_URL is required: %v", err)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.ClientEventsTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	log.Printf("worker: consuming from %s (group %s), pushing to %s", cfg.ClientEventsTopic, cfg.KafkaGroupID, cfg.LokiURL)
	consume(ctx, reader, lokiClient)
	log.Println("worker: stopped")
}

// consume reads messages until ctx is cancelled. Read and push failures are logged and skipped.
func consume(ctx context.Context, reader messageReader, pusher eventPusher) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("worker: kafka read error: %v", err)
			continue
		}

		pushCtx, pushCancel := context.WithTimeout(ctx, pushTimeout)
		if err := pusher.PushEventJSON(pushCtx, msg.Value); err != nil {
			log.Printf("worker: loki push failed (partition %d offset %d): %v", msg.Partition, msg.Offset, err)
		}
		pushCancel()
	}
}
