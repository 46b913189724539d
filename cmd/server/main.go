package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clienthandler "crm-backend/internal/client/handler"
	"crm-backend/internal/client/repository"
	"crm-backend/internal/client/service"
	"crm-backend/internal/config"
	"crm-backend/internal/db"
	healthhandler "crm-backend/internal/health/handler"
	"crm-backend/internal/server"
	"crm-backend/internal/telemetry"
	telemetryotel "crm-backend/internal/telemetry/otel"
	"crm-backend/internal/telemetry/producer"
)

// connectTimeout bounds the startup connect and ping to MongoDB.
const connectTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Settings{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
	})
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.ClientEventsTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		log.Printf("kafka: publishing client events to %s", kafkaProducer.Topic())
	}

	var (
		gateway   *db.MongoGateway
		repo      repository.Repository
		inspector db.Inspector
	)
	if cfg.DatabaseURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		gateway, err = db.Open(connectCtx, cfg.DatabaseURL, cfg.ResolveDatabaseName())
		cancel()
		if err != nil {
			log.Printf("db: %v; starting without a database", err)
		} else {
			repo = repository.NewGatewayRepository(gateway)
			inspector = gateway
			log.Printf("db: connected to database %s", gateway.Name())
		}
	} else {
		log.Println("db: DATABASE_URL not set; data endpoints will return 503")
	}

	svc := service.NewClientService(repo, telemetry.Multi(emitters...))
	handler, err := server.NewRouter(server.Deps{
		Clients:     clienthandler.NewHandler(svc),
		Health:      healthhandler.NewServer(inspector, cfg.DatabaseURL != ""),
		ServiceName: cfg.ServiceName,
		AccessLog:   os.Stdout,
	})
	if err != nil {
		log.Fatalf("router: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeoutDuration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	// Let in-flight async change events finish before tearing down their sinks.
	time.Sleep(telemetry.ShutdownDrainDuration)

	sinkCtx, sinkCancel := context.WithTimeout(ctx, 10*time.Second)
	defer sinkCancel()
	if err := providers.Shutdown(sinkCtx); err != nil {
		log.Printf("telemetry: shutdown: %v", err)
	}
	if err := kafkaProducer.Close(); err != nil {
		log.Printf("kafka: close: %v", err)
	}
	if err := gateway.Close(sinkCtx); err != nil {
		log.Printf("db: close: %v", err)
	}
	log.Println("HTTP server stopped")
}
