package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"dorbot/config"
	"dorbot/internal/api"
	"dorbot/internal/bot"
	"dorbot/internal/broker"
	"dorbot/internal/gateway"
	"dorbot/internal/redisclient"
	"dorbot/internal/service"
	"dorbot/internal/store"
	"dorbot/internal/transport"
	"dorbot/internal/util"
	"dorbot/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()
	if missing := cfg.Validate(); len(missing) > 0 {
		log.Fatalf("Missing required config: %s", strings.Join(missing, ", "))
	}

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting dorbot")

	tp, err := util.InitTracer("dorbot", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	hesda := gateway.NewClient(
		cfg.Hesda.BaseURL,
		cfg.Hesda.StoreKey,
		cfg.Hesda.Username,
		cfg.Hesda.Password,
		time.Duration(cfg.Hesda.TimeoutSeconds)*time.Second,
		db,
		redisClient,
	)

	messenger := transport.NewHTTPMessenger(cfg.Transport.SendURL, cfg.Transport.AuthToken)

	ledger := service.NewBalanceLedger(db, eventPublisher)
	catalog := service.NewCatalog(db)
	saga := service.NewPurchaseSaga(ledger, db, hesda, eventPublisher)

	dispatcher := bot.NewDispatcher(cfg.Bot, ledger, catalog, saga, hesda, db, messenger)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
	notifier := worker.NewNotifierWorker(consumer, db, messenger, cfg.Bot.OwnerNumber)
	go func() {
		if err := notifier.Start(workerCtx); err != nil {
			log.Printf("Notifier worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(dispatcher)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := messenger.Send(ctx, cfg.Bot.OwnerNumber, "🤖 "+cfg.Bot.Name+" aktif dan siap melayani!"); err != nil {
			log.Printf("Failed to send startup notification: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	notifier.Stop()

	log.Println("Server exited")
}
