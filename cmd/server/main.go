package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vending-service/config"
	"vending-service/internal/api"
	"vending-service/internal/broker"
	"vending-service/internal/models"
	"vending-service/internal/redisclient"
	"vending-service/internal/service"
	"vending-service/internal/store"
	"vending-service/internal/util"
	"vending-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting vending service")

	tp, err := util.InitTracer("vending-service", cfg.Observ.JaegerEndpoint)
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

	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	if cfg.Machine.Seed {
		if err := seedMachine(ctx, db, cfg.Machine.CoinFloat); err != nil {
			log.Fatalf("Failed to seed machine: %v", err)
		}
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicVending)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	vendingService := service.NewVendingService(db, redisClient, eventPublisher)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	alertConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicVending, cfg.Kafka.ConsumerGroup)
	alertWorker := worker.NewStockAlertWorker(alertConsumer, db, cfg.Machine.LowStockThreshold)
	go func() {
		if err := alertWorker.Start(workerCtx); err != nil {
			log.Printf("Stock alert worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(vendingService)
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
	alertWorker.Stop()

	log.Println("Server exited")
}

// seedMachine loads the initial coin float and catalog. Both seeds are
// idempotent, so restarting a deployed machine never resets its contents.
func seedMachine(ctx context.Context, db *store.Store, coinFloat int) error {
	if err := db.SeedCoins(ctx, coinFloat); err != nil {
		return err
	}

	items := []models.Item{
		{Name: "Tea", Price: decimal.NewFromFloat(1.30), Quantity: 10},
		{Name: "Espresso", Price: decimal.NewFromFloat(1.80), Quantity: 20},
		{Name: "Juice", Price: decimal.NewFromFloat(1.80), Quantity: 20},
		{Name: "Chicken Soup", Price: decimal.NewFromFloat(1.80), Quantity: 15},
	}
	return db.SeedItems(ctx, items)
}
