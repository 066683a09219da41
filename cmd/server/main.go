package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order-inventory-service/config"
	"order-inventory-service/internal/api"
	"order-inventory-service/internal/broker"
	"order-inventory-service/internal/indexer"
	"order-inventory-service/internal/redisclient"
	"order-inventory-service/internal/search"
	"order-inventory-service/internal/service"
	"order-inventory-service/internal/store"
	"order-inventory-service/internal/util"
	"order-inventory-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	if err := run(ctx, cfg); err != nil {
		util.GetLogger().Error("Service stopped with error", zap.Error(err))
		util.SyncLogger()
		os.Exit(1)
	}
	util.GetLogger().Info("Service exited")
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := util.GetLogger()
	logger.Info("Starting order inventory service",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("index_transport", cfg.Search.EventTransport))

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer(cfg.Observ.JaegerEndpoint)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	db, err := store.NewStore(cfg.Database.URL, store.Options{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		LockTimeout:  cfg.Database.LockTimeout,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}
	logger.Info("Database connected and migrated")

	readiness := map[string]api.Pinger{"database": db}
	var cache service.Cache = redisclient.Noop{}
	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		cache = redisClient
		readiness["redis"] = redisClient
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Info("Redis disabled, caching is off")
	}

	engine := search.NewMeiliEngine(cfg.Search.Host, cfg.Search.APIKey, cfg.Search.Index)
	if !engine.Healthy() {
		logger.Warn("Search engine is not reachable, searches will fall back to the database",
			zap.String("host", cfg.Search.Host))
	}
	synchronizer := indexer.NewSynchronizer(engine, db)

	g, gCtx := errgroup.WithContext(ctx)

	// Queue workers either apply events locally or relay them through Kafka.
	var queueHandler indexer.Handler = synchronizer
	if cfg.Search.EventTransport == config.TransportKafka {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicIndex)
		defer producer.Close()
		queueHandler = broker.NewIndexRelay(producer)

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicIndex, cfg.Kafka.ConsumerGroup)
		indexWorker := worker.NewIndexWorker(consumer, synchronizer)
		defer indexWorker.Stop()
		g.Go(func() error {
			return indexWorker.Start(gCtx)
		})
		logger.Info("Index events relayed through Kafka", zap.String("topic", cfg.Kafka.TopicIndex))
	}

	// The queue stops only after the HTTP server has drained, so events from
	// requests finishing during shutdown are still handled.
	queueCtx, stopQueue := context.WithCancel(context.WithoutCancel(gCtx))
	defer stopQueue()
	queue := indexer.NewQueue(queueHandler, cfg.Search.QueueSize, cfg.Search.Workers, cfg.Search.EventTimeout)
	g.Go(func() error {
		return queue.Run(queueCtx)
	})

	resyncWorker := worker.NewResyncWorker(synchronizer, cfg.Search.SyncInterval)
	g.Go(func() error {
		return resyncWorker.Start(gCtx)
	})

	if cfg.Search.InitOnStartup {
		go synchronizer.InitializeIndexes(gCtx)
	}

	ledger := service.NewStockLedger(db)
	orderService := service.NewOrderService(db, ledger, cache, queue)
	productService := service.NewProductService(db, cache)
	searchService := service.NewSearchService(db, engine, cfg.Search.MaxHybridIDs)
	cacheService := service.NewCacheService(cache)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(orderService, productService, searchService, cacheService, readiness)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server")
		defer stopQueue()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
