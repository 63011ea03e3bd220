package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inventory-ledger/cache"
	"inventory-ledger/controllers"
	"inventory-ledger/database"
	"inventory-ledger/events"
	"inventory-ledger/jobs"
	"inventory-ledger/models"
	"inventory-ledger/notifier"
	"inventory-ledger/repository"
	"inventory-ledger/routes"
	"inventory-ledger/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal("Config load failed", zap.Error(err))
	}

	// --- Database ---
	if err := database.Connect(logger,
		&models.StockRecord{},
		&models.Reservation{},
		&models.AuditEntry{},
		&models.AlertSettings{},
		&models.AlertOverride{},
	); err != nil {
		logger.Fatal("DB connection failed", zap.Error(err))
	}

	// --- Repositories ---
	stockRepo := repository.NewGormStockRepository(database.DB)
	reservationRepo := repository.NewGormReservationRepository(database.DB)
	auditRepo := repository.NewGormAuditRepository(database.DB)
	alertRepo := repository.NewGormAlertRepository(database.DB)

	// --- Optional backends ---
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer producer.Close()
	}

	var alertCache *cache.AlertCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("Redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			alertCache = cache.NewAlertCache(redisClient, logger)
			defer redisClient.Close()
		}
	}

	var lowStockNotifier *notifier.LowStockNotifier
	if cfg.AlertSNSTopicARN != "" {
		awsCfg, err := notifier.LoadAWSConfig(context.Background())
		if err != nil {
			logger.Warn("AWS config load failed, stock notifications disabled", zap.Error(err))
		} else {
			snsClient := notifier.NewSNSClient(awsCfg)
			lowStockNotifier = notifier.NewLowStockNotifier(snsClient, cfg.AlertSNSTopicARN, alertRepo, logger)
		}
	}

	// publisher/notifier/cache interface params must stay nil when the
	// backend is absent; a typed nil pointer would dodge the nil checks.
	var publisher events.Publisher
	if producer != nil {
		publisher = producer
	}
	var stockNotifier services.StockNotifier
	if lowStockNotifier != nil {
		stockNotifier = lowStockNotifier
	}
	var invalidator services.CacheInvalidator
	if alertCache != nil {
		invalidator = alertCache
	}

	// --- Services ---
	reservationService := services.NewReservationService(
		stockRepo, reservationRepo, publisher, stockNotifier, invalidator, logger,
		services.ReservationServiceConfig{
			MaxRetries: cfg.MaxCASRetries,
			DefaultTTL: cfg.ReservationTTL,
		})
	adjustmentService := services.NewAdjustmentService(
		stockRepo, publisher, stockNotifier, invalidator, logger, cfg.MaxCASRetries)
	stockService := services.NewStockService(stockRepo, invalidator, logger, cfg.MaxCASRetries)
	auditService := services.NewAuditService(auditRepo)
	alertService := services.NewAlertService(stockRepo, alertRepo, logger)

	// --- Controllers ---
	stockController := controllers.NewStockController(stockService, adjustmentService)
	reservationController := controllers.NewReservationController(reservationService)
	auditController := controllers.NewAuditController(auditService)
	alertController := controllers.NewAlertController(alertService, alertCache)

	// --- HTTP router ---
	r := gin.New()
	r.Use(gin.Recovery())

	// Structured HTTP request logging
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		switch {
		case status >= 500:
			logger.Error("http_request", fields...)
		case status >= 400:
			logger.Warn("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	})

	// Request timeout middleware
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	routes.RegisterRoutes(r, stockController, reservationController, auditController, alertController)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "inventory-ledger"})
	})

	// --- Reservation sweeper ---
	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	if cfg.SweepInterval > 0 {
		sweeper := jobs.NewSweeper(reservationService, cfg.SweepInterval, logger)
		go sweeper.Run(sweeperCtx)
	} else {
		logger.Info("Internal sweeper disabled, expecting external sweep trigger")
	}

	// --- HTTP server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("Inventory Ledger started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Initiating graceful shutdown...")
	stopSweeper()
	httpShutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(httpShutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := database.Close(); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}

	log.Println("Inventory Ledger stopped gracefully")
}
