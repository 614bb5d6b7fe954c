package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livraison-backend/internal/api"
	"livraison-backend/internal/config"
	"livraison-backend/internal/metrics"
	"livraison-backend/internal/modules/matching"
	"livraison-backend/internal/modules/orders"
	"livraison-backend/internal/modules/settings"
	"livraison-backend/internal/modules/support"
	"livraison-backend/internal/modules/users"
	"livraison-backend/internal/modules/wallet"
	"livraison-backend/internal/storage"
	"livraison-backend/pkg/logger"
	"livraison-backend/pkg/notify"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

const expansionTick = 30 * time.Second

func main() {
	// 1. --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog := logger.New("livraison")
	metrics.RegisterDefault()

	// 2. --- Database ---
	if err := storage.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to parse database configuration: %v", err)
	}
	dbPool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		log.Fatalf("Unable to create connection pool: %v", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	appLog.Info("connected to postgres")

	// 3. --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Unable to ping redis: %v", err)
	}
	appLog.Info("connected to redis")

	// 4. --- Notifications ---
	emailSender, err := notify.NewSESV2Sender(context.Background(), cfg.AWSRegion, cfg.EmailFrom)
	if err != nil {
		log.Fatalf("Failed to initialize email sender: %v", err)
	}
	mailTemplates, err := notify.NewTemplateManager()
	if err != nil {
		log.Fatalf("Failed to parse email templates: %v", err)
	}
	notifier := notify.New(appLog, emailSender)

	// 5. --- Settings (loaded before anything that prices or pays) ---
	settingsRepo := settings.NewRepository(dbPool)
	settingsService := settings.NewService(settingsRepo, appLog)
	if err := settingsService.Init(context.Background()); err != nil {
		log.Fatalf("Failed to load platform settings: %v", err)
	}
	settingsHandler := settings.NewHandler(settingsService)

	// 6. --- Module Wiring ---
	userRepo := users.NewRepository(dbPool)
	otpStore := users.NewOTPStore(rdb, time.Duration(cfg.OTPTTLMinutes)*time.Minute)
	locationStore := matching.NewLocationStore(rdb)
	userService := users.NewService(userRepo, otpStore, locationStore, notifier, appLog,
		cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	userHandler := users.NewHandler(userService)

	walletRepo := wallet.NewRepository(dbPool)
	walletService := wallet.NewService(walletRepo, settingsService, userRepo, notifier, mailTemplates, appLog)
	walletHandler := wallet.NewHandler(walletService)

	orderRepo := orders.NewRepository(dbPool)
	orderService := orders.NewService(orderRepo, walletService, settingsService, notifier, appLog)
	orderHandler := orders.NewHandler(orderService)

	supportRepo := support.NewRepository(dbPool)
	supportService := support.NewService(supportRepo, notifier, appLog)
	supportHandler := support.NewHandler(supportService)

	matchingService := matching.NewService(orderRepo, locationStore, settingsService, appLog)

	// 7. --- HTTP Server ---
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{cfg.ClientOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.SetupRoutes(e,
		userHandler,
		orderHandler,
		walletHandler,
		settingsHandler,
		supportHandler,
		userRepo,
		cfg.JWTSecret,
	)

	// 8. --- Background Jobs ---
	jobCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	go matchingService.RunScheduler(jobCtx, expansionTick)

	// 9. --- Start with graceful shutdown ---
	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server an error occurred:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	stopJobs()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal("Server forced to shutdown:", err)
	}
	appLog.Info("server exiting")
}
