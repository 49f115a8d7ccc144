package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bodyscan-go/internal/client"
	"bodyscan-go/internal/config"
	"bodyscan-go/internal/database"
	"bodyscan-go/internal/handler"
	"bodyscan-go/internal/health"
	"bodyscan-go/internal/logger"
	"bodyscan-go/internal/middleware"
	"bodyscan-go/internal/pose"
	"bodyscan-go/internal/regions"
	"bodyscan-go/internal/repository"
	"bodyscan-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const version = "1.0.0"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	cfg := config.LoadConfig()

	log := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	log.Infof("Запуск BodyScan API Server %s (режим обработки: %s)", version, cfg.Processing.Mode)

	store := regions.NewStore()
	profiles, dbCheck := initProfiles(cfg, store, log)
	if err := profiles.Load(); err != nil {
		log.Fatalf("Не удалось загрузить профили зон: %v", err)
	}

	engine := newEngine(cfg, store, log)
	sessions := service.NewSessionService(engine, pose.NewValidator(pose.DefaultThresholds()), cfg.Session.TTL, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessions.Run(ctx, time.Minute)

	// gRPC health сервис
	healthServer := health.NewServer(engine, 30*time.Second, log)
	grpcLis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
	if err != nil {
		log.Fatalf("Не удалось открыть gRPC порт %d: %v", cfg.GRPC.Port, err)
	}
	go healthServer.Watch(ctx)
	go func() {
		if err := healthServer.Serve(grpcLis); err != nil {
			log.Errorf("gRPC health сервер остановлен: %v", err)
		}
	}()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	frameLimit := middleware.NewRateLimiter(cfg.RateLimit.FramesPerSecond, cfg.RateLimit.Burst, log)
	handler.NewSessionHandler(sessions, frameLimit.Middleware(), log).RegisterRoutes(router)
	handler.NewProfileHandler(profiles, log).RegisterRoutes(router)
	handler.NewHealthHandler(engine, dbCheck, version, log).RegisterRoutes(router)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "BodyScan API Server",
			"version": version,
			"status":  "running",
		})
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Infof("Сервер слушает %s", srv.Addr)
		log.Infof("API доступно по адресу http://localhost:%d/api/v1", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Не удалось запустить сервер: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Остановка сервера")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Ошибка остановки HTTP сервера: %v", err)
	}
	healthServer.Stop()
	if err := sessions.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Сессии не завершились: %v", err)
	}
	if err := database.Close(); err != nil {
		log.Errorf("Ошибка закрытия базы данных: %v", err)
	}
}

// initProfiles подключает таблицу профилей к PostgreSQL, если не выбрана встроенная таблица
func initProfiles(cfg *config.Config, store *regions.Store, log *logrus.Logger) (*service.ProfileService, func() error) {
	if cfg.ProfileStore == config.ProfileStoreBuiltin {
		return service.NewProfileService(nil, store, log), nil
	}

	log.Info("Подключение к базе данных...")
	err := database.Connect(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Name,
		Username: cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
	}, log)
	if err != nil {
		log.Fatalf("Не удалось подключиться к базе данных: %v", err)
	}

	if err := database.Migrate(log); err != nil {
		log.Fatalf("Не удалось выполнить миграции: %v", err)
	}
	if err := database.HealthCheck(); err != nil {
		log.Fatalf("База данных недоступна: %v", err)
	}

	repo := repository.NewRegionProfileRepository(database.DB)
	return service.NewProfileService(repo, store, log), database.HealthCheck
}

func newEngine(cfg *config.Config, store *regions.Store, log *logrus.Logger) service.Engine {
	switch cfg.Processing.Mode {
	case config.ModeRemote:
		log.Infof("Сервис обработки %s, таймаут %v", cfg.Processing.BaseURL, cfg.ProcessingTimeout())
		api := client.NewProcessingClient(cfg.Processing.BaseURL, cfg.ProcessingTimeout(), log)
		return service.NewRemoteEngine(api, log)
	case config.ModeLocal:
	default:
		log.Warnf("Неизвестный режим обработки %q, используем local", cfg.Processing.Mode)
	}
	return service.NewLocalEngine(store, log)
}
