package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/teamtrack/teamtrack-api/internal/auth"
	"github.com/teamtrack/teamtrack-api/internal/config"
	"github.com/teamtrack/teamtrack-api/internal/handler"
	"github.com/teamtrack/teamtrack-api/internal/repo"
	"github.com/teamtrack/teamtrack-api/internal/service"
	"github.com/teamtrack/teamtrack-api/internal/storage"
	"github.com/teamtrack/teamtrack-api/internal/worker"
	"github.com/teamtrack/teamtrack-api/migrations"
)

func main() {
	// Подключаем логгер
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Загрузка конфигурации
	cfg := config.Load()

	// Подключаем БД
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to Database.") // Fatal потому что дальнейшая работа теряет смысл
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal("Failed to ping the Database.")
	}
	logger.Info("Successfully connected to the Database!")

	// Накатываем миграции до запуска сервера
	if err := runMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal("Migrations failed", zap.Error(err))
	}
	logger.Info("Migrations applied")

	blobs, err := storage.NewLocal(cfg.UploadDir)
	if err != nil {
		logger.Fatal("Upload dir init failed", zap.Error(err))
	}

	taskRepo := repo.NewTaskRepo(pool)
	articleRepo := repo.NewArticleRepo(pool)
	userRepo := repo.NewUserRepo(pool)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	authMW := auth.NewMiddleware(tokens, userRepo, logger)

	taskService := service.NewTaskService(taskRepo, userRepo, blobs)
	articleService := service.NewArticleService(articleRepo, blobs)
	userService := service.NewUserService(userRepo, blobs)

	r := handler.NewRouter(handler.Deps{
		Logger:      logger,
		Tasks:       taskService,
		Articles:    articleService,
		Users:       userService,
		Tokens:      tokens,
		AuthMW:      authMW,
		Blobs:       blobs,
		CORSOrigins: cfg.CORSOrigins,
	})

	overdue := worker.NewOverdueMarker(pool, logger, cfg.OverdueInterval)
	overdue.Start(context.Background())

	srv := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started at ", zap.String("port", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed: ", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down server...")
	overdue.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Shutdown error: ", zap.Error(err))
	}
	logger.Info("Server stopped succsessfully!")
}

func runMigrations(databaseURL string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}

	// драйвер pgx/v5 регистрируется под схемой pgx5
	url := strings.Replace(databaseURL, "postgres://", "pgx5://", 1)
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
