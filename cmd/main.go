package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flight-fare-tracker/config"
	_ "flight-fare-tracker/docs"
	"flight-fare-tracker/internal/handler"
	"flight-fare-tracker/internal/repository"
	"flight-fare-tracker/internal/security"
	"flight-fare-tracker/internal/service"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Flight-fare-tracker
// @version 1.0
// @description REST API для отслеживания цен на авиабилеты

// @host localhost:8080

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	db, err := config.SetupDatabase(cfg.DatabaseConfig.DSN)
	if err != nil {
		log.Fatalf("Не удалось подключиться к БД: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Ошибка при закрытии БД: %v", err)
		}
	}()

	redisClient, err := config.SetupRedis(&cfg.RedisConfig)
	if err != nil {
		log.Fatalf("Ошибка подключения к Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Ошибка при закрытии Redis: %v", err)
		}
	}()

	srv, router := config.SetupServer(cfg.ServerAddr)

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	watchRepo := repository.NewWatchRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, time.Duration(cfg.TTL.S3AndRedis)*time.Second)

	s3Service, err := service.NewS3Service(ctx, &cfg.S3Config)
	if err != nil {
		log.Fatalf("Ошибка создания S3 сервиса: %v", err)
	}

	jwtService := security.NewJWTService(&cfg.JWT)
	tokenService := service.NewTokenService(sessionRepo, jwtService, userRepo)
	userService := service.NewUserService(userRepo)
	watchService := service.NewWatchService(watchRepo, cacheRepo, s3Service, userRepo, time.Duration(cfg.TTL.S3AndRedis)*time.Second)

	guard := security.NewGuard(jwtService.AccessVerifier(), tokenService, &cfg.JWT)

	authHandler := handler.NewAuthenticationHandler(tokenService, &cfg.JWT)
	userHandler := handler.NewUserHandler(userService)
	watchHandler := handler.NewWatchHandler(watchService)

	router.Use(config.DBMiddleware(db))
	router.Get("/swagger/*", httpSwagger.WrapHandler)

	setupAuthRoutes(router, authHandler, userHandler, guard)
	setupWatchRoutes(router, watchHandler, guard)

	go runTokenCleanup(ctx, sessionRepo)

	runServer(ctx, srv)
}

func setupAuthRoutes(r chi.Router, h *handler.AuthenticationHandler, uh *handler.UserHandler, guard *security.Guard) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(guard.Middleware())
			r.Get("/me", h.GetCurrentUser)
			r.Head("/me", h.GetCurrentUser)
		})
		r.Group(func(r chi.Router) {
			// публичные маршруты: логин и явная ротация идут без guard,
			// ротация сама проверяет refresh-cookie
			r.Post("/", h.Login)
			r.Post("/refresh", h.RefreshToken)
			r.Post("/logout", h.Logout)
		})
	})

	r.Post("/api/register", uh.RegisterUser)
}

func setupWatchRoutes(r chi.Router, h *handler.WatchHandler, guard *security.Guard) {
	r.Route("/api/watches", func(r chi.Router) {
		r.Use(guard.Middleware())
		r.Get("/", h.ListWatches)
		r.Post("/", h.CreateWatch)

		r.Route("/{watch_id}", func(r chi.Router) {
			r.Get("/", h.GetWatch)
			r.Delete("/", h.DeleteWatch)
			r.Post("/snapshots", h.RecordSnapshot)
		})
	})
}

// runTokenCleanup раз в час удаляет просроченные записи refresh-токенов
func runTokenCleanup(ctx context.Context, sessionRepo *repository.SessionRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := sessionRepo.DeleteExpired(ctx)
			if err != nil {
				log.Printf("ошибка очистки просроченных токенов: %v", err)
				continue
			}
			if deleted > 0 {
				log.Printf("удалено просроченных refresh токенов: %d", deleted)
			}
		}
	}
}

func runServer(ctx context.Context, server *http.Server) {
	serverErrors := make(chan error, 1)
	go func() {
		log.Println("сервер запущен на " + server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			log.Fatalf("ошибка работы сервера: %v", err)
		}
	case sig := <-signalChannel:
		log.Printf("получен сигнал %v остановки работы сервера ", sig)
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		log.Printf("ошибка при остановке сервера: %v", err)
	} else {
		log.Println("Сервер успешно остановлен")
	}
}
