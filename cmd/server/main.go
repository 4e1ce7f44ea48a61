package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/StuffMaster78/acad-system-backend/internal/config"
	"github.com/StuffMaster78/acad-system-backend/internal/db"
	httpHandlers "github.com/StuffMaster78/acad-system-backend/internal/http/handlers"
	httpRouter "github.com/StuffMaster78/acad-system-backend/internal/http/router"
	"github.com/StuffMaster78/acad-system-backend/internal/logger"
	"github.com/StuffMaster78/acad-system-backend/internal/models"
	"github.com/StuffMaster78/acad-system-backend/internal/repository"
	"github.com/StuffMaster78/acad-system-backend/internal/service"
	"github.com/StuffMaster78/acad-system-backend/internal/storage"
	"github.com/StuffMaster78/acad-system-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	fileStorage, err := storage.NewFileStorage(cfg.FileStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	orderRepo := repository.NewOrderRepository(dbConn)
	logRepo := repository.NewTransitionLogRepository(dbConn)
	assignmentRepo := repository.NewAssignmentRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	websiteRepo := repository.NewWebsiteRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	notificationService := service.NewNotificationService(notificationRepo)
	transitionService := service.NewTransitionService(orderRepo, logRepo, websiteRepo)
	assignmentService := service.NewAssignmentService(orderRepo, userRepo, assignmentRepo, transitionService, service.NewLevelAccessPolicy(), notificationService)
	priorityService := service.NewPriorityService(orderRepo, userRepo, assignmentRepo, assignmentService)
	disputeService := service.NewDisputeService(disputeRepo, orderRepo, userRepo, transitionService, notificationService)

	// Клиент получает push о каждой смене статуса своего заказа.
	registerStatusChangeHooks(transitionService, notificationService)

	// Вебсокеты.
	hub := ws.NewHub(ctx)
	go hub.Run()
	notificationService.SetHub(hub)

	// Свипер просроченных офферов предпочтительным писателям.
	go runPreferredSweeper(ctx, assignmentService)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	orderHandler := httpHandlers.NewOrderHandler(orderRepo, logRepo, transitionService, authService)
	assignmentHandler := httpHandlers.NewAssignmentHandler(assignmentService, priorityService, authService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService, authService)
	fileHandler := httpHandlers.NewFileHandler(orderRepo, fileStorage, authService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	engine := httpRouter.SetupRouter(cfg, authHandler, orderHandler, assignmentHandler, disputeHandler, fileHandler, notificationHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// registerStatusChangeHooks вешает after-хук на каждую пару переходов:
// клиент узнаёт о любой смене статуса своего заказа.
func registerStatusChangeHooks(transitions *service.TransitionService, notifier service.Notifier) {
	hook := func(ctx context.Context, order *models.Order, actor *models.User, metadata map[string]any) error {
		notifier.Notify(ctx, order.ClientID, models.EventOrderStatusChanged, map[string]any{
			"order_id": order.ID,
			"status":   order.Status,
		}, order.WebsiteID)
		return nil
	}
	for from, targets := range models.StatusTransitions {
		for _, to := range targets {
			transitions.RegisterAfterHook(from, to, hook)
		}
	}
}

// runPreferredSweeper периодически возвращает в общий пул заказы,
// у которых истёк оффер предпочтительному писателю.
func runPreferredSweeper(ctx context.Context, assignments *service.AssignmentService) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			released, err := assignments.ReleasePreferredOffers(ctx, now)
			if err != nil {
				logger.Log.WithError(err).Warn("main: свипер предпочтительных офферов завершился с ошибкой")
				continue
			}
			if released > 0 {
				logger.Log.WithField("released", released).Info("main: просроченные офферы возвращены в пул")
			}
		}
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
