package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"nimbo/internal/config"
	"nimbo/internal/database"
	"nimbo/internal/handler"
	"nimbo/internal/middleware"
	"nimbo/internal/repository"
	"nimbo/internal/router"
	"nimbo/internal/service"
)

func main() {
	cfg, err := config.Load(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Server.Env == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("🔧 Starting Nimbo",
		zap.Int("port", cfg.Server.Port),
		zap.String("env", cfg.Server.Env))

	// PostgreSQL connection may lag behind pod start; retry in the
	// background rather than crash-looping.
	db, err := database.InitPostgres(cfg.Database.URL)
	if err != nil {
		logger.Warn("⚠️  Failed to connect to PostgreSQL on startup, will retry in background",
			zap.Error(err))
		database.InitPostgresAsync(cfg.Database.URL, 5*time.Second)
	} else {
		logger.Info("✅ PostgreSQL connected")
	}

	redisClient := database.InitRedis(cfg.Redis.URL)

	userRepo := repository.NewUserRepository(db)
	workspaceRepo := repository.NewWorkspaceRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	presenceRepo := repository.NewPresenceRepository(db)

	publisher := service.NewRedisPublisher(logger)
	userService := service.NewUserService(userRepo, logger)
	workspaceService := service.NewWorkspaceService(workspaceRepo, userRepo, logger)
	roomService := service.NewRoomService(roomRepo, workspaceService, publisher, logger)
	messageService := service.NewMessageService(messageRepo, roomRepo, workspaceService, publisher, logger)
	invitationService := service.NewInvitationService(invitationRepo, workspaceRepo, userRepo, workspaceService, logger)
	presenceService := service.NewPresenceService(presenceRepo, publisher, logger)

	validator := middleware.NewJWTValidator(cfg.Auth.SecretKey)

	r := router.Setup(logger, validator, cfg.CORS.AllowedOrigins, router.Handlers{
		Health:     handler.NewHealthHandler(db, redisClient),
		User:       handler.NewUserHandler(userService),
		Workspace:  handler.NewWorkspaceHandler(workspaceService),
		Invitation: handler.NewInvitationHandler(invitationService),
		Room:       handler.NewRoomHandler(roomService),
		Message:    handler.NewMessageHandler(messageService),
		Presence:   handler.NewPresenceHandler(presenceService),
		WS:         handler.NewWSHandler(logger, workspaceService, roomRepo),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("🚀 Nimbo started successfully", zap.String("address", addr))

	if err := r.Run(addr); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
