package main

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"hrassist_back/authorization"
	"hrassist_back/cache"
	"hrassist_back/chat"
	"hrassist_back/erp"
	"hrassist_back/hr"
	"hrassist_back/storage"
)

func main() {
	_ = godotenv.Load()

	logger, err := buildLogger()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	db, err := erp.OpenDatabaseFromEnv()
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	if err := db.AutoMigrate(erp.AllModels()...); err != nil {
		logger.Fatal("migrate hr models", zap.Error(err))
	}
	if err := db.AutoMigrate(&chat.Conversation{}, &chat.Message{}, &chat.Configuration{}); err != nil {
		logger.Fatal("migrate chat models", zap.Error(err))
	}

	redisClient, err := cache.NewClientFromEnv()
	if err != nil {
		logger.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		redisClient = nil
	}

	erpStore, err := erp.NewStore(db)
	if err != nil {
		logger.Fatal("init erp store", zap.Error(err))
	}
	registry, err := hr.NewRegistry(erpStore, hr.NewReportCache(redisClient), logger)
	if err != nil {
		logger.Fatal("init hr registry", zap.Error(err))
	}
	chatStore := chat.NewStore(db)

	router := gin.Default()
	router.Use(buildCORS())

	authModule, err := authorization.RegisterRoutes(router, db)
	if err != nil {
		logger.Fatal("register auth routes", zap.Error(err))
	}
	guard := authModule.Guard()

	if _, err := chat.RegisterRoutes(router, guard, chatStore, registry, logger); err != nil {
		logger.Fatal("register chat routes", zap.Error(err))
	}

	registry.RegisterRoutes(router, guard)

	docs, err := storage.NewDocumentStorageFromEnv()
	if err != nil {
		logger.Fatal("init document storage", zap.Error(err))
	}
	if docs == nil {
		logger.Warn("document storage not configured, uploads disabled")
	}
	if _, err := storage.RegisterRoutes(router, guard, db, docs, logger); err != nil {
		logger.Fatal("register document routes", zap.Error(err))
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	logger.Info("server starting", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		logger.Fatal("start server", zap.Error(err))
	}
}

func buildLogger() (*zap.Logger, error) {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("APP_ENV")), "production") {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func buildCORS() gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	origins := strings.TrimSpace(os.Getenv("CORS_ALLOW_ORIGINS"))
	if origins == "" {
		config.AllowAllOrigins = true
		config.AllowCredentials = false
	} else {
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				config.AllowOrigins = append(config.AllowOrigins, trimmed)
			}
		}
	}

	return cors.New(config)
}
