// @title Sellit API
// @version 1.0
// @description API кампус-маркетплейса Sellit
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"sellit/config"
	"sellit/internal/db"
	"sellit/internal/escrow"
	"sellit/internal/handlers"
	"sellit/internal/services"
	"sellit/internal/services/storage"
)

func main() {
	// 1. Загружаем конфиг из .env / окружения
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	// 1.1 Определяем режим запуска (dev/prod)
	env := os.Getenv("APP_ENV")
	if env == "prod" || env == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 2. Открываем GORM-подключение
	gormDB, err := db.NewDB(cfg.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	// 2.1 Кеш просмотров (опционален — без REDIS_ADDR отключён)
	var views *services.ViewCache
	if cfg.RedisAddr != "" {
		views = services.NewViewCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	}

	// 2.2 Хранилище фотографий (без S3_ENDPOINT — in-memory заглушка)
	store, err := storage.New(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}

	eng := escrow.NewEngine(gormDB)

	// 3. Создаём Gin-роутер
	r := gin.Default()
	r.Use(cors.Default())
	r.GET("/health", handlers.Health(gormDB))

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", handlers.Register(gormDB, cfg.TokenTypeTTL))
	auth.POST("/login", handlers.Login(gormDB, cfg.TokenTypeTTL))
	auth.POST("/refresh", handlers.Refresh(gormDB, cfg.TokenTypeTTL))
	auth.GET("/recover/:email", handlers.RecoverChallenge(gormDB))
	auth.POST("/recover", handlers.Recover(gormDB, cfg.TokenTypeTTL))
	auth.Use(handlers.AuthMiddleware(gormDB))
	auth.GET("/profile", handlers.Profile(gormDB))
	auth.POST("/2fa/enable", handlers.Enable2FA(gormDB))
	auth.POST("/logout", handlers.Logout(gormDB))

	// Публичная часть: лента, карточка, trending, категории
	api.GET("/listings", handlers.ListListings(gormDB, store))
	api.GET("/listings/trending", handlers.TrendingListings(gormDB, store, views))
	api.GET("/listings/:id", handlers.GetListing(gormDB, store, views))
	api.GET("/categories", handlers.GetCategories(gormDB))

	priv := api.Group("/")
	priv.Use(handlers.AuthMiddleware(gormDB))
	priv.GET("/countries", handlers.GetCountries(gormDB))
	priv.POST("/listings", handlers.CreateListing(gormDB))
	priv.POST("/listings/:id/image", handlers.UploadListingImage(gormDB, store))
	priv.POST("/escrow/commit/:listingId", handlers.CommitEscrow(gormDB, eng))
	priv.POST("/escrow/verify/:listingId", handlers.VerifyEscrow(gormDB, eng))
	priv.GET("/transactions/purchases", handlers.ListPurchases(gormDB))
	priv.GET("/transactions/sales", handlers.ListSales(gormDB))
	priv.GET("/notifications", handlers.ListNotifications(gormDB))
	priv.PATCH("/notifications/:id/read", handlers.ReadNotification(gormDB))
	priv.POST("/notifications/read-all", handlers.ReadAllNotifications(gormDB))
	priv.GET("/ws/notifications", handlers.NotificationsWS(gormDB))

	// 4. Запускаем сервер
	addr := ":" + cfg.Port
	log.Printf("listening on %s …", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
