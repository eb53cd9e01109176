package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/dhobighat/api/api/swagger"
	"github.com/dhobighat/api/internal/handler"
	"github.com/dhobighat/api/internal/middleware"
	"github.com/dhobighat/api/internal/repository"
	"github.com/dhobighat/api/internal/service"
	"github.com/dhobighat/api/pkg/cache"
	"github.com/dhobighat/api/pkg/config"
	"github.com/dhobighat/api/pkg/database"
	"github.com/dhobighat/api/pkg/imagehost"
	"github.com/dhobighat/api/pkg/logger"
	corsmiddleware "github.com/dhobighat/api/pkg/middleware/cors"
	reqidmiddleware "github.com/dhobighat/api/pkg/middleware/requestid"
)

// @title DhobiGhat API
// @version 1.0.0
// @description Wardrobe cleaning schedule tracker
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.Timeout)
	defer cancel()

	db, err := database.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to mongodb", "error", err)
	}
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logr.Sugar().Fatalw("failed to ensure indexes", "error", err)
	}

	metricsSvc := service.NewMetricsService()

	cacheEnabled := cfg.Cache.Enabled
	var cacheRepo service.CacheRepository
	if cacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			cacheEnabled = false
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cacheEnabled)

	itemRepo := repository.NewItemRepository(db.Collection(database.ClothingItemsCollection), logr)
	userRepo := repository.NewUserRepository(db.Collection(database.UsersCollection))

	uploader := imagehost.NewClient(cfg.ImageHost)

	itemSvc := service.NewItemService(itemRepo, uploader, cacheSvc, metricsSvc, nil, logr)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	exportSvc := service.NewExportService(itemRepo, logr)

	itemHandler := handler.NewItemHandler(itemSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	// reads are open; mutations require a valid access token
	authRequired := middleware.JWT(authSvc)

	items := api.Group("/clothing-items")
	{
		items.POST("", authRequired, itemHandler.Create)
		items.GET("", itemHandler.List)
		items.GET("/archived", itemHandler.ListArchived)
		items.GET("/needing-cleaning", itemHandler.NeedingCleaning)
		items.GET("/recently-cleaned", itemHandler.RecentlyCleaned)
		items.GET("/export", exportHandler.Export)
		items.GET("/search/:name", itemHandler.SearchByName)
		items.GET("/type/:itemType", itemHandler.FilterByType)
		items.PUT("/type/:itemType/cleaning-interval", authRequired, itemHandler.UpdateIntervalByType)
		items.GET("/:id", itemHandler.Get)
		items.PUT("/:id/cleaning-interval", authRequired, itemHandler.UpdateInterval)
		items.PUT("/:id/archive", authRequired, itemHandler.Archive)
		items.PUT("/:id/unarchive", authRequired, itemHandler.Unarchive)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
