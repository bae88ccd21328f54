package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/md-notes-api/api/swagger"
	"github.com/noah-isme/md-notes-api/internal/ai"
	"github.com/noah-isme/md-notes-api/internal/handler"
	"github.com/noah-isme/md-notes-api/internal/middleware"
	"github.com/noah-isme/md-notes-api/internal/repository"
	"github.com/noah-isme/md-notes-api/internal/service"
	"github.com/noah-isme/md-notes-api/internal/stream"
	"github.com/noah-isme/md-notes-api/pkg/cache"
	"github.com/noah-isme/md-notes-api/pkg/config"
	"github.com/noah-isme/md-notes-api/pkg/database"
	"github.com/noah-isme/md-notes-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/md-notes-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/md-notes-api/pkg/middleware/requestid"
)

// @title Markdown Notes API
// @version 1.0.0
// @description Notes backend with JWT sessions and streamed AI assistance
// @BasePath /api
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	gemini, err := ai.NewGeminiClient(context.Background(), cfg.AI.APIKey, cfg.AI.Model, cfg.AI.MaxTokens)
	if err != nil {
		logr.Sugar().Fatalw("failed to init generation client", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	tokenRepo := repository.NewTokenRepository(redisClient)
	historyRepo := repository.NewHistoryRepository(cfg.AI.HistoryLimit)

	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret:            cfg.JWT.Secret,
		AccessExpiration:  cfg.JWT.Expiration,
		RefreshExpiration: cfg.JWT.RefreshExpiration,
		Issuer:            cfg.JWT.Issuer,
	})
	authSvc := service.NewAuthService(userRepo, tokenRepo, tokenSvc, validate, logr)
	noteSvc := service.NewNoteService(noteRepo, validate, logr)
	metricsSvc := service.NewMetricsService()
	aiSvc := service.NewAIService(gemini, historyRepo, validate, logr, service.AIConfig{
		SystemPrompt: cfg.AI.SystemPrompt,
	}, metricsSvc)

	relay := stream.NewRelay(cfg.Stream.IdleTimeout, logr, metricsSvc)

	authHandler := handler.NewAuthHandler(authSvc)
	noteHandler := handler.NewNoteHandler(noteSvc)
	aiHandler := handler.NewAIHandler(aiSvc, relay)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Authenticate(authSvc, logr))

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", middleware.RequireAuth(), authHandler.Me)
	}

	notes := api.Group("/notes", middleware.RequireAuth())
	{
		notes.GET("", noteHandler.List)
		notes.POST("", noteHandler.Create)
		notes.GET("/starred", noteHandler.Starred)
		notes.GET("/recent", noteHandler.Recent)
		notes.GET("/search", noteHandler.Search)
		notes.GET("/export", noteHandler.Export)
		notes.GET("/:id", noteHandler.Get)
		notes.PUT("/:id", noteHandler.Update)
		notes.DELETE("/:id", noteHandler.Delete)
		notes.PUT("/:id/star", noteHandler.ToggleStar)
	}

	aiGroup := api.Group("/ai")
	{
		// Stream endpoints stay outside RequireAuth: rejection is delivered
		// as a single SSE error event rather than a JSON 401.
		aiGroup.POST("/chat/stream", aiHandler.StreamChat)
		aiGroup.POST("/enhance/stream", aiHandler.StreamEnhance)
		aiGroup.POST("/summarize/stream", aiHandler.StreamSummarize)

		sync := aiGroup.Group("", middleware.RequireAuth())
		sync.POST("/chat", aiHandler.Chat)
		sync.POST("/enhance", aiHandler.Enhance)
		sync.POST("/summarize", aiHandler.Summarize)
		sync.POST("/translate", aiHandler.Translate)
		sync.GET("/conversations", aiHandler.Conversations)
		sync.DELETE("/conversations", aiHandler.ClearConversations)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
