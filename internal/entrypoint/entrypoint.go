package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/libshelf/library-api/internal/auth"
	"github.com/libshelf/library-api/internal/config"
	"github.com/libshelf/library-api/internal/database"
	"github.com/libshelf/library-api/internal/database/borrows"
	"github.com/libshelf/library-api/internal/database/catalog"
	"github.com/libshelf/library-api/internal/database/users"
	http_controllers "github.com/libshelf/library-api/internal/http"
	"github.com/libshelf/library-api/internal/recommend"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting library API v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	catalogRepo := catalog.NewRepository(db.DB)
	borrowRepo := borrows.NewRepository(db.DB)
	userRepo := users.NewRepository(db.DB)

	tokenSecret := cfg.Auth.TokenSecret
	if tokenSecret == "" {
		tokenSecret, err = auth.GenerateTokenSecret()
		if err != nil {
			log.Fatalf("Failed to generate token secret: %v", err)
		}
		log.Printf("Generated token secret (set AUTH_TOKEN_SECRET to persist sessions across restarts)")
	}

	tokenService := auth.NewTokenService(tokenSecret, cfg.Auth.AccessExpiry, cfg.Auth.RefreshExpiry)
	authService := auth.NewService(userRepo, cfg.Auth.BcryptCost)
	authMiddleware := auth.NewMiddleware(tokenService)
	authController := auth.NewController(authService, tokenService)

	recommender := recommend.NewService(
		userRepo,
		catalogRepo,
		recommend.NewFileScorer(cfg.Recommender.ModelPath),
		recommend.Config{
			LikedWindow: cfg.Recommender.LikedWindow,
			TopPerLiked: cfg.Recommender.TopPerLiked,
			SampleSize:  cfg.Recommender.SampleSize,
		},
	)

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       db,
		Version:        version,
		AuthController: authController,
		AuthMiddleware: authMiddleware,
		Authors:        catalogRepo,
		Genres:         catalogRepo,
		Books:          catalogRepo,
		Borrows:        borrowRepo,
		Users:          userRepo,
		Registrar:      authService,
		Profiles:       userRepo,
		Passwords:      authService,
		Recommender:    recommender,
	})

	Serve(router, cfg, nil)
}
