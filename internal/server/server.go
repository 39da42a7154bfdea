package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"storebot/internal/config"
	custommiddleware "storebot/internal/middleware"
	"storebot/internal/repository"
	"storebot/internal/service"
	"storebot/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	if redisClient != nil {
		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: 100,
			Window:            time.Minute,
			KeyPrefix:         "ratelimit",
		}, logger))
	}

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Repositories
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// Services. The checkout and admin dialogues keep separate step stores
	// so an administrator's product dialogue cannot collide with their own
	// shopping conversation.
	cartService := service.NewCartService(cartRepo, productRepo, logger)
	checkoutService := service.NewCheckoutService(
		userRepo, productRepo, cartRepo, orderRepo,
		cartService, service.NewStepStore(), cfg.Shop.DeliveryFee, logger,
	)
	adminService := service.NewAdminService(productRepo, orderRepo, service.NewStepStore(), logger)
	authService := service.NewAuthService(
		cfg.Auth.JWTSecret,
		cfg.Auth.AdminPasswordHash,
		cfg.Shop.AdminIDs,
		time.Duration(cfg.Auth.TokenExpiry)*time.Minute,
		logger,
	)

	// Handlers
	chatHandler := transport.NewChatHandler(productRepo, cartService, checkoutService, logger)
	adminHandler := transport.NewAdminHandler(authService, adminService, logger)

	authMiddleware := custommiddleware.AuthMiddleware(authService, logger)

	chatHandler.RegisterRoutes(router)
	adminHandler.RegisterRoutes(router, authMiddleware)

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
