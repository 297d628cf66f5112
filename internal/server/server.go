// Package server contains the HTTP handlers and routing for the API.
package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"onstream/internal/cache"
	"onstream/internal/config"
	"onstream/internal/database"
	"onstream/internal/middleware"
	"onstream/internal/models"
	"onstream/internal/repository"
	"onstream/internal/service"
	"onstream/internal/sources"
	"onstream/internal/tmdb"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus

	catalogRepo  *repository.CatalogRepository
	accountRepo  *repository.AccountRepository
	userDataRepo *repository.UserDataRepository

	catalog  *service.CatalogService
	accounts *service.AccountService
}

// NewServer creates a server instance, establishing database and Redis
// connections from the configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	gateway := tmdb.NewClient(cfg.TMDBAPIKey, cfg.TMDBLanguage, cfg.TMDBBaseURL, cfg.MemoTTL())
	resolver := sources.NewResolver(cfg.SourcesAPIBase)

	return NewServerWithDeps(cfg, db, cache.GetClient(), gateway, resolver)
}

// NewServerWithDeps creates a Server from already-initialized dependencies.
// Tests use this to substitute the upstream gateway and source resolver.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, gateway service.Gateway, resolver service.SourceResolver) (*Server, error) {
	catalogRepo := repository.NewCatalogRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	userDataRepo := repository.NewUserDataRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("onstream-api"),
		catalogRepo:    catalogRepo,
		accountRepo:    accountRepo,
		userDataRepo:   userDataRepo,
	}
	s.catalog = service.NewCatalogService(catalogRepo, gateway, resolver, cfg.CatalogTTL(), cfg.StreamTTL())
	s.accounts = service.NewAccountService(accountRepo, cfg.JWTSecret, time.Duration(cfg.TokenExpiryMin)*time.Minute)

	return s, nil
}

// CatalogRepo exposes the catalog repository for bootstrap wiring (sweeper).
func (s *Server) CatalogRepo() *repository.CatalogRepository {
	return s.catalogRepo
}

// Accounts exposes the account service for bootstrap wiring (admin seeding).
func (s *Server) Accounts() *service.AccountService {
	return s.accounts
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (limiter) so browser
	// clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://localhost:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limit, 100 requests per minute per IP.
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "OnStream API",
			"version": "1.0.0",
		})
	})
	app.Get("/health", s.HealthCheck)
	api.Get("/health", s.HealthCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 5, time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, time.Minute, "login"), s.Login)
	auth.Get("/me", s.AuthRequired(), s.Me)

	// Public catalog routes
	movies := api.Group("/movies", middleware.RateLimit(
		s.redis, 60, time.Minute, "browse"))
	movies.Get("/", s.ListMovies)
	movies.Get("/trending", s.Trending)
	movies.Get("/genres", s.Genres)
	movies.Get("/search", s.Search)
	movies.Get("/:id/stream", middleware.RateLimit(
		s.redis, 30, time.Minute, "streams"), s.Streams)
	movies.Get("/:id", s.MovieDetails)

	tv := api.Group("/tv", middleware.RateLimit(
		s.redis, 60, time.Minute, "browse"))
	tv.Get("/", s.ListTV)

	// Per-user routes
	protected := api.Group("/users/me", s.AuthRequired())
	protected.Get("/favorites", s.ListFavorites)
	protected.Post("/favorites", s.AddFavorite)
	protected.Delete("/favorites/:id", s.RemoveFavorite)
	protected.Get("/history", s.ListHistory)
	protected.Post("/history", s.RecordHistory)
	protected.Delete("/history/:id", s.RemoveHistory)

	// Admin routes
	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/stats", middleware.RateLimit(
		s.redis, 30, time.Minute, "admin_stats"), s.AdminStats)
	admin.Post("/cache/clear", middleware.RateLimit(
		s.redis, 10, time.Minute, "admin_cache_clear"), s.AdminClearCache)
}

// AuthRequired validates the Bearer token and loads the account into the
// request locals and context.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		username, err := s.accounts.VerifyToken(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		account, err := s.accounts.GetAccount(c.UserContext(), username)
		if err != nil || account == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		// Best effort; an activity stamp failure must not block the request.
		_ = s.accountRepo.TouchLastLogin(c.UserContext(), account.Username)

		c.Locals("username", account.Username)
		c.Locals("isAdmin", account.IsAdmin)
		ctx := context.WithValue(c.UserContext(), middleware.UsernameKey, account.Username)
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// AdminRequired rejects non-admin accounts. It must run after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isAdmin, _ := c.Locals("isAdmin").(bool)
		if !isAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				&models.AppError{Code: models.CodeForbidden, Message: "Admin access required"})
		}
		return c.Next()
	}
}

// HealthCheck reports service liveness.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return models.RespondOK(c, "ok", fiber.Map{
		"status":    "healthy",
		"env":       s.config.Env,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Start builds the Fiber app and listens on the configured port.
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "OnStream API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the server and closes its connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	return nil
}
