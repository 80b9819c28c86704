// Package server contains the HTTP and WebSocket handlers of the blogging service.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "chronicle/docs" // swagger docs
	"chronicle/internal/cache"
	"chronicle/internal/config"
	"chronicle/internal/database"
	"chronicle/internal/featureflags"
	"chronicle/internal/middleware"
	"chronicle/internal/models"
	"chronicle/internal/notifications"
	"chronicle/internal/repository"
	"chronicle/internal/seed"
	"chronicle/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// feedCachePrefix namespaces the global feed cache keys in Redis.
const feedCachePrefix = "chronicle:cache:"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo    repository.UserRepository
	groupRepo   repository.GroupRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	followRepo  repository.FollowRepository

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager
	images       *service.ImageService

	feedService    *service.FeedService
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	authService    *service.AuthService
	groupService   *service.GroupService
}

// NewServer connects to the database and Redis described by cfg and builds a Server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if cfg.SeedGroups {
		if err := seedGroups(db); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		// Redis is optional; caching and events fall back to process memory.
		middleware.Logger.Warn("redis unavailable, continuing without it", "error", err)
		redisClient = nil
	}

	return NewServerWithDeps(cfg, db, redisClient)
}

// seedGroups upserts the built-in groups so a fresh deployment has something to post into.
func seedGroups(db *gorm.DB) error {
	defs, err := seed.BuiltInGroups()
	if err != nil {
		return err
	}
	groups, err := seed.Groups(db, defs)
	if err != nil {
		return fmt.Errorf("seed built-in groups: %w", err)
	}
	middleware.Logger.Info("built-in groups ready", "count", len(groups))
	return nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil. cacheOpts are applied to the global feed cache after
// the Redis backend, so tests can pin its clock.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, cacheOpts ...cache.Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if db == nil {
		return nil, errors.New("database is required")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("chronicle"),
		userRepo:       repository.NewUserRepository(db),
		groupRepo:      repository.NewGroupRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		followRepo:     repository.NewFollowRepository(db),
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		images:         service.NewImageService(cfg),
	}

	var feedOpts []cache.Option
	if redisClient != nil {
		feedOpts = append(feedOpts, cache.WithRedis(redisClient, feedCachePrefix))
	}
	feedOpts = append(feedOpts, cacheOpts...)

	s.feedService = service.NewFeedService(s.postRepo, s.groupRepo, s.userRepo, s.followRepo,
		cfg.PageSize, cfg.FeedCacheTTL, feedOpts...)
	s.postService = service.NewPostService(s.postRepo, s.groupRepo, s.commentRepo, s.images, s.notifier)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo, s.notifier)
	s.followService = service.NewFollowService(s.followRepo, s.userRepo, s.notifier)
	s.authService = service.NewAuthService(s.userRepo)
	s.groupService = service.NewGroupService(s.groupRepo)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Resolve the caller before the context middleware copies it into the request context.
	app.Use(middleware.Authenticate(s.config.JWTSecret))

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global per-IP ceiling; the stricter per-action limits live on the routes.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// NewApp builds the Fiber application with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Chronicle",
		BodyLimit: int(s.config.MaxImageBytes) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// StartWiring connects the live feed hub to the event stream. It must run before
// events are published for them to reach websocket clients.
func (s *Server) StartWiring(ctx context.Context) error {
	if s.shutdownFn == nil {
		s.shutdownCtx, s.shutdownFn = context.WithCancel(ctx)
	}
	return s.hub.StartWiring(s.shutdownCtx, s.notifier)
}

// Start wires the hub, builds the app if needed and listens on the configured port.
func (s *Server) Start() error {
	if err := s.StartWiring(context.Background()); err != nil {
		middleware.Logger.Error("failed to start live feed wiring", "error", err)
	}
	if s.app == nil {
		s.NewApp()
	}

	middleware.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the event subscriber
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down live feed hub", "error", err)
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
