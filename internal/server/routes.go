package server

import (
	"time"

	"chronicle/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	limit := s.config.RateLimitPerMinute
	if limit <= 0 {
		limit = 30
	}
	rateLimit := func(name string) fiber.Handler {
		return middleware.RateLimit(s.redis, limit, time.Minute, name)
	}
	loginRequired := middleware.LoginRequired()

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Uploaded images
	app.Static("/media", s.images.Root(), fiber.Static{
		Browse:        false,
		CacheDuration: time.Hour,
		MaxAge:        86400,
	})

	// Feeds
	app.Get("/", s.Index)
	app.Get("/group/:slug", s.GroupPosts)
	app.Get("/profile/:username", s.Profile)
	app.Get("/follow", loginRequired, s.FollowIndex)

	// Post pages and actions. Specific /:id/:action routes come before /:id.
	app.Get("/create", loginRequired, s.PostCreateForm)
	app.Post("/create", loginRequired, rateLimit("create_post"), s.PostCreate)
	app.Get("/posts/:id/edit", loginRequired, s.PostEditForm)
	app.Post("/posts/:id/edit", loginRequired, rateLimit("edit_post"), s.PostEdit)
	app.Post("/posts/:id/comment", loginRequired, rateLimit("add_comment"), s.AddComment)
	app.Get("/posts/:id", s.PostDetail)

	// Follow edges
	app.Get("/profile/:username/follow", loginRequired, rateLimit("follow"), s.ProfileFollow)
	app.Get("/profile/:username/unfollow", loginRequired, rateLimit("follow"), s.ProfileUnfollow)

	// Auth
	auth := app.Group("/auth")
	auth.Get("/login", s.LoginForm)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/logout", s.Logout)

	// JSON API
	api := app.Group("/api")
	api.Get("/posts", s.Index)
	api.Get("/groups", s.GetGroups)
	api.Post("/groups", middleware.APIAuthRequired(), rateLimit("create_group"), s.CreateGroup)

	// Live feed
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/feed", s.LiveFeedHandler())
}
