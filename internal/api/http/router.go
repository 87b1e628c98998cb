package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/coupon-service/internal/api/http/handlers"
	"github.com/spec-kit/coupon-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Coupons        *handlers.CouponsHandler
	Stats          *handlers.StatsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/demo", cfg.Auth.Demo)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuth())
	authProtected.Post("/logout", cfg.Auth.Logout)
	authProtected.Get("/me", cfg.Auth.Me)

	coupons := app.Group("/coupons", cfg.AuthMiddleware.Handle, auth.RequireAuth())
	coupons.Get("", cfg.Coupons.List)
	coupons.Post("", cfg.Coupons.Create)
	coupons.Get("/:id", cfg.Coupons.Get)
	coupons.Put("/:id", cfg.Coupons.Update)
	coupons.Delete("/:id", cfg.Coupons.Delete)
	coupons.Post("/:id/redeem", cfg.Coupons.Redeem)

	stats := app.Group("/stats", cfg.AuthMiddleware.Handle, auth.RequireAuth())
	stats.Get("/retailers", cfg.Stats.Retailers)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAuth())
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Put("/users/:id/role", cfg.Admin.SetRole)
}
