package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/coupon-service/internal/auth"
	"github.com/spec-kit/coupon-service/internal/service"
)

// StatsHandler exposes aggregated per-retailer statistics.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: statsService}
}

// Retailers handles GET /stats/retailers.
func (h *StatsHandler) Retailers(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	all := c.QueryBool("all", false)
	stats, err := h.stats.RetailerStats(c.Context(), principal.User.ID, all)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}
