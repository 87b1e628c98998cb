package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/coupon-service/internal/api/dto"
	"github.com/spec-kit/coupon-service/internal/auth"
	"github.com/spec-kit/coupon-service/internal/domain"
	"github.com/spec-kit/coupon-service/internal/service"
)

// AdminHandler exposes manager-facing account endpoints.
type AdminHandler struct {
	users *service.UserService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(userService *service.UserService) *AdminHandler {
	return &AdminHandler{users: userService}
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	entries, err := h.users.ListUsers(c.Context(), principal.User.ID, c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}

	results := make([]fiber.Map, 0, len(entries))
	for _, entry := range entries {
		item := fiber.Map{
			"id":         entry.User.ID,
			"name":       entry.User.Name,
			"email":      entry.User.Email,
			"status":     entry.User.Status,
			"anonymous":  entry.User.Anonymous,
			"created_at": entry.User.CreatedAt,
		}
		if entry.Role != nil {
			item["role"] = *entry.Role
		}
		results = append(results, item)
	}
	return c.JSON(fiber.Map{"data": results})
}

// SetRole handles PUT /admin/users/:id/role.
func (h *AdminHandler) SetRole(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	var req dto.RoleChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.users.SetUserRole(c.Context(), principal.User.ID, c.Params("id"), domain.RoleTag(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user_id":    assignment.UserID,
			"role":       assignment.Role,
			"updated_at": assignment.UpdatedAt,
		},
	})
}
