package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/coupon-service/internal/api/dto"
	"github.com/spec-kit/coupon-service/internal/auth"
	"github.com/spec-kit/coupon-service/internal/domain"
	"github.com/spec-kit/coupon-service/internal/service"
)

// CouponsHandler exposes coupon CRUD and redemption endpoints.
type CouponsHandler struct {
	coupons *service.CouponService
}

// NewCouponsHandler constructs handler.
func NewCouponsHandler(couponService *service.CouponService) *CouponsHandler {
	return &CouponsHandler{coupons: couponService}
}

// Create handles POST /coupons.
func (h *CouponsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	var req dto.CouponCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	coupon, err := h.coupons.CreateCoupon(c.Context(), principal.User.ID, service.CouponCreateInput{
		Retailer:       req.Retailer,
		ValueCents:     req.ValueCents,
		Currency:       req.Currency,
		ExpiresAt:      req.ExpiresAt,
		ActivationCode: req.ActivationCode,
		PIN:            req.PIN,
		Notes:          req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCouponResponse(coupon)})
}

// List handles GET /coupons.
func (h *CouponsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	filter := service.CouponListFilter{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if retailer := strings.TrimSpace(c.Query("retailer")); retailer != "" {
		filter.Retailer = &retailer
	}
	for _, raw := range strings.Split(c.Query("status"), ",") {
		raw = strings.TrimSpace(strings.ToUpper(raw))
		if raw == "" {
			continue
		}
		filter.Statuses = append(filter.Statuses, domain.CouponStatus(raw))
	}

	all := c.QueryBool("all", false)
	coupons, err := h.coupons.ListCoupons(c.Context(), principal.User.ID, filter, all)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCouponListResponse(coupons)})
}

// Get handles GET /coupons/:id.
func (h *CouponsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	coupon, err := h.coupons.GetCoupon(c.Context(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCouponResponse(coupon)})
}

// Update handles PUT /coupons/:id.
func (h *CouponsHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	var req dto.CouponUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	coupon, err := h.coupons.UpdateCoupon(c.Context(), principal.User.ID, c.Params("id"), service.CouponUpdateInput{
		Retailer:       req.Retailer,
		ExpiresAt:      req.ExpiresAt,
		ClearExpiresAt: req.ClearExpiresAt,
		ActivationCode: req.ActivationCode,
		PIN:            req.PIN,
		Notes:          req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCouponResponse(coupon)})
}

// Redeem handles POST /coupons/:id/redeem.
func (h *CouponsHandler) Redeem(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	var req dto.CouponRedeemRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid payload")
		}
	}

	coupon, err := h.coupons.RedeemCoupon(c.Context(), principal.User.ID, c.Params("id"), req.AmountCents)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCouponResponse(coupon)})
}

// Delete handles DELETE /coupons/:id.
func (h *CouponsHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	if err := h.coupons.DeleteCoupon(c.Context(), principal.User.ID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
