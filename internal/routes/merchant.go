package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/merchant_payouts/internal/merchant"
)

// RegisterMerchantRoutes wires balance and activity endpoints.
func RegisterMerchantRoutes(r fiber.Router, h *merchant.Handler) {
	r.Get("/merchant", h.Merchant)
	r.Get("/merchant/activity", h.Activity)
}
