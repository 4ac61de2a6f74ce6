package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/merchant_payouts/internal/payouts"
)

// RegisterPayoutRoutes wires payout endpoints. guards run before creation
// only; lookups are safe to repeat.
func RegisterPayoutRoutes(r fiber.Router, h *payouts.Handler, guards ...fiber.Handler) {
	create := append(append([]fiber.Handler{}, guards...), h.Create)
	r.Post("/payouts", create...)
	r.Get("/payouts/:id", h.Get)
}
