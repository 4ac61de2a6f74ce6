package merchant

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/merchant_payouts/internal/ledger"
	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

// simulateErrorHeader makes the merchant endpoint fail so clients can
// exercise their retry path.
const simulateErrorHeader = "X-Simulate-Error"

// Handler serves the merchant balance and activity feed.
type Handler struct {
	store ledger.Store
}

// NewHandler constructs a merchant handler.
func NewHandler(store ledger.Store) *Handler {
	return &Handler{store: store}
}

// Merchant returns balances with the most recent activity embedded. When a
// cursor query parameter is present it answers with an activity page
// instead, for older clients that paginate through this endpoint.
func (h *Handler) Merchant(c *fiber.Ctx) error {
	if c.Get(simulateErrorHeader) != "" {
		return fiber.NewError(http.StatusInternalServerError, "Internal Server Error")
	}
	if c.Context().QueryArgs().Has("cursor") {
		return h.Activity(c)
	}

	ctx := c.UserContext()
	acc, err := h.store.Account(ctx)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	recent, err := ledger.Recent(ctx, h.store)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(dto.MerchantResponse{
		AvailableBalance: acc.AvailableBalance,
		PendingBalance:   acc.PendingBalance,
		Currency:         acc.Currency,
		Activity:         recent,
	})
}

// Activity returns one page of the activity feed.
func (h *Handler) Activity(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", ledger.DefaultPageLimit)
	page, err := h.store.Activity(c.UserContext(), c.Query("cursor"), limit)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(page)
}
