package payouts

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/merchant_payouts/internal/ledger"
	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

// Handler exposes payout endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payout handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create sends a new payout.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req dto.CreatePayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Invalid request body")
	}

	p, err := h.service.Create(c.UserContext(), CreateInput{
		Amount:   req.Amount,
		Currency: req.Currency,
		IBAN:     req.IBAN,
		DeviceID: req.DeviceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ErrRailInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, "Insufficient funds")
		case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidCurrency), errors.Is(err, ErrInvalidIBAN):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrServiceUnavailable):
			return fiber.NewError(http.StatusServiceUnavailable, ErrServiceUnavailable.Error())
		case errors.Is(err, ledger.ErrDuplicatePayout):
			return fiber.NewError(http.StatusConflict, "Duplicate payout")
		default:
			return fiber.NewError(http.StatusInternalServerError, ErrProcessorFailure.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(p)
}

// Get returns a payout by id.
func (h *Handler) Get(c *fiber.Ctx) error {
	p, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ledger.ErrPayoutNotFound) {
			return fiber.NewError(http.StatusNotFound, "Payout not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(p)
}
