package ledger

import (
	"context"
	"errors"

	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

var (
	// ErrInsufficientFunds occurs when the merchant's available balance cannot
	// cover a payout.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrPayoutNotFound is returned when no payout matches the identifier.
	ErrPayoutNotFound = errors.New("payout not found")

	// ErrDuplicatePayout indicates a payout with the same identifier was
	// already recorded.
	ErrDuplicatePayout = errors.New("duplicate payout")
)

const (
	// DefaultPageLimit is used when the client omits or garbles limit.
	DefaultPageLimit = 15
	// MaxPageLimit bounds a single activity page.
	MaxPageLimit = 100
	// RecentActivityCount is the size of the legacy activity list embedded in
	// the merchant response.
	RecentActivityCount = 15
)

// Account is the merchant's balance snapshot in minor units.
type Account struct {
	AvailableBalance int64
	PendingBalance   int64
	Currency         dto.Currency
}

// Store defines the contract implemented by merchant data backends (e.g.
// Postgres).
type Store interface {
	Account(ctx context.Context) (Account, error)
	Activity(ctx context.Context, cursor string, limit int) (dto.ActivityPage, error)
	RecordPayout(ctx context.Context, payout dto.Payout, deviceID string) error
	Payout(ctx context.Context, id string) (dto.Payout, error)
	UpdatePayoutStatus(ctx context.Context, id string, status dto.PayoutStatus) error
}

// Recent returns the newest activity items, as embedded in the legacy
// merchant response.
func Recent(ctx context.Context, s Store) ([]dto.ActivityItem, error) {
	page, err := s.Activity(ctx, "", RecentActivityCount)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// NormalizeLimit clamps a requested page size.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageLimit
	case limit > MaxPageLimit:
		return MaxPageLimit
	default:
		return limit
	}
}
