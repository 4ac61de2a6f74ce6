package payouts

import (
	"context"
	"errors"

	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

var (
	// ErrProcessorFailure is an unexpected failure at the payout rail.
	ErrProcessorFailure = errors.New("Internal Server Error")
	// ErrServiceUnavailable means the payout rail is temporarily down.
	ErrServiceUnavailable = errors.New("Service temporarily unavailable")
	// ErrRailInsufficientFunds is returned when the rail declines for lack of
	// funds independently of the local balance.
	ErrRailInsufficientFunds = errors.New("Insufficient funds")
)

// Submission is what the service hands to the payout rail.
type Submission struct {
	Amount   int64
	Currency dto.Currency
	IBAN     string
}

// Processor represents a connector to the bank payout rail.
type Processor interface {
	Submit(ctx context.Context, s Submission) (dto.PayoutStatus, error)
}

// Amounts that make SimulatedProcessor fail, in minor units.
const (
	SimulatedInternalErrorAmount     int64 = 77777
	SimulatedUnavailableAmount       int64 = 99999
	SimulatedInsufficientFundsAmount int64 = 88888
)

// SimulatedProcessor stands in for the payout rail. Specific amounts trigger
// the corresponding failure and amounts ending in 99 minor units settle as
// failed.
type SimulatedProcessor struct {
	// Deferred leaves accepted payouts pending so that lookups walk them
	// through processing to their final status.
	Deferred bool
}

// Submit decides the outcome of a payout from its amount.
func (p SimulatedProcessor) Submit(_ context.Context, s Submission) (dto.PayoutStatus, error) {
	switch s.Amount {
	case SimulatedInternalErrorAmount:
		return "", ErrProcessorFailure
	case SimulatedUnavailableAmount:
		return "", ErrServiceUnavailable
	case SimulatedInsufficientFundsAmount:
		return "", ErrRailInsufficientFunds
	}
	if p.Deferred {
		return dto.PayoutPending, nil
	}
	return finalStatus(s.Amount), nil
}

func finalStatus(amount int64) dto.PayoutStatus {
	if amount%100 == 99 {
		return dto.PayoutFailed
	}
	return dto.PayoutCompleted
}
