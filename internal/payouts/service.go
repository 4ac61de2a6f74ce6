package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/merchant_payouts/internal/ledger"
	"github.com/congo-pay/merchant_payouts/internal/metrics"
	"github.com/congo-pay/merchant_payouts/internal/notification"
	"github.com/congo-pay/merchant_payouts/internal/payout"
	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

const (
	processingAfter = 2 * time.Second
	settledAfter    = 5 * time.Second
)

var (
	// ErrInvalidAmount is returned for non-positive amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidCurrency is returned for unsupported currencies.
	ErrInvalidCurrency = errors.New("unsupported currency")
	// ErrInvalidIBAN is returned when the IBAN fails the format check.
	ErrInvalidIBAN = errors.New("invalid iban")
)

// Service records payouts against the merchant ledger after the payout rail
// accepts them.
type Service struct {
	store     ledger.Store
	processor Processor
	notifier  notification.Notifier
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for creation timestamps and
// status progression.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs a payout service. A nil processor defaults to the
// simulated rail.
func NewService(store ledger.Store, processor Processor, notifier notification.Notifier, opts ...Option) *Service {
	if processor == nil {
		processor = SimulatedProcessor{}
	}
	s := &Service{store: store, processor: processor, notifier: notifier, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput captures the data needed to send a payout.
type CreateInput struct {
	Amount   int64
	Currency dto.Currency
	IBAN     string
	DeviceID string
}

// Create submits a payout to the rail and records it.
func (s *Service) Create(ctx context.Context, input CreateInput) (dto.Payout, error) {
	if input.Amount <= 0 {
		metrics.PayoutRejected("invalid_amount")
		return dto.Payout{}, ErrInvalidAmount
	}
	if !input.Currency.Valid() {
		metrics.PayoutRejected("invalid_currency")
		return dto.Payout{}, ErrInvalidCurrency
	}
	iban := payout.NormalizeIBAN(input.IBAN)
	if !payout.ValidIBANFormat(iban) {
		metrics.PayoutRejected("invalid_iban")
		return dto.Payout{}, ErrInvalidIBAN
	}

	status, err := s.processor.Submit(ctx, Submission{Amount: input.Amount, Currency: input.Currency, IBAN: iban})
	if err != nil {
		metrics.PayoutRejected(rejectionReason(err))
		return dto.Payout{}, err
	}

	p := dto.Payout{
		ID:        "payout_" + uuid.NewString(),
		Status:    status,
		Amount:    input.Amount,
		Currency:  input.Currency,
		IBAN:      iban,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.RecordPayout(ctx, p, input.DeviceID); err != nil {
		metrics.PayoutRejected(rejectionReason(err))
		return dto.Payout{}, err
	}
	metrics.PayoutCreated(string(p.Status), string(p.Currency))

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindPayoutCreated,
			Destination: payout.MaskIBAN(iban),
			Body:        fmt.Sprintf("Payout %s of %s is %s", p.ID, payout.FormatAmount(p.Amount, p.Currency), p.Status),
		})
	}
	return p, nil
}

// Get returns a payout, advancing pending payouts to processing after two
// seconds and processing payouts to their final status after five.
func (s *Service) Get(ctx context.Context, id string) (dto.Payout, error) {
	p, err := s.store.Payout(ctx, id)
	if err != nil {
		return dto.Payout{}, err
	}

	elapsed := s.now().Sub(p.CreatedAt)
	next := p.Status
	switch {
	case p.Status == dto.PayoutPending && elapsed > processingAfter:
		next = dto.PayoutProcessing
	case p.Status == dto.PayoutProcessing && elapsed > settledAfter:
		next = finalStatus(p.Amount)
	}
	if next == p.Status {
		return p, nil
	}

	if err := s.store.UpdatePayoutStatus(ctx, id, next); err != nil {
		return dto.Payout{}, err
	}
	p.Status = next

	if s.notifier != nil && (next == dto.PayoutCompleted || next == dto.PayoutFailed) {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindPayoutSettled,
			Destination: payout.MaskIBAN(p.IBAN),
			Body:        fmt.Sprintf("Payout %s is %s", p.ID, p.Status),
		})
	}
	return p, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ErrRailInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrServiceUnavailable):
		return "unavailable"
	case errors.Is(err, ErrProcessorFailure):
		return "processor_failure"
	default:
		return "error"
	}
}
