package ledger

import (
	"context"
	"sync"

	"github.com/congo-pay/merchant_payouts/internal/payout"
	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

type inMemoryStore struct {
	mu       sync.RWMutex
	account  Account
	activity []dto.ActivityItem
	payouts  map[string]dto.Payout
}

// NewInMemory creates a concurrency-safe in-memory store useful for
// development and unit tests.
func NewInMemory(account Account) Store {
	return &inMemoryStore{
		account: account,
		payouts: make(map[string]dto.Payout),
	}
}

func (s *inMemoryStore) Account(_ context.Context) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account, nil
}

func (s *inMemoryStore) Activity(_ context.Context, cursor string, limit int) (dto.ActivityPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Paginate(s.activity, cursor, limit), nil
}

func (s *inMemoryStore) RecordPayout(_ context.Context, p dto.Payout, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payouts[p.ID]; exists {
		return ErrDuplicatePayout
	}
	if p.Status != dto.PayoutFailed {
		if s.account.AvailableBalance < p.Amount {
			return ErrInsufficientFunds
		}
		s.account.AvailableBalance -= p.Amount
	}

	s.payouts[p.ID] = p
	s.activity = append(s.activity, payout.ActivityFromPayout(p))
	sortFeed(s.activity)
	return nil
}

func (s *inMemoryStore) Payout(_ context.Context, id string) (dto.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payouts[id]
	if !ok {
		return dto.Payout{}, ErrPayoutNotFound
	}
	return p, nil
}

func (s *inMemoryStore) UpdatePayoutStatus(_ context.Context, id string, status dto.PayoutStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payouts[id]
	if !ok {
		return ErrPayoutNotFound
	}
	p.Status = status
	s.payouts[id] = p

	updated := payout.ActivityFromPayout(p)
	for i := range s.activity {
		if s.activity[i].ID == id {
			s.activity[i].Status = updated.Status
			break
		}
	}
	return nil
}
