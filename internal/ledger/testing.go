package ledger

import "github.com/congo-pay/merchant_payouts/pkg/dto"

// Seed replaces the activity feed of an in-memory store. Used by tests and
// the development fixtures.
func Seed(s Store, items []dto.ActivityItem) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.activity = append([]dto.ActivityItem(nil), items...)
		sortFeed(mem.activity)
	}
}
