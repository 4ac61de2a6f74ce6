package payout

import (
	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

// ActivityFromPayout builds the ledger entry shown for a payout: an outflow
// described by the last four IBAN characters.
func ActivityFromPayout(p dto.Payout) dto.ActivityItem {
	status := dto.ActivityPending
	switch p.Status {
	case dto.PayoutCompleted:
		status = dto.ActivityCompleted
	case dto.PayoutFailed:
		status = dto.ActivityFailed
	}
	return dto.ActivityItem{
		ID:          p.ID,
		Type:        dto.ActivityPayout,
		Amount:      -p.Amount,
		Currency:    p.Currency,
		Date:        p.CreatedAt,
		Description: "Payout to Bank Account ****" + LastFour(p.IBAN),
		Status:      status,
	}
}
