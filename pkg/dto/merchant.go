package dto

import (
	"strings"
	"time"
)

// Currency is an ISO 4217 code accepted for payouts.
type Currency string

const (
	CurrencyGBP Currency = "GBP"
	CurrencyEUR Currency = "EUR"
)

// Currencies lists the supported payout currencies in display order.
var Currencies = []Currency{CurrencyGBP, CurrencyEUR}

// DefaultCurrency preselects the payout form.
const DefaultCurrency = CurrencyGBP

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyGBP, CurrencyEUR:
		return true
	default:
		return false
	}
}

// Symbol returns the display symbol for c.
func (c Currency) Symbol() string {
	switch c {
	case CurrencyGBP:
		return "£"
	case CurrencyEUR:
		return "€"
	default:
		return string(c) + " "
	}
}

// ActivityType classifies a ledger entry.
type ActivityType string

const (
	ActivityPayout  ActivityType = "payout"
	ActivityDeposit ActivityType = "deposit"
	ActivityRefund  ActivityType = "refund"
	ActivityFee     ActivityType = "fee"
)

// ActivityStatus is the settlement state of a ledger entry.
type ActivityStatus string

const (
	ActivityCompleted  ActivityStatus = "completed"
	ActivityPending    ActivityStatus = "pending"
	ActivityProcessing ActivityStatus = "processing"
	ActivityFailed     ActivityStatus = "failed"
)

// ActivityItem is one ledger entry. Amount is signed minor units; negative
// amounts are outflows.
type ActivityItem struct {
	ID          string         `json:"id"`
	Type        ActivityType   `json:"type"`
	Amount      int64          `json:"amount"`
	Currency    Currency       `json:"currency"`
	Date        time.Time      `json:"date"`
	Description string         `json:"description"`
	Status      ActivityStatus `json:"status"`
}

// MerchantResponse is the body of GET /api/merchant.
type MerchantResponse struct {
	AvailableBalance int64          `json:"available_balance"`
	PendingBalance   int64          `json:"pending_balance"`
	Currency         Currency       `json:"currency"`
	Activity         []ActivityItem `json:"activity"`
}

// ActivityPage is the body of GET /api/merchant/activity.
type ActivityPage struct {
	Items      []ActivityItem `json:"items"`
	NextCursor *string        `json:"next_cursor"`
	HasMore    bool           `json:"has_more"`
}

// ParseCurrency accepts a currency code in any case.
func ParseCurrency(s string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	return c, c.Valid()
}
