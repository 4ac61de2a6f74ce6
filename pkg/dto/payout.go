package dto

import "time"

// PayoutStatus is the lifecycle state of a payout.
type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
)

// CreatePayoutRequest is the body of POST /api/payouts. DeviceID is dropped
// from the JSON entirely when empty.
type CreatePayoutRequest struct {
	Amount   int64    `json:"amount"`
	Currency Currency `json:"currency"`
	IBAN     string   `json:"iban"`
	DeviceID string   `json:"device_id,omitempty"`
}

// Payout is the API representation of a created payout.
type Payout struct {
	ID        string       `json:"id"`
	Status    PayoutStatus `json:"status"`
	Amount    int64        `json:"amount"`
	Currency  Currency     `json:"currency"`
	IBAN      string       `json:"iban"`
	CreatedAt time.Time    `json:"created_at"`
}

// ErrorResponse is the JSON error body returned by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}
