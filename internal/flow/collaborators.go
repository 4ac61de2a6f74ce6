package flow

import (
	"context"

	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

// PayoutCreator submits payouts; merchantapi.Client satisfies it.
type PayoutCreator interface {
	CreatePayout(ctx context.Context, req dto.CreatePayoutRequest, idempotencyKey string) (dto.Payout, error)
}

// BalanceCache is the part of cache.Cache the flow reads and updates.
type BalanceCache interface {
	PeekMerchant() (dto.MerchantResponse, bool)
	InvalidateMerchant()
	PatchActivityFirstPage(item dto.ActivityItem)
}

// RateConverter converts an amount in minor units between currencies.
type RateConverter interface {
	Convert(amount int64, from, to dto.Currency) (int64, error)
}

// ParityRates compares amounts across currencies one to one.
type ParityRates struct{}

// Convert returns amount unchanged.
func (ParityRates) Convert(amount int64, _, _ dto.Currency) (int64, error) {
	return amount, nil
}

// Subscription is a listener registration that can be released.
type Subscription interface {
	Remove()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

// Remove calls f.
func (f SubscriptionFunc) Remove() { f() }

// ScreenshotSource notifies when the OS reports a screenshot.
type ScreenshotSource interface {
	OnScreenshot(fn func()) Subscription
}
