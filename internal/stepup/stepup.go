package stepup

import (
	"context"
	"errors"

	"github.com/congo-pay/merchant_payouts/internal/payout"
)

// ErrNotAvailable is returned by an Authenticator when the device has no
// enrolled biometrics or no biometric hardware.
var ErrNotAvailable = errors.New("biometric authentication not available")

// Authenticator prompts the user for a biometric check. It returns false
// when the user dismisses the prompt.
type Authenticator interface {
	Authenticate(ctx context.Context, reason string) (bool, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, reason string) (bool, error)

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, reason string) (bool, error) {
	return f(ctx, reason)
}

// Gate decides when a payout needs step-up authentication and runs it.
type Gate struct {
	auth      Authenticator
	platform  payout.Platform
	threshold int64
}

// NewGate builds a gate. A nil authenticator means the platform cannot
// prompt, so every payout above the threshold is refused.
func NewGate(auth Authenticator, platform payout.Platform) *Gate {
	return &Gate{auth: auth, platform: platform, threshold: payout.StepUpThreshold}
}

// RequiresStepUp reports whether amount, in minor units, is above the
// threshold.
func (g *Gate) RequiresStepUp(amount int64) bool {
	return amount > g.threshold
}

// Authorize runs the biometric prompt when amount requires it. Failures are
// *payout.Error values of kind KindBiometricCancelled or
// KindBiometricUnavailable; any other authenticator error is returned as is.
func (g *Gate) Authorize(ctx context.Context, amount int64) error {
	if !g.RequiresStepUp(amount) {
		return nil
	}
	if g.auth == nil || g.platform == payout.PlatformWeb {
		return payout.BiometricUnavailable(ErrNotAvailable)
	}

	ok, err := g.auth.Authenticate(ctx, "Confirm payout of "+payout.ToMajorUnits(amount))
	if err != nil {
		if errors.Is(err, ErrNotAvailable) {
			return payout.BiometricUnavailable(err)
		}
		return err
	}
	if !ok {
		return payout.BiometricCancelled()
	}
	return nil
}

// Message returns the text shown for a gate failure, or "" when err is not
// one of the biometric kinds.
func (g *Gate) Message(err error) string {
	switch {
	case payout.IsKind(err, payout.KindBiometricCancelled):
		return payout.BiometricCancelledMessage
	case payout.IsKind(err, payout.KindBiometricUnavailable):
		if g.platform == payout.PlatformWeb {
			return payout.WebLimitMessage
		}
		return payout.BiometricSetupMessage
	default:
		return ""
	}
}
