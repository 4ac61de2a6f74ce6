package payout

import (
	"github.com/shopspring/decimal"

	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

// Platform identifies the client variant submitting the payout.
type Platform string

const (
	PlatformMobile Platform = "mobile"
	PlatformWeb    Platform = "web"
)

// ParsePlatform maps a configuration value to a Platform, defaulting to mobile.
func ParsePlatform(s string) Platform {
	if Platform(s) == PlatformWeb {
		return PlatformWeb
	}
	return PlatformMobile
}

// StepUpThreshold is the amount in minor units above which a payout needs
// biometric confirmation. Web clients cannot do that and are capped instead.
const StepUpThreshold int64 = 100_000

var hundredth = decimal.New(1, -2)

// FormInput is the raw, unvalidated payout form.
type FormInput struct {
	Amount   string
	Currency dto.Currency
	IBAN     string
}

// ValidatedRequest is a payout that passed every structural and policy check.
// Only Validate builds one.
type ValidatedRequest struct {
	Amount   int64
	Currency dto.Currency
	IBAN     string
}

// FieldErrors holds the first message per invalid field.
type FieldErrors struct {
	Amount   string
	Currency string
	IBAN     string
}

// Empty reports whether no field failed.
func (f FieldErrors) Empty() bool {
	return f.Amount == "" && f.Currency == "" && f.IBAN == ""
}

// Err returns the first field failure as a validation *Error, or nil.
func (f FieldErrors) Err() error {
	switch {
	case f.Amount != "":
		return ValidationError("amount", f.Amount)
	case f.Currency != "":
		return ValidationError("currency", f.Currency)
	case f.IBAN != "":
		return ValidationError("iban", f.IBAN)
	default:
		return nil
	}
}

// Validate checks raw form input. Structural rules run first; the web amount
// ceiling is applied only once the form is otherwise valid.
func Validate(in FormInput, platform Platform) (ValidatedRequest, FieldErrors) {
	var errs FieldErrors

	amount, msg := validateAmount(in.Amount)
	errs.Amount = msg

	if !in.Currency.Valid() {
		errs.Currency = MsgCurrencyInvalid
	}

	iban, msg := ValidateIBAN(in.IBAN)
	errs.IBAN = msg

	if !errs.Empty() {
		return ValidatedRequest{}, errs
	}

	if platform == PlatformWeb && amount > StepUpThreshold {
		return ValidatedRequest{}, FieldErrors{Amount: WebLimitMessage}
	}

	return ValidatedRequest{Amount: amount, Currency: in.Currency, IBAN: iban}, FieldErrors{}
}

func validateAmount(raw string) (int64, string) {
	if raw == "" {
		return 0, MsgAmountRequired
	}
	d, ok := parseAmount(raw)
	if !ok {
		return 0, MsgAmountInvalid
	}
	if !d.IsPositive() {
		return 0, MsgAmountPositive
	}
	if !d.Mod(hundredth).IsZero() {
		return 0, MsgAmountPrecision
	}
	return d.Shift(2).IntPart(), ""
}
