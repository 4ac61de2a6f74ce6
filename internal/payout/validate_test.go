package payout

import (
	"fmt"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

const validIBAN = "FR12123451234512345678901234567890"

func TestValidateAcceptsWellFormedPayout(t *testing.T) {
	req, errs := Validate(FormInput{Amount: "400", Currency: dto.CurrencyGBP, IBAN: validIBAN}, PlatformMobile)
	if !errs.Empty() {
		t.Fatalf("unexpected field errors: %+v", errs)
	}
	if req.Amount != 40_000 {
		t.Fatalf("expected 40000 minor units, got %d", req.Amount)
	}
	if req.IBAN != validIBAN || req.Currency != dto.CurrencyGBP {
		t.Fatalf("unexpected request: %+v", req)
	}
	if got := FormatAmount(req.Amount, req.Currency); got != "£400.00" {
		t.Fatalf("expected £400.00, got %s", got)
	}
}

func TestValidateAmountMessages(t *testing.T) {
	cases := []struct {
		amount string
		want   string
	}{
		{"", MsgAmountRequired},
		{"abc", MsgAmountInvalid},
		{"1,000", MsgAmountInvalid},
		{"0", MsgAmountPositive},
		{"-5", MsgAmountPositive},
		{"1.234", MsgAmountPrecision},
		{"0.001", MsgAmountPrecision},
		{"1.5", ""},
		{"0.01", ""},
		{" 12.30 ", ""},
		{"1e2", ""},
		{"1e100000000", MsgAmountInvalid},
		{"1e-100000000", MsgAmountInvalid},
		{"5E21", MsgAmountInvalid},
	}
	for _, tc := range cases {
		_, errs := Validate(FormInput{Amount: tc.amount, Currency: dto.CurrencyEUR, IBAN: validIBAN}, PlatformMobile)
		if errs.Amount != tc.want {
			t.Fatalf("amount %q: expected %q, got %q", tc.amount, tc.want, errs.Amount)
		}
	}
}

func TestValidateHugeExponentReturnsQuickly(t *testing.T) {
	done := make(chan FieldErrors, 1)
	go func() {
		_, errs := Validate(FormInput{Amount: "1e2147483647", Currency: dto.CurrencyGBP, IBAN: validIBAN}, PlatformMobile)
		done <- errs
	}()
	select {
	case errs := <-done:
		if errs.Amount != MsgAmountInvalid {
			t.Fatalf("expected %q, got %q", MsgAmountInvalid, errs.Amount)
		}
	case <-time.After(time.Second):
		t.Fatalf("validation did not return within 1s")
	}
	if got := ToMinorUnits("9e999999999"); got != 0 {
		t.Fatalf("expected 0 minor units, got %d", got)
	}
}

func TestValidateMinorUnitsMatchRoundedValue(t *testing.T) {
	for cents := int64(1); cents < 5_000; cents += 7 {
		raw := fmt.Sprintf("%d.%02d", cents/100, cents%100)
		req, errs := Validate(FormInput{Amount: raw, Currency: dto.CurrencyGBP, IBAN: validIBAN}, PlatformMobile)
		if !errs.Empty() {
			t.Fatalf("%s: unexpected errors %+v", raw, errs)
		}
		value, _ := strconv.ParseFloat(raw, 64)
		if req.Amount != int64(math.Round(value*100)) {
			t.Fatalf("%s: expected %d, got %d", raw, int64(math.Round(value*100)), req.Amount)
		}
		if math.Abs(float64(req.Amount)/100-value) > 0.005 {
			t.Fatalf("%s: %d minor units does not round back", raw, req.Amount)
		}
	}
}

func TestValidateIBANRules(t *testing.T) {
	cases := []struct {
		name string
		iban string
		want string
	}{
		{"empty", "", MsgIBANRequired},
		{"internal space", "FR12 1234 5123 4512 3456 7890", MsgIBANSpaces},
		{"internal tab", "FR121234512345\t12345678", MsgIBANSpaces},
		{"outer whitespace trimmed", "  " + validIBAN + "  ", ""},
		{"lowercase accepted", "fr1212345123451234", ""},
		{"too short", "FR121234512345", MsgIBANShape},
		{"too long", "FR12" + "1234567890123456789012345678901", MsgIBANShape},
		{"bad country", "1212123451234512345", MsgIBANShape},
		{"bad check digits", "FRAB123451234512345", MsgIBANShape},
		{"symbols", "FR1212345-234512345", MsgIBANShape},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, errs := Validate(FormInput{Amount: "10", Currency: dto.CurrencyGBP, IBAN: tc.iban}, PlatformMobile)
			if errs.IBAN != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, errs.IBAN)
			}
		})
	}
}

func TestValidateIBANUppercases(t *testing.T) {
	req, errs := Validate(FormInput{Amount: "10", Currency: dto.CurrencyGBP, IBAN: " fr1212345123451234 "}, PlatformMobile)
	if !errs.Empty() {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if req.IBAN != "FR1212345123451234" {
		t.Fatalf("expected canonical IBAN, got %s", req.IBAN)
	}
}

func TestValidateRejectsUnknownCurrency(t *testing.T) {
	_, errs := Validate(FormInput{Amount: "10", Currency: "USD", IBAN: validIBAN}, PlatformMobile)
	if errs.Currency != MsgCurrencyInvalid {
		t.Fatalf("expected currency error, got %+v", errs)
	}
}

func TestValidateWebCeiling(t *testing.T) {
	in := FormInput{Amount: "1500", Currency: dto.CurrencyGBP, IBAN: validIBAN}

	_, errs := Validate(in, PlatformWeb)
	if errs.Amount != WebLimitMessage {
		t.Fatalf("expected web limit message, got %q", errs.Amount)
	}

	if _, errs := Validate(in, PlatformMobile); !errs.Empty() {
		t.Fatalf("mobile should accept 1500, got %+v", errs)
	}

	if _, errs := Validate(FormInput{Amount: "1000", Currency: dto.CurrencyGBP, IBAN: validIBAN}, PlatformWeb); !errs.Empty() {
		t.Fatalf("web should accept exactly 1000, got %+v", errs)
	}
}

func TestValidateWebCeilingAppliesAfterStructuralChecks(t *testing.T) {
	_, errs := Validate(FormInput{Amount: "1500", Currency: dto.CurrencyGBP, IBAN: "bad"}, PlatformWeb)
	if errs.Amount != "" || errs.IBAN != MsgIBANShape {
		t.Fatalf("expected only the structural IBAN error, got %+v", errs)
	}
}

func TestFieldErrorsErr(t *testing.T) {
	if (FieldErrors{}).Err() != nil {
		t.Fatalf("expected nil for empty field errors")
	}
	err := FieldErrors{IBAN: MsgIBANShape}.Err()
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation kind, got %v", err)
	}
}
