package payout

import (
	"strconv"
	"strings"

	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

// FormatAmount renders minor units as "£5,000.00". Negative values keep the
// sign after the symbol ("£-500.00").
func FormatAmount(minor int64, currency dto.Currency) string {
	sign := ""
	u := uint64(minor)
	if minor < 0 {
		sign = "-"
		u = uint64(-(minor + 1)) + 1
	}
	whole := groupThousands(strconv.FormatUint(u/100, 10))
	frac := u % 100
	var b strings.Builder
	b.WriteString(currency.Symbol())
	b.WriteString(sign)
	b.WriteString(whole)
	b.WriteByte('.')
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatUint(frac, 10))
	return b.String()
}

// FormatMajor formats a raw major-unit amount, as typed into the form.
func FormatMajor(amount string, currency dto.Currency) string {
	return FormatAmount(ToMinorUnits(amount), currency)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Capitalize upper-cases the first letter of s ("deposit" -> "Deposit").
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseCurrency reads a currency code typed by the merchant.
func ParseCurrency(s string) (dto.Currency, bool) {
	return dto.ParseCurrency(s)
}
