package payout

import (
	"regexp"
	"strings"
	"unicode"
)

// ibanShape follows ISO 13616: country code, check digits, 1-30 alphanumeric
// BBAN characters. The mod-97 checksum is not verified.
var ibanShape = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{1,30}$`)

const (
	minIBANLength = 15
	maxIBANLength = 34
)

// NormalizeIBAN trims, strips all whitespace and uppercases s.
func NormalizeIBAN(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// ValidIBANFormat reports whether s, once normalized, has the shape of an IBAN.
func ValidIBANFormat(s string) bool {
	n := NormalizeIBAN(s)
	if len(n) < minIBANLength || len(n) > maxIBANLength {
		return false
	}
	return ibanShape.MatchString(n)
}

// ValidateIBAN applies the strict form rules: outer whitespace is trimmed but
// internal whitespace is rejected rather than normalized away. It returns the
// canonical IBAN or the first failing message.
func ValidateIBAN(raw string) (string, string) {
	if raw == "" {
		return "", MsgIBANRequired
	}
	trimmed := strings.TrimSpace(raw)
	if strings.IndexFunc(trimmed, unicode.IsSpace) >= 0 {
		return "", MsgIBANSpaces
	}
	iban := strings.ToUpper(trimmed)
	if len(iban) < minIBANLength || len(iban) > maxIBANLength || !ibanShape.MatchString(iban) {
		return "", MsgIBANShape
	}
	return iban, ""
}

// MaskIBAN keeps the first and last four characters of the normalized IBAN.
func MaskIBAN(s string) string {
	n := NormalizeIBAN(s)
	if len(n) <= 8 {
		return n
	}
	return n[:4] + strings.Repeat("*", len(n)-8) + n[len(n)-4:]
}

// LastFour returns the trailing four characters of s, or s when shorter.
func LastFour(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}
