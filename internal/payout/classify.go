package payout

import (
	"strings"
)

var networkPatterns = []string{
	"failed to fetch",
	"network request failed",
	"network error",
	"load failed",
	"connection",
}

// Classify maps a submission failure to the message shown to the merchant.
// Matching is ordered and case-insensitive; unknown errors keep their own
// text.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "insufficient funds"):
		return InsufficientFundsMessage
	case strings.Contains(msg, "service temporarily unavailable"):
		return ServiceUnavailableMessage
	case IsKind(err, KindNetwork) || containsAny(msg, networkPatterns):
		return NetworkErrorMessage
	}

	if text := err.Error(); text != "" {
		return text
	}
	return GenericErrorMessage
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
