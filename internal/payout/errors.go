package payout

import (
	"errors"
	"fmt"
)

// ErrInsufficientFunds is returned when the cached balance cannot cover a
// payout.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Kind tags the failure carried by *Error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindHTTP
	KindBiometricCancelled
	KindBiometricUnavailable
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindBiometricCancelled:
		return "biometric_cancelled"
	case KindBiometricUnavailable:
		return "biometric_unavailable"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is the tagged failure type of the payout workflow. Only the fields
// relevant to Kind are set.
type Error struct {
	Kind Kind

	// KindHTTP
	Status int
	Body   string

	// KindValidation
	Field  string
	Reason string

	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		return e.Body
	case KindNetwork:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "network error"
	case KindBiometricCancelled:
		return "biometric authentication cancelled"
	case KindBiometricUnavailable:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "biometrics not available"
	case KindValidation:
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "unknown error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// NetworkError wraps a transport failure.
func NetworkError(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

// HTTPError describes a non-2xx response. message is the server-provided
// error text, or a synthesized one when the body carried none.
func HTTPError(status int, message string) *Error {
	return &Error{Kind: KindHTTP, Status: status, Body: message}
}

// BiometricCancelled reports the user dismissed the biometric prompt.
func BiometricCancelled() *Error {
	return &Error{Kind: KindBiometricCancelled}
}

// BiometricUnavailable reports the device cannot run a biometric prompt.
func BiometricUnavailable(cause error) *Error {
	return &Error{Kind: KindBiometricUnavailable, Err: cause}
}

// ValidationError reports an invalid form field.
func ValidationError(field, reason string) *Error {
	return &Error{Kind: KindValidation, Field: field, Reason: reason}
}

// IsKind reports whether err carries a *Error of kind k.
func IsKind(err error, k Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == k
}
