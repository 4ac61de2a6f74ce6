package payout

// User-facing messages. Field messages are shown inline on the form; the
// rest end up as the failed-state message of the payout flow.
const (
	MsgAmountRequired  = "Amount is required"
	MsgAmountInvalid   = "Invalid number"
	MsgAmountPositive  = "Amount must be positive"
	MsgAmountPrecision = "Amount can only have up to 2 decimal places"
	MsgCurrencyInvalid = "Currency must be GBP or EUR"
	MsgIBANRequired    = "IBAN is required"
	MsgIBANSpaces      = "IBAN must not contain spaces"
	MsgIBANShape       = "IBAN must be 15-34 characters, starting with 2 letters, 2 digits, then alphanumeric"

	InsufficientFundsMessage  = "Insufficient funds."
	ServiceUnavailableMessage = "Service temporarily unavailable. Please try again later."
	NetworkErrorMessage       = "A network error occurred. Please check your connection and try again."
	GenericErrorMessage       = "Something went wrong. Please try again."

	WebLimitMessage           = "Payouts over £1,000 require biometric authentication and can only be sent from the mobile app."
	BiometricCancelledMessage = "Biometric authentication was cancelled."
	BiometricSetupMessage     = "Biometric authentication is not set up on this device. Enable Face ID, Touch ID or fingerprint unlock in your device settings to send payouts over £1,000."
)
