package domain

import "errors"

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateAccount indicates that the account number is already taken.
	ErrDuplicateAccount = errors.New("account number already exists")
	// ErrAllocationExhausted indicates that no free account number was found within the attempt bound.
	ErrAllocationExhausted = errors.New("account number allocation exhausted")
	// ErrInvalidOwnerKind indicates an unsupported owner kind.
	ErrInvalidOwnerKind = errors.New("invalid owner kind")

	// ErrUnauthorized indicates that the principal may not act on the account.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInsufficientBalance indicates that the account does not have sufficient balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount indicates a non positive or malformed amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrBelowMinimumFunding indicates a funding amount under the minimum.
	ErrBelowMinimumFunding = errors.New("amount is below the minimum funding amount")
	// ErrUnsupportedCurrency indicates a currency the system does not handle.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	// ErrCurrencyMismatch indicates that the accounts or the request use different currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrSameAccount indicates a transfer from an account to itself.
	ErrSameAccount = errors.New("payer and payee are the same account")
	// ErrLockTimeout indicates that an account lock could not be acquired in time.
	ErrLockTimeout = errors.New("account is busy, try again")

	// ErrTransactionNotFound indicates that the transaction is not found.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrDuplicateTransaction indicates a reused transaction id.
	ErrDuplicateTransaction = errors.New("transaction already exists")
	// ErrInvalidPage indicates out of range page parameters.
	ErrInvalidPage = errors.New("invalid page")
	// ErrInvalidDateRange indicates that the range start is after its end.
	ErrInvalidDateRange = errors.New("invalid date range")
)

// ErrorKind is the coarse classification of failures exposed to callers.
type ErrorKind string

// Error kinds.
const (
	KindNotFound             ErrorKind = "NOT_FOUND"
	KindUnauthorized         ErrorKind = "UNAUTHORIZED"
	KindInsufficientFunds    ErrorKind = "INSUFFICIENT_FUNDS"
	KindAllocationExhausted  ErrorKind = "ALLOCATION_EXHAUSTED"
	KindPayloadDecodeFailure ErrorKind = "PAYLOAD_DECODE_FAILURE"
	KindDuplicateAccount     ErrorKind = "DUPLICATE_ACCOUNT"
	KindInvalidRequest       ErrorKind = "INVALID_REQUEST"
	KindBusy                 ErrorKind = "BUSY"
	KindGenericFailure       ErrorKind = "GENERIC_FAILURE"
)

var (
	// ErrPayloadDecode indicates a payment payload that cannot be decrypted or parsed.
	ErrPayloadDecode = errors.New("invalid payment payload")
	// ErrPayloadDelimiter indicates a payload field containing the field delimiter.
	ErrPayloadDelimiter = errors.New("payment payload field contains delimiter")
)

// KindOf classifies err. Unknown errors are GENERIC_FAILURE.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrTransactionNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrInsufficientBalance):
		return KindInsufficientFunds
	case errors.Is(err, ErrAllocationExhausted):
		return KindAllocationExhausted
	case errors.Is(err, ErrPayloadDecode):
		return KindPayloadDecodeFailure
	case errors.Is(err, ErrDuplicateAccount):
		return KindDuplicateAccount
	case errors.Is(err, ErrLockTimeout):
		return KindBusy
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrBelowMinimumFunding),
		errors.Is(err, ErrUnsupportedCurrency),
		errors.Is(err, ErrCurrencyMismatch),
		errors.Is(err, ErrSameAccount),
		errors.Is(err, ErrPayloadDelimiter),
		errors.Is(err, ErrInvalidOwnerKind),
		errors.Is(err, ErrInvalidPage),
		errors.Is(err, ErrInvalidDateRange):
		return KindInvalidRequest
	}

	return KindGenericFailure
}
