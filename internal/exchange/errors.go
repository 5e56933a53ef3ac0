package exchange

// ExchangeError represents standardized errors from exchanges
type ExchangeError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Details     string `json:"details,omitempty"`
	IsRetryable bool   `json:"is_retryable"`
}

func (e *ExchangeError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// WithDetails returns a copy carrying details
func (e *ExchangeError) WithDetails(details string) *ExchangeError {
	cp := *e
	cp.Details = details
	return &cp
}

// Is matches on the error code so copies with details still compare equal
func (e *ExchangeError) Is(target error) bool {
	t, ok := target.(*ExchangeError)
	return ok && t.Code == e.Code
}

// Common error types
var (
	ErrInsufficientBalance = &ExchangeError{
		Code:        "INSUFFICIENT_BALANCE",
		Message:     "Insufficient balance for trade",
		IsRetryable: false,
	}

	ErrInvalidSymbol = &ExchangeError{
		Code:        "INVALID_SYMBOL",
		Message:     "Invalid trading symbol",
		IsRetryable: false,
	}

	ErrOrderSizeTooSmall = &ExchangeError{
		Code:        "ORDER_SIZE_TOO_SMALL",
		Message:     "Order size below minimum requirements",
		IsRetryable: false,
	}

	ErrRateLimitExceeded = &ExchangeError{
		Code:        "RATE_LIMIT_EXCEEDED",
		Message:     "API rate limit exceeded",
		IsRetryable: true,
	}

	ErrConnectionFailed = &ExchangeError{
		Code:        "CONNECTION_FAILED",
		Message:     "Failed to connect to exchange",
		IsRetryable: true,
	}

	ErrAuthenticationFailed = &ExchangeError{
		Code:        "AUTHENTICATION_FAILED",
		Message:     "API authentication failed",
		IsRetryable: false,
	}

	ErrMissingCredentials = &ExchangeError{
		Code:        "MISSING_CREDENTIALS",
		Message:     "API key and secret are required",
		IsRetryable: false,
	}

	ErrNoPosition = &ExchangeError{
		Code:        "NO_POSITION",
		Message:     "No position to sell",
		IsRetryable: false,
	}
)
