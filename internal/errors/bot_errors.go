package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/multierr"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// Fatal at startup only
	ErrorCategoryFatal         ErrorCategory = "FATAL"
	ErrorCategoryCredentials   ErrorCategory = "CREDENTIALS"
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"

	// Recovered inside the trading loop
	ErrorCategoryComputation  ErrorCategory = "COMPUTATION"
	ErrorCategoryConnectivity ErrorCategory = "CONNECTIVITY"
	ErrorCategoryNetwork      ErrorCategory = "NETWORK"
	ErrorCategoryTimeout      ErrorCategory = "TIMEOUT"
	ErrorCategoryValidation   ErrorCategory = "VALIDATION"
	ErrorCategoryOrder        ErrorCategory = "ORDER"
	ErrorCategoryPosition     ErrorCategory = "POSITION"
	ErrorCategoryStrategy     ErrorCategory = "STRATEGY"

	// Control flow, not failures
	ErrorCategoryLimitBreach ErrorCategory = "LIMIT_BREACH"

	// Temporary errors
	ErrorCategoryTemporary ErrorCategory = "TEMPORARY"
	ErrorCategoryRateLimit ErrorCategory = "RATE_LIMIT"
)

// BotError represents a categorized error with context
type BotError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface
func (e *BotError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s:%s] %s", e.Category, e.Component, e.Operation)
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if sym, ok := e.Context["symbol"]; ok {
		fmt.Fprintf(&b, " (symbol=%v)", sym)
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, ": %v", e.Underlying)
	}
	return b.String()
}

// Unwrap returns the underlying error for error unwrapping
func (e *BotError) Unwrap() error {
	return e.Underlying
}

// IsFatal returns whether this error should abort startup
func (e *BotError) IsFatal() bool {
	return e.Category == ErrorCategoryFatal ||
		e.Category == ErrorCategoryCredentials ||
		e.Category == ErrorCategoryConfiguration
}

// NewBotError creates a new categorized bot error
func NewBotError(category ErrorCategory, component, operation, message string) *BotError {
	return &BotError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// WrapError wraps an existing error with bot error context
func WrapError(err error, category ErrorCategory, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	return &BotError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

// WithContext adds context information to the error
func (e *BotError) WithContext(key string, value interface{}) *BotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSymbol is shorthand for WithContext("symbol", symbol)
func (e *BotError) WithSymbol(symbol string) *BotError {
	return e.WithContext("symbol", symbol)
}

// WithRetryable sets the retryable flag
func (e *BotError) WithRetryable(retryable bool) *BotError {
	e.Retryable = retryable
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryNetwork, ErrorCategoryTimeout, ErrorCategoryTemporary,
		ErrorCategoryRateLimit, ErrorCategoryConnectivity:
		return true
	case ErrorCategoryFatal, ErrorCategoryCredentials, ErrorCategoryConfiguration,
		ErrorCategoryComputation, ErrorCategoryLimitBreach:
		return false
	default:
		return true
	}
}

// categoryRules map message keywords onto categories, first match wins
var categoryRules = []struct {
	category  ErrorCategory
	retryable bool
	keywords  []string
}{
	{ErrorCategoryTimeout, true, []string{"timeout", "context deadline exceeded"}},
	{ErrorCategoryConnectivity, true, []string{"circuit breaker"}},
	{ErrorCategoryNetwork, true, []string{"connection", "network", "dns", "dial"}},
	{ErrorCategoryCredentials, false, []string{"api key", "api secret", "authentication", "unauthorized"}},
	{ErrorCategoryRateLimit, true, []string{"rate limit", "too many requests"}},
	{ErrorCategoryOrder, false, []string{"insufficient", "balance"}},
	{ErrorCategoryValidation, false, []string{"invalid", "constraint", "minimum", "maximum"}},
}

// CategorizeError returns err itself when it already is a BotError,
// otherwise wraps it under the first category whose keywords its message
// contains, TEMPORARY when none do
func CategorizeError(err error, component, operation string) *BotError {
	if err == nil {
		return nil
	}
	var botErr *BotError
	if stderrors.As(err, &botErr) {
		return botErr
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(msg, kw) {
				return WrapError(err, rule.category, component, operation).WithRetryable(rule.retryable)
			}
		}
	}
	return WrapError(err, ErrorCategoryTemporary, component, operation)
}

// CategoryOf returns the category of err, TEMPORARY for uncategorized errors
func CategoryOf(err error) ErrorCategory {
	var botErr *BotError
	if stderrors.As(err, &botErr) {
		return botErr.Category
	}
	return ErrorCategoryTemporary
}

// Common error constructors
func NewConnectivityError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryConnectivity, component, operation)
}

func NewComputationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryComputation, component, operation, message)
}

func NewValidationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryValidation, component, operation, message).WithRetryable(false)
}

func NewConfigurationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryConfiguration, component, operation, message).WithRetryable(false)
}

func NewCredentialsError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryCredentials, component, operation, message).WithRetryable(false)
}

func NewOrderError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryOrder, component, operation)
}

func NewLimitBreach(component, reason string) *BotError {
	return NewBotError(ErrorCategoryLimitBreach, component, "limit_check", reason)
}

// Combine merges errors into one, skipping nils
func Combine(errs ...error) error {
	return multierr.Combine(errs...)
}

// Errors flattens an error produced by Combine
func Errors(err error) []error {
	return multierr.Errors(err)
}

// Error recovery strategies
type RecoveryAction string

const (
	RecoveryActionRetry    RecoveryAction = "RETRY"
	RecoveryActionSkip     RecoveryAction = "SKIP"
	RecoveryActionStop     RecoveryAction = "STOP"
	RecoveryActionFallback RecoveryAction = "FALLBACK"
	RecoveryActionWait     RecoveryAction = "WAIT"
)

// GetRecoveryAction suggests a recovery action based on error category
func (e *BotError) GetRecoveryAction() RecoveryAction {
	switch e.Category {
	case ErrorCategoryFatal, ErrorCategoryCredentials, ErrorCategoryConfiguration:
		return RecoveryActionStop
	case ErrorCategoryRateLimit, ErrorCategoryLimitBreach:
		return RecoveryActionWait
	case ErrorCategoryComputation:
		return RecoveryActionFallback
	case ErrorCategoryValidation:
		return RecoveryActionSkip
	case ErrorCategoryOrder, ErrorCategoryPosition:
		if e.Retryable {
			return RecoveryActionRetry
		}
		return RecoveryActionSkip
	default:
		return RecoveryActionRetry
	}
}

// ErrorStats tracks error statistics
type ErrorStats struct {
	mu               sync.Mutex
	TotalErrors      int
	ErrorsByCategory map[ErrorCategory]int
	RecentErrors     []*BotError
	MaxRecentErrors  int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		ErrorsByCategory: make(map[ErrorCategory]int),
		RecentErrors:     make([]*BotError, 0, maxRecentErrors),
		MaxRecentErrors:  maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err *BotError) {
	if err == nil {
		return
	}
	es.mu.Lock()
	defer es.mu.Unlock()

	es.TotalErrors++
	es.ErrorsByCategory[err.Category]++

	es.RecentErrors = append(es.RecentErrors, err)
	if len(es.RecentErrors) > es.MaxRecentErrors {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

// GetErrorRate returns the error rate for a specific category
func (es *ErrorStats) GetErrorRate(category ErrorCategory) float64 {
	es.mu.Lock()
	defer es.mu.Unlock()
	if es.TotalErrors == 0 {
		return 0.0
	}
	return float64(es.ErrorsByCategory[category]) / float64(es.TotalErrors)
}
