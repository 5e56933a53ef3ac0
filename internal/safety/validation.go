package safety

import (
	"fmt"
	"math"
	"strings"

	boterrors "github.com/ducminhle1904/crypto-trading-bot/internal/errors"
	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange"
)

// ValidationResult represents the result of a validation check
type ValidationResult struct {
	Valid   bool
	Message string
	Code    string
}

func invalid(code, format string, args ...interface{}) ValidationResult {
	return ValidationResult{Valid: false, Code: code, Message: fmt.Sprintf(format, args...)}
}

var valid = ValidationResult{Valid: true}

// Validator rejects orders carrying values no venue should ever see
type Validator struct {
	MaxPrice      float64
	MaxQuantity   float64
	MinOrderValue float64
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		MaxPrice:      1e10,
		MaxQuantity:   1e12,
		MinOrderValue: 0.01,
	}
}

// ValidatePrice validates a price value for trading
func (v *Validator) ValidatePrice(price float64, symbol string) ValidationResult {
	switch {
	case math.IsNaN(price):
		return invalid("INVALID_PRICE_NAN", "invalid price for %s: price is NaN", symbol)
	case math.IsInf(price, 0):
		return invalid("INVALID_PRICE_INF", "invalid price for %s: price is infinite", symbol)
	case price <= 0:
		return invalid("INVALID_PRICE_NEGATIVE", "invalid price %.8f for %s: price must be positive", price, symbol)
	case price > v.MaxPrice:
		return invalid("PRICE_OUT_OF_BOUNDS", "suspicious price %.8f for %s: exceeds reasonable bounds", price, symbol)
	}
	return valid
}

// ValidateQuantity validates a quantity value for trading
func (v *Validator) ValidateQuantity(quantity float64, symbol string) ValidationResult {
	switch {
	case math.IsNaN(quantity):
		return invalid("INVALID_QUANTITY_NAN", "invalid quantity for %s: quantity is NaN", symbol)
	case math.IsInf(quantity, 0):
		return invalid("INVALID_QUANTITY_INF", "invalid quantity for %s: quantity is infinite", symbol)
	case quantity <= 0:
		return invalid("INVALID_QUANTITY_NEGATIVE", "invalid quantity %.8f for %s: quantity must be positive", quantity, symbol)
	case quantity > v.MaxQuantity:
		return invalid("QUANTITY_OUT_OF_BOUNDS", "suspicious quantity %.8f for %s: exceeds reasonable bounds", quantity, symbol)
	}
	return valid
}

// ValidateSymbol accepts BASE/QUOTE or BASEQUOTE alphanumeric symbols
func (v *Validator) ValidateSymbol(symbol string) ValidationResult {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return invalid("SYMBOL_EMPTY", "symbol cannot be empty")
	}
	plain := strings.Replace(symbol, "/", "", 1)
	if len(plain) < 3 || len(plain) > 20 {
		return invalid("SYMBOL_LENGTH", "symbol '%s' must have 3 to 20 characters", symbol)
	}
	for _, char := range plain {
		if !((char >= 'A' && char <= 'Z') || (char >= 'a' && char <= 'z') || (char >= '0' && char <= '9')) {
			return invalid("SYMBOL_INVALID_CHARS", "symbol '%s' contains invalid characters", symbol)
		}
	}
	return valid
}

// ValidateOrder checks an order request before it reaches a venue. Market
// orders are priced with refPrice, the latest known price.
func (v *Validator) ValidateOrder(req exchange.OrderRequest, refPrice float64) error {
	checks := []ValidationResult{
		v.ValidateSymbol(req.Symbol),
		v.ValidateQuantity(req.Quantity, req.Symbol),
	}
	price := refPrice
	if req.Type == exchange.OrderTypeLimit || req.Price > 0 {
		price = req.Price
	}
	checks = append(checks, v.ValidatePrice(price, req.Symbol))

	for _, res := range checks {
		if !res.Valid {
			return boterrors.NewValidationError("validator", "validate_order", res.Message).
				WithContext("code", res.Code)
		}
	}
	if value := price * req.Quantity; value < v.MinOrderValue {
		return boterrors.NewValidationError("validator", "validate_order",
			fmt.Sprintf("order value $%.8f for %s below minimum", value, req.Symbol)).
			WithContext("code", "ORDER_VALUE_TOO_SMALL")
	}
	return nil
}
