package bybit

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-zero retCode returned by the Bybit v5 API
type APIError struct {
	Code    int    `json:"retCode"`
	Message string `json:"retMsg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bybit retCode %d: %s", e.Code, e.Message)
}

// Kind reports what the code means to the caller
func (e *APIError) Kind() ErrorKind {
	if k, ok := codeKinds[e.Code]; ok {
		return k
	}
	if e.Code >= http.StatusInternalServerError && e.Code < 600 {
		return KindServer
	}
	return KindOther
}

// ErrorKind groups retCodes by how they should be handled
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindAuth
	KindRateLimit
	KindBalance
	KindQuantity
	KindSymbol
	KindServer
)

// Retryable reports whether repeating the request can succeed
func (k ErrorKind) Retryable() bool {
	return k == KindRateLimit || k == KindServer
}

// retCodes seen by spot trading
const (
	CodeInvalidAPIKey       = 10003
	CodeInvalidSignature    = 10004
	CodeInvalidTimestamp    = 10005
	CodeRateLimited         = 10006
	CodeSymbolNotFound      = 110009
	CodeInvalidQuantity     = 110020
	CodeSpotInsufficient    = 170131
	CodeSpotQtyTooSmall     = 170136
	CodeInsufficientBalance = 110007
)

var codeKinds = map[int]ErrorKind{
	CodeInvalidAPIKey:       KindAuth,
	CodeInvalidSignature:    KindAuth,
	CodeInvalidTimestamp:    KindAuth,
	CodeRateLimited:         KindRateLimit,
	CodeInsufficientBalance: KindBalance,
	CodeSpotInsufficient:    KindBalance,
	CodeInvalidQuantity:     KindQuantity,
	CodeSpotQtyTooSmall:     KindQuantity,
	CodeSymbolNotFound:      KindSymbol,
}

// KindOf classifies err, KindOther when it is not an APIError
func KindOf(err error) (ErrorKind, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return KindOther, false
	}
	return apiErr.Kind(), true
}

func checkRetCode(code int, msg string) error {
	if code == 0 {
		return nil
	}
	if msg == "" {
		msg = "no message"
	}
	return &APIError{Code: code, Message: msg}
}
