package trading

import "errors"

// Business-rule failures. Each one is terminal for the request that hit
// it and is surfaced to the user with its message; none of them mutate
// any state before being returned.
var (
	ErrInvalidShareCount     = errors.New("invalid share count")
	ErrNonPositiveShareCount = errors.New("share count must be positive")
	ErrUnknownSymbol         = errors.New("symbol does not exist")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrOverSell              = errors.New("cannot sell more shares than owned")
	ErrInvalidAmount         = errors.New("invalid amount")
)
