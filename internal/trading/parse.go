package trading

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Form fields arrive as strings. Every mutating operation runs its input
// through one of these before any business logic, so a bad value can
// never reach the database layer half-validated.

// parseBuyShares accepts a strictly positive integer.
func parseBuyShares(raw string) (int64, error) {
	shares, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || shares <= 0 {
		return 0, ErrInvalidShareCount
	}
	return shares, nil
}

// parseSellShares accepts a strictly positive integer but distinguishes
// the zero case: negative and non-numeric input is malformed, zero is a
// well-formed request to sell nothing, which is rejected on its own.
func parseSellShares(raw string) (int64, error) {
	shares, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || shares < 0 {
		return 0, ErrInvalidShareCount
	}
	if shares == 0 {
		return 0, ErrNonPositiveShareCount
	}
	return shares, nil
}

// parseAmount accepts a strictly positive decimal cash amount.
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

// normalizeSymbol upper-cases the ticker, the canonical form used by the
// provider and stored in positions and transactions.
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
