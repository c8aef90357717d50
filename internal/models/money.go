package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnitPlaces is the number of decimal places a monetary amount may carry.
// Amounts are exact base-10 values, so repeated debit/credit cycles never drift.
const MinorUnitPlaces = 2

// MaxIntegerDigits is the widest integer part an amount or balance may have,
// matching the NUMERIC(20,2) columns of the postgres store.
const MaxIntegerDigits = 18

var amountLimit = decimal.New(1, MaxIntegerDigits)

// ValidateAmount rejects negative amounts, amounts finer than one minor unit
// and amounts too large to persist.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: amount is negative", ErrInvalidAmount)
	}
	// checked before any arithmetic: a huge exponent makes every rescale expensive
	if exp := amount.Exponent(); exp > MaxIntegerDigits || exp < -(MaxIntegerDigits+MinorUnitPlaces) {
		return fmt.Errorf("%w: amount is out of range", ErrInvalidAmount)
	}
	if amount.GreaterThanOrEqual(amountLimit) {
		return fmt.Errorf("%w: amount exceeds %d integer digits", ErrInvalidAmount, MaxIntegerDigits)
	}
	if !amount.Equal(amount.Truncate(MinorUnitPlaces)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, amount.String(), MinorUnitPlaces)
	}
	return nil
}

// ValidateBalance rejects a resulting balance too large to persist.
func ValidateBalance(balance decimal.Decimal) error {
	if balance.GreaterThanOrEqual(amountLimit) {
		return fmt.Errorf("%w: balance would exceed %d integer digits", ErrInvalidAmount, MaxIntegerDigits)
	}
	return nil
}

// ParseAmount parses user input such as "30", "30.5" or "30.50".
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// FormatAmount renders an amount with exactly two decimal places.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(MinorUnitPlaces)
}
