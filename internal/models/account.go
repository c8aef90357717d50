package models

import (
	"github.com/shopspring/decimal"
)

// Account is the balance holder the ledger operates on.
type Account struct {
	ID      string          // opaque identifier, fixed-width numeric string
	IsAdmin bool            // privilege flag, never changes after creation
	Balance decimal.Decimal // always >= 0, two decimal places
}

// NewAccount builds an Account snapshot and rejects negative balances.
func NewAccount(id string, isAdmin bool, balance decimal.Decimal) (Account, error) {
	if balance.IsNegative() {
		return Account{}, ErrNegativeBalance
	}
	return Account{
		ID:      id,
		IsAdmin: isAdmin,
		Balance: balance.Round(MinorUnitPlaces),
	}, nil
}

// CanDebit reports whether amount can leave the account without overdrawing it.
func (a Account) CanDebit(amount decimal.Decimal) bool {
	return amount.LessThanOrEqual(a.Balance)
}
