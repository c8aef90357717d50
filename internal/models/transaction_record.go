package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecord is one immutable line of an account's history.
type TransactionRecord struct {
	ID        string          // unique identifier (uuid)
	Seq       int64           // insertion order, assigned by the store on append
	IsCredit  bool            // true when the owner's balance went up
	OwnerID   string          // whose history this record belongs to
	FromID    string          // initiating account
	ToID      string          // counterpart of a transfer, empty otherwise
	Amount    decimal.Decimal // never negative
	Timestamp time.Time       // second resolution
}

// IsTransfer reports whether the record is one leg of a transfer.
func (r TransactionRecord) IsTransfer() bool {
	return r.ToID != ""
}

// Direction returns "credit" or "debit".
func (r TransactionRecord) Direction() string {
	if r.IsCredit {
		return "credit"
	}
	return "debit"
}
