package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kinds of completed ledger operations.
const (
	KindWithdraw = "withdraw"
	KindDeposit  = "deposit"
	KindTransfer = "transfer"
)

// TransactionCompleted is published once a ledger operation has committed.
type TransactionCompleted struct {
	EventID     string          `json:"event_id"`
	Kind        string          `json:"kind"`
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// PartitionKey keeps every event of one source account on the same partition.
func (e TransactionCompleted) PartitionKey() string {
	return e.FromAccount
}
