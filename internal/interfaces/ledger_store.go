package interfaces

import (
	"context"

	"github.com/sheikh-saqib/atm-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// LedgerTx is the set of writes the engine may group into one commit.
// Reads made through it see the transaction's own pending writes.
type LedgerTx interface {
	// GetAccount returns models.ErrAccountNotFound when id is unknown.
	GetAccount(ctx context.Context, id string) (models.Account, error)
	SaveBalance(ctx context.Context, id string, balance decimal.Decimal) error
	AppendRecord(ctx context.Context, record models.TransactionRecord) error
}

// LedgerStore is the storage collaborator behind the engine, recorder and directory.
type LedgerStore interface {
	// RunInTx commits every write made through tx if fn returns nil and
	// discards all of them otherwise.
	RunInTx(ctx context.Context, fn func(tx LedgerTx) error) error

	GetAccount(ctx context.Context, id string) (models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)

	// CreateAccount returns models.ErrDuplicateAccount when the id is taken.
	CreateAccount(ctx context.Context, account models.Account, pinHash []byte) error
	GetPinHash(ctx context.Context, id string) ([]byte, error)

	// GetRecordsByOwner returns the owner's records in insertion order.
	GetRecordsByOwner(ctx context.Context, ownerID string) ([]models.TransactionRecord, error)
}
