package memory

import (
	"context" // standard Go package for request-scoped context (timeouts, cancellation)
	"fmt"
	"sort"
	"sync" // standard Go package for concurrency primitives like Mutex

	interfaces "github.com/sheikh-saqib/atm-ledger/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/atm-ledger/internal/models"                // domain models: Account, TransactionRecord
	"github.com/shopspring/decimal"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// Commits are serialized by a single mutex, so a transaction never observes
// another transaction's partial writes.
type MemoryLedgerStore struct {
	mu       sync.Mutex                // protects every field below
	accounts map[string]models.Account // account snapshots by id
	pins     map[string][]byte         // PIN hashes by account id
	records  []models.TransactionRecord
	nextSeq  int64
}

// NewMemoryLedgerStore creates and returns a new, empty MemoryLedgerStore
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		accounts: make(map[string]models.Account),
		pins:     make(map[string][]byte),
		records:  make([]models.TransactionRecord, 0),
	}
}

// memoryTx stages writes until RunInTx decides to apply or drop them.
type memoryTx struct {
	store    *MemoryLedgerStore
	balances map[string]decimal.Decimal
	records  []models.TransactionRecord
}

// RunInTx runs fn while holding the store lock and applies the staged writes
// only when fn succeeds.
func (m *MemoryLedgerStore) RunInTx(ctx context.Context, fn func(tx interfaces.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()         // one transaction at a time
	defer m.mu.Unlock() // unlock automatically when function exits (even if error occurs)

	tx := &memoryTx{store: m, balances: make(map[string]decimal.Decimal)}
	if err := fn(tx); err != nil {
		return err // staged writes are simply dropped
	}

	for id, balance := range tx.balances {
		account := m.accounts[id]
		account.Balance = balance
		m.accounts[id] = account
	}
	for _, record := range tx.records {
		m.nextSeq++
		record.Seq = m.nextSeq
		m.records = append(m.records, record)
	}
	return nil
}

func (t *memoryTx) GetAccount(ctx context.Context, id string) (models.Account, error) {
	account, ok := t.store.accounts[id]
	if !ok {
		return models.Account{}, models.ErrAccountNotFound
	}
	if balance, staged := t.balances[id]; staged {
		account.Balance = balance
	}
	return account, nil
}

func (t *memoryTx) SaveBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	if _, ok := t.store.accounts[id]; !ok {
		return models.ErrAccountNotFound
	}
	// mirrors the CHECK (balance >= 0) constraint of the postgres schema
	if balance.IsNegative() {
		return fmt.Errorf("memory store: balance of %s would become %s", id, balance.String())
	}
	// and its NUMERIC(20,2) range
	if err := models.ValidateBalance(balance); err != nil {
		return fmt.Errorf("memory store: balance of %s out of range: %v", id, err)
	}
	t.balances[id] = balance
	return nil
}

func (t *memoryTx) AppendRecord(ctx context.Context, record models.TransactionRecord) error {
	if _, ok := t.store.accounts[record.OwnerID]; !ok {
		return models.ErrAccountNotFound
	}
	t.records = append(t.records, record)
	return nil
}

// GetAccount returns a copy of the committed account snapshot.
func (m *MemoryLedgerStore) GetAccount(ctx context.Context, id string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return models.Account{}, models.ErrAccountNotFound
	}
	return account, nil
}

// ListAccounts returns every account ordered by id.
func (m *MemoryLedgerStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]models.Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MemoryLedgerStore) CreateAccount(ctx context.Context, account models.Account, pinHash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[account.ID]; exists {
		return models.ErrDuplicateAccount
	}
	m.accounts[account.ID] = account
	m.pins[account.ID] = append([]byte(nil), pinHash...)
	return nil
}

func (m *MemoryLedgerStore) GetPinHash(ctx context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash, ok := m.pins[id]
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	return append([]byte(nil), hash...), nil
}

// GetRecordsByOwner returns a copy so external code can't modify internal state.
func (m *MemoryLedgerStore) GetRecordsByOwner(ctx context.Context, ownerID string) ([]models.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.TransactionRecord
	for _, r := range m.records {
		if r.OwnerID == ownerID {
			result = append(result, r)
		}
	}
	return result, nil
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
