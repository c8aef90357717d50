package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	interfaces "github.com/sheikh-saqib/atm-ledger/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/atm-ledger/internal/models"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	pin_hash   BYTEA NOT NULL,
	is_admin   BOOLEAN NOT NULL DEFAULT FALSE,
	balance    NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS transactions (
	seq        BIGSERIAL PRIMARY KEY,
	id         UUID NOT NULL UNIQUE,
	is_credit  BOOLEAN NOT NULL,
	user_id    TEXT NOT NULL REFERENCES accounts(id),
	from_id    TEXT NOT NULL REFERENCES accounts(id),
	to_id      TEXT REFERENCES accounts(id),
	amount     NUMERIC(20,2) NOT NULL CHECK (amount >= 0),
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id, seq);
`

type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

// Open connects to dsn with the pq driver, checks connectivity and applies the schema.
func Open(ctx context.Context, dsn string) (*PostgresLedgerStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := NewPostgresLedgerStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Migrate creates the tables if they do not exist yet.
func (p *PostgresLedgerStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (p *PostgresLedgerStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresLedgerStore) Close() error {
	return p.db.Close()
}

// RunInTx wraps fn in a database transaction. Any error from fn, or from
// commit itself, leaves the database untouched.
func (p *PostgresLedgerStore) RunInTx(ctx context.Context, fn func(tx interfaces.LedgerTx) error) (err error) {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if err = fn(&postgresTx{tx: dbTx}); err != nil {
		return err
	}
	return dbTx.Commit()
}

type postgresTx struct {
	tx *sql.Tx
}

// GetAccount locks the row until the transaction ends.
func (t *postgresTx) GetAccount(ctx context.Context, id string) (models.Account, error) {
	const query = `SELECT id, is_admin, balance FROM accounts WHERE id = $1 FOR UPDATE`

	var account models.Account
	err := t.tx.QueryRowContext(ctx, query, id).Scan(&account.ID, &account.IsAdmin, &account.Balance)
	if err == sql.ErrNoRows {
		return models.Account{}, models.ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, err
	}
	return account, nil
}

func (t *postgresTx) SaveBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	const query = `UPDATE accounts SET balance = $1 WHERE id = $2`

	result, err := t.tx.ExecContext(ctx, query, balance, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrAccountNotFound
	}
	return nil
}

func (t *postgresTx) AppendRecord(ctx context.Context, record models.TransactionRecord) error {
	const query = `INSERT INTO transactions (id, is_credit, user_id, from_id, to_id, amount, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7)`

	toID := sql.NullString{String: record.ToID, Valid: record.ToID != ""}
	_, err := t.tx.ExecContext(ctx, query,
		record.ID, record.IsCredit, record.OwnerID, record.FromID, toID, record.Amount, record.Timestamp)
	return err
}

func (p *PostgresLedgerStore) GetAccount(ctx context.Context, id string) (models.Account, error) {
	const query = `SELECT id, is_admin, balance FROM accounts WHERE id = $1`

	var account models.Account
	err := p.db.QueryRowContext(ctx, query, id).Scan(&account.ID, &account.IsAdmin, &account.Balance)
	if err == sql.ErrNoRows {
		return models.Account{}, models.ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, err
	}
	return account, nil
}

func (p *PostgresLedgerStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	const query = `SELECT id, is_admin, balance FROM accounts ORDER BY id`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		if err := rows.Scan(&account.ID, &account.IsAdmin, &account.Balance); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (p *PostgresLedgerStore) CreateAccount(ctx context.Context, account models.Account, pinHash []byte) error {
	const query = `INSERT INTO accounts (id, pin_hash, is_admin, balance) VALUES ($1,$2,$3,$4)`

	_, err := p.db.ExecContext(ctx, query, account.ID, pinHash, account.IsAdmin, account.Balance)
	if isUniqueViolation(err) {
		return models.ErrDuplicateAccount
	}
	return err
}

func (p *PostgresLedgerStore) GetPinHash(ctx context.Context, id string) ([]byte, error) {
	const query = `SELECT pin_hash FROM accounts WHERE id = $1`

	var hash []byte
	err := p.db.QueryRowContext(ctx, query, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return hash, nil
}

func (p *PostgresLedgerStore) GetRecordsByOwner(ctx context.Context, ownerID string) ([]models.TransactionRecord, error) {
	const query = `SELECT seq, id, is_credit, user_id, from_id, to_id, amount, created_at
	FROM transactions WHERE user_id = $1 ORDER BY seq`

	rows, err := p.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.TransactionRecord
	for rows.Next() {
		var (
			record models.TransactionRecord
			toID   sql.NullString
		)
		err := rows.Scan(
			&record.Seq,
			&record.ID,
			&record.IsCredit,
			&record.OwnerID,
			&record.FromID,
			&toID,
			&record.Amount,
			&record.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		record.ToID = toID.String
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
