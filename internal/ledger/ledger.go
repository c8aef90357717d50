package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	interfaces "github.com/sheikh-saqib/atm-ledger/internal/interfaces"
	"github.com/sheikh-saqib/atm-ledger/internal/logging"
	"github.com/sheikh-saqib/atm-ledger/internal/metrics"
	"github.com/sheikh-saqib/atm-ledger/internal/models"
	"github.com/sheikh-saqib/atm-ledger/internal/models/events"
	"github.com/sheikh-saqib/atm-ledger/internal/recorder"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultTopic is where completion events go unless WithPublisher says otherwise.
const DefaultTopic = "transaction_completed"

// AccountLookup resolves a counterpart account without credentials.
type AccountLookup interface {
	Lookup(ctx context.Context, id string) (models.Account, error)
}

// Ledger is the only writer of balances. Every operation either commits all
// of its balance writes and history records together or leaves no trace.
type Ledger struct {
	store    interfaces.LedgerStore // storage collaborator, provides the commit boundary
	recorder *recorder.Recorder
	accounts AccountLookup

	publisher interfaces.EventPublisher
	topic     string
	metrics   metrics.Collector
	logger    *logging.Logger
	now       func() time.Time

	muMap map[string]*sync.Mutex // stores the *sync.Mutex for each account in a map
	mapMu sync.Mutex             // protects the muMap itself

	clockMu sync.Mutex
	last    time.Time // latest timestamp handed out, keeps history non-decreasing
}

type Option func(*Ledger)

func WithLogger(logger *logging.Logger) Option {
	return func(l *Ledger) { l.logger = logger.Named("ledger") }
}

func WithMetrics(collector metrics.Collector) Option {
	return func(l *Ledger) { l.metrics = collector }
}

// WithPublisher sends a TransactionCompleted event to topic after each commit.
func WithPublisher(publisher interfaces.EventPublisher, topic string) Option {
	return func(l *Ledger) {
		l.publisher = publisher
		if topic != "" {
			l.topic = topic
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger wires the engine to its collaborators.
func NewLedger(store interfaces.LedgerStore, rec *recorder.Recorder, accounts AccountLookup, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		recorder: rec,
		accounts: accounts,
		topic:    DefaultTopic,
		metrics:  metrics.NoOpCollector{},
		logger:   logging.NewNoOpLogger(),
		now:      time.Now,
		muMap:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) getAccountLock(accountID string) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.muMap[accountID]; !exists {
		l.muMap[accountID] = &sync.Mutex{}
	}
	return l.muMap[accountID]
}

// lockAccount resolves accountID before locking it, so ids that do not exist
// never enter muMap.
func (l *Ledger) lockAccount(ctx context.Context, accountID string) (unlock func(), err error) {
	if _, err := l.accounts.Lookup(ctx, accountID); err != nil {
		return nil, err
	}
	mu := l.getAccountLock(accountID)
	mu.Lock()
	return mu.Unlock, nil
}

// lockPair locks both accounts in ascending id order so two opposite
// transfers can never wait on each other.
func (l *Ledger) lockPair(a, b string) (unlock func()) {
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	firstMu := l.getAccountLock(first)
	secondMu := l.getAccountLock(second)

	firstMu.Lock()
	secondMu.Lock()
	return func() {
		secondMu.Unlock()
		firstMu.Unlock()
	}
}

// timestamp returns the current time at second resolution, never earlier
// than a previously returned one.
func (l *Ledger) timestamp() time.Time {
	l.clockMu.Lock()
	defer l.clockMu.Unlock()

	t := l.now().UTC().Truncate(time.Second)
	if t.Before(l.last) {
		t = l.last
	}
	l.last = t
	return t
}

// Debit lowers the balance of accountID by amount without writing history.
func (l *Ledger) Debit(ctx context.Context, accountID string, amount decimal.Decimal) (account models.Account, err error) {
	defer l.observe(ctx, "debit", time.Now(), &err, accountID, "", amount)

	if err := models.ValidateAmount(amount); err != nil {
		return models.Account{}, err
	}

	unlock, err := l.lockAccount(ctx, accountID)
	if err != nil {
		return models.Account{}, err
	}
	defer unlock()

	err = l.store.RunInTx(ctx, func(tx interfaces.LedgerTx) error {
		current, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return models.WrapPersistence("read account", err)
		}
		account, err = l.debit(ctx, tx, current, amount)
		return err
	})
	if err != nil {
		return models.Account{}, models.WrapPersistence("commit", err)
	}
	return account, nil
}

// Credit raises the balance of accountID by amount without writing history.
// There is no policy limit, only the range the stores can persist.
func (l *Ledger) Credit(ctx context.Context, accountID string, amount decimal.Decimal) (account models.Account, err error) {
	defer l.observe(ctx, "credit", time.Now(), &err, accountID, "", amount)

	if err := models.ValidateAmount(amount); err != nil {
		return models.Account{}, err
	}

	unlock, err := l.lockAccount(ctx, accountID)
	if err != nil {
		return models.Account{}, err
	}
	defer unlock()

	err = l.store.RunInTx(ctx, func(tx interfaces.LedgerTx) error {
		current, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return models.WrapPersistence("read account", err)
		}
		account, err = l.credit(ctx, tx, current, amount)
		return err
	})
	if err != nil {
		return models.Account{}, models.WrapPersistence("commit", err)
	}
	return account, nil
}

// Withdraw debits accountID and records one debit entry in the same commit.
func (l *Ledger) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (account models.Account, err error) {
	defer l.observe(ctx, "withdraw", time.Now(), &err, accountID, "", amount)

	if err := models.ValidateAmount(amount); err != nil {
		return models.Account{}, err
	}

	unlock, err := l.lockAccount(ctx, accountID)
	if err != nil {
		return models.Account{}, err
	}
	defer unlock()

	var occurredAt time.Time
	err = l.store.RunInTx(ctx, func(tx interfaces.LedgerTx) error {
		current, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return models.WrapPersistence("read account", err)
		}
		if account, err = l.debit(ctx, tx, current, amount); err != nil {
			return err
		}
		occurredAt = l.timestamp()
		return l.recorder.Record(ctx, tx, models.TransactionRecord{
			IsCredit:  false,
			OwnerID:   accountID,
			FromID:    accountID,
			Amount:    amount,
			Timestamp: occurredAt,
		})
	})
	if err != nil {
		return models.Account{}, models.WrapPersistence("commit", err)
	}

	l.publish(ctx, events.KindWithdraw, accountID, "", amount, occurredAt)
	return account, nil
}

// Deposit credits accountID and records one credit entry in the same commit.
func (l *Ledger) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (account models.Account, err error) {
	defer l.observe(ctx, "deposit", time.Now(), &err, accountID, "", amount)

	if err := models.ValidateAmount(amount); err != nil {
		return models.Account{}, err
	}

	unlock, err := l.lockAccount(ctx, accountID)
	if err != nil {
		return models.Account{}, err
	}
	defer unlock()

	var occurredAt time.Time
	err = l.store.RunInTx(ctx, func(tx interfaces.LedgerTx) error {
		current, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return models.WrapPersistence("read account", err)
		}
		if account, err = l.credit(ctx, tx, current, amount); err != nil {
			return err
		}
		occurredAt = l.timestamp()
		return l.recorder.Record(ctx, tx, models.TransactionRecord{
			IsCredit:  true,
			OwnerID:   accountID,
			FromID:    accountID,
			Amount:    amount,
			Timestamp: occurredAt,
		})
	})
	if err != nil {
		return models.Account{}, models.WrapPersistence("commit", err)
	}

	l.publish(ctx, events.KindDeposit, accountID, "", amount, occurredAt)
	return account, nil
}

// Transfer moves amount from sourceID to targetID. Both balance writes and
// both history legs commit as one unit; on any failure nothing changes.
// It returns the updated source account.
func (l *Ledger) Transfer(ctx context.Context, sourceID, targetID string, amount decimal.Decimal) (source models.Account, err error) {
	defer l.observe(ctx, "transfer", time.Now(), &err, sourceID, targetID, amount)

	// input checks come first so invalid requests reveal nothing about the target
	if sourceID == targetID {
		return models.Account{}, models.ErrSelfTransfer
	}
	if err := models.ValidateAmount(amount); err != nil {
		return models.Account{}, err
	}

	// resolved before locking so unknown ids never enter muMap
	if _, err := l.accounts.Lookup(ctx, targetID); err != nil {
		return models.Account{}, err
	}
	if _, err := l.accounts.Lookup(ctx, sourceID); err != nil {
		return models.Account{}, err
	}

	unlock := l.lockPair(sourceID, targetID)
	defer unlock()

	var occurredAt time.Time
	err = l.store.RunInTx(ctx, func(tx interfaces.LedgerTx) error {
		// read in id order, matching the lock order of row-locking stores
		first, second := sourceID, targetID
		if second < first {
			first, second = second, first
		}
		participants := make(map[string]models.Account, 2)
		for _, id := range []string{first, second} {
			account, err := tx.GetAccount(ctx, id)
			if err != nil {
				return models.WrapPersistence("read account", err)
			}
			participants[id] = account
		}

		var err error
		if source, err = l.debit(ctx, tx, participants[sourceID], amount); err != nil {
			return err
		}
		if _, err = l.credit(ctx, tx, participants[targetID], amount); err != nil {
			return err
		}

		occurredAt = l.timestamp()
		if err := l.recorder.Record(ctx, tx, models.TransactionRecord{
			IsCredit:  false,
			OwnerID:   sourceID,
			FromID:    sourceID,
			ToID:      targetID,
			Amount:    amount,
			Timestamp: occurredAt,
		}); err != nil {
			return err
		}
		return l.recorder.Record(ctx, tx, models.TransactionRecord{
			IsCredit:  true,
			OwnerID:   targetID,
			FromID:    sourceID,
			ToID:      targetID,
			Amount:    amount,
			Timestamp: occurredAt,
		})
	})
	if err != nil {
		return models.Account{}, models.WrapPersistence("commit", err)
	}

	l.publish(ctx, events.KindTransfer, sourceID, targetID, amount, occurredAt)
	return source, nil
}

// Balance returns the committed snapshot of accountID.
func (l *Ledger) Balance(ctx context.Context, accountID string) (models.Account, error) {
	account, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return models.Account{}, models.WrapPersistence("read account", err)
	}
	return account, nil
}

// History returns accountID's records, most recent first.
func (l *Ledger) History(ctx context.Context, accountID string) ([]models.TransactionRecord, error) {
	return l.recorder.HistoryFor(ctx, accountID)
}

func (l *Ledger) debit(ctx context.Context, tx interfaces.LedgerTx, account models.Account, amount decimal.Decimal) (models.Account, error) {
	if !account.CanDebit(amount) {
		return models.Account{}, fmt.Errorf("%w: balance %s, requested %s",
			models.ErrInsufficientFunds, models.FormatAmount(account.Balance), models.FormatAmount(amount))
	}
	balance := account.Balance.Sub(amount)
	if err := tx.SaveBalance(ctx, account.ID, balance); err != nil {
		return models.Account{}, models.WrapPersistence("save balance", err)
	}
	account.Balance = balance
	return account, nil
}

func (l *Ledger) credit(ctx context.Context, tx interfaces.LedgerTx, account models.Account, amount decimal.Decimal) (models.Account, error) {
	balance := account.Balance.Add(amount)
	if err := models.ValidateBalance(balance); err != nil {
		return models.Account{}, err
	}
	if err := tx.SaveBalance(ctx, account.ID, balance); err != nil {
		return models.Account{}, models.WrapPersistence("save balance", err)
	}
	account.Balance = balance
	return account, nil
}

// publish runs after commit; a failure is logged and never undoes the operation.
func (l *Ledger) publish(ctx context.Context, kind, from, to string, amount decimal.Decimal, occurredAt time.Time) {
	if l.publisher == nil {
		return
	}
	event := events.TransactionCompleted{
		EventID:     uuid.NewString(),
		Kind:        kind,
		FromAccount: from,
		ToAccount:   to,
		Amount:      amount,
		OccurredAt:  occurredAt,
	}
	err := l.publisher.Publish(ctx, l.topic, event)
	l.metrics.RecordPublish(err == nil)
	if err != nil {
		l.logger.Warn("publish transaction completed failed",
			zap.String("event_id", event.EventID),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}

func (l *Ledger) observe(ctx context.Context, op string, start time.Time, errp *error, accountID, counterpartID string, amount decimal.Decimal) {
	err := *errp
	l.metrics.RecordOperation(op, models.ClassifyError(err), time.Since(start))

	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("account_id", accountID),
	}
	if models.ValidateAmount(amount) == nil {
		fields = append(fields, zap.String("amount", models.FormatAmount(amount)))
	}
	if counterpartID != "" {
		fields = append(fields, zap.String("counterpart_id", counterpartID))
	}
	if reqID := logging.RequestID(ctx); reqID != "" {
		fields = append(fields, zap.String("request_id", reqID))
	}

	switch {
	case err == nil:
		l.logger.Info("ledger operation committed", fields...)
	case errors.Is(err, models.ErrPersistence):
		l.logger.Error("ledger operation failed", append(fields, zap.Error(err))...)
	default:
		l.logger.Warn("ledger operation rejected", append(fields, zap.Error(err))...)
	}
}
