package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	interfaces "github.com/sheikh-saqib/atm-ledger/internal/interfaces"
	"github.com/sheikh-saqib/atm-ledger/internal/models"
	"github.com/sheikh-saqib/atm-ledger/internal/models/events"
	"github.com/sheikh-saqib/atm-ledger/internal/recorder"
	"github.com/sheikh-saqib/atm-ledger/internal/storage/memory"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// storeLookup resolves counterparts straight from the store.
type storeLookup struct {
	store interfaces.LedgerStore
}

func (s storeLookup) Lookup(ctx context.Context, id string) (models.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// faultyStore injects failures into an otherwise working store.
type faultyStore struct {
	interfaces.LedgerStore
	failAppendOn int  // fail the n-th AppendRecord of a transaction, 0 disables
	failCommit   bool // drop writes and report an error after fn succeeds
}

var errInjected = errors.New("injected storage failure")

func (f *faultyStore) RunInTx(ctx context.Context, fn func(tx interfaces.LedgerTx) error) error {
	return f.LedgerStore.RunInTx(ctx, func(tx interfaces.LedgerTx) error {
		if err := fn(&faultyTx{LedgerTx: tx, failAppendOn: f.failAppendOn}); err != nil {
			return err
		}
		if f.failCommit {
			return errInjected
		}
		return nil
	})
}

type faultyTx struct {
	interfaces.LedgerTx
	failAppendOn int
	appends      int
}

func (t *faultyTx) AppendRecord(ctx context.Context, record models.TransactionRecord) error {
	t.appends++
	if t.appends == t.failAppendOn {
		return errInjected
	}
	return t.LedgerTx.AppendRecord(ctx, record)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.TransactionCompleted
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event.(events.TransactionCompleted))
	return p.err
}

type fixture struct {
	store  interfaces.LedgerStore
	ledger *Ledger
}

func newFixture(t *testing.T, store interfaces.LedgerStore, balances map[string]string, opts ...Option) *fixture {
	t.Helper()
	for id, bal := range balances {
		account, err := models.NewAccount(id, false, d(bal))
		if err != nil {
			t.Fatal(err)
		}
		if err := store.CreateAccount(context.Background(), account, []byte("hash")); err != nil {
			t.Fatal(err)
		}
	}
	l := NewLedger(store, recorder.New(store), storeLookup{store}, opts...)
	return &fixture{store: store, ledger: l}
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	a, err := f.ledger.Balance(context.Background(), id)
	if err != nil {
		t.Fatalf("Balance(%s): %v", id, err)
	}
	return a.Balance
}

func (f *fixture) history(t *testing.T, id string) []models.TransactionRecord {
	t.Helper()
	h, err := f.ledger.History(context.Background(), id)
	if err != nil {
		t.Fatalf("History(%s): %v", id, err)
	}
	return h
}

func TestWithdrawSucceeds(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "100.00"})

	account, err := f.ledger.Withdraw(context.Background(), "A", d("30.00"))
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if !account.Balance.Equal(d("70.00")) {
		t.Errorf("returned balance=%s want 70.00", account.Balance)
	}
	if got := f.balance(t, "A"); !got.Equal(d("70.00")) {
		t.Errorf("stored balance=%s want 70.00", got)
	}

	h := f.history(t, "A")
	if len(h) != 1 {
		t.Fatalf("history len=%d want 1", len(h))
	}
	if h[0].IsCredit || h[0].OwnerID != "A" || h[0].FromID != "A" || h[0].ToID != "" || !h[0].Amount.Equal(d("30")) {
		t.Errorf("unexpected record %+v", h[0])
	}
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "50.00"})

	_, err := f.ledger.Withdraw(context.Background(), "A", d("50.01"))
	if !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if got := f.balance(t, "A"); !got.Equal(d("50.00")) {
		t.Errorf("balance=%s want 50.00", got)
	}
	if h := f.history(t, "A"); len(h) != 0 {
		t.Errorf("no record expected, got %+v", h)
	}
}

func TestWithdrawEntireBalance(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "50.00"})

	if _, err := f.ledger.Withdraw(context.Background(), "A", d("50.00")); err != nil {
		t.Fatal(err)
	}
	if got := f.balance(t, "A"); !got.IsZero() {
		t.Errorf("balance=%s want 0", got)
	}
}

func TestDeposit(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "0"})

	if _, err := f.ledger.Deposit(context.Background(), "A", d("12.34")); err != nil {
		t.Fatal(err)
	}
	if got := f.balance(t, "A"); !got.Equal(d("12.34")) {
		t.Errorf("balance=%s want 12.34", got)
	}
	h := f.history(t, "A")
	if len(h) != 1 || !h[0].IsCredit || h[0].FromID != "A" {
		t.Errorf("unexpected history %+v", h)
	}
}

func TestInvalidAmounts(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "100", "B": "0"})
	ctx := context.Background()

	for _, amt := range []string{"-0.01", "-5", "1.001", "1e3000000", "1e-3000000", "1000000000000000000"} {
		if _, err := f.ledger.Withdraw(ctx, "A", d(amt)); !errors.Is(err, models.ErrInvalidAmount) {
			t.Errorf("Withdraw(%s): want ErrInvalidAmount, got %v", amt, err)
		}
		if _, err := f.ledger.Deposit(ctx, "A", d(amt)); !errors.Is(err, models.ErrInvalidAmount) {
			t.Errorf("Deposit(%s): want ErrInvalidAmount, got %v", amt, err)
		}
		if _, err := f.ledger.Debit(ctx, "A", d(amt)); !errors.Is(err, models.ErrInvalidAmount) {
			t.Errorf("Debit(%s): want ErrInvalidAmount, got %v", amt, err)
		}
		if _, err := f.ledger.Credit(ctx, "A", d(amt)); !errors.Is(err, models.ErrInvalidAmount) {
			t.Errorf("Credit(%s): want ErrInvalidAmount, got %v", amt, err)
		}
		if _, err := f.ledger.Transfer(ctx, "A", "B", d(amt)); !errors.Is(err, models.ErrInvalidAmount) {
			t.Errorf("Transfer(%s): want ErrInvalidAmount, got %v", amt, err)
		}
	}

	if got := f.balance(t, "A"); !got.Equal(d("100")) {
		t.Errorf("balance=%s want 100", got)
	}
	if h := f.history(t, "A"); len(h) != 0 {
		t.Errorf("no records expected, got %d", len(h))
	}
}

func TestDebitAndCreditDoNotRecord(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "10"})
	ctx := context.Background()

	if _, err := f.ledger.Credit(ctx, "A", d("5")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Debit(ctx, "A", d("15")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Debit(ctx, "A", d("0.01")); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if got := f.balance(t, "A"); !got.IsZero() {
		t.Errorf("balance=%s want 0", got)
	}
	if h := f.history(t, "A"); len(h) != 0 {
		t.Errorf("debit/credit must not record, got %+v", h)
	}
}

func TestCreditHasNoUpperBound(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "0"})

	huge := d("999999999999999999.99")
	if _, err := f.ledger.Credit(context.Background(), "A", huge); err != nil {
		t.Fatal(err)
	}
	if got := f.balance(t, "A"); !got.Equal(huge) {
		t.Errorf("balance=%s want %s", got, huge)
	}
}

func TestCreditBeyondPersistedRangeIsRejected(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "999999999999999999.99"})
	ctx := context.Background()

	if _, err := f.ledger.Deposit(ctx, "A", d("0.01")); !errors.Is(err, models.ErrInvalidAmount) {
		t.Fatalf("want ErrInvalidAmount, got %v", err)
	}
	if got := f.balance(t, "A"); !got.Equal(d("999999999999999999.99")) {
		t.Errorf("balance=%s", got)
	}
	if h := f.history(t, "A"); len(h) != 0 {
		t.Errorf("rejected deposit recorded %+v", h)
	}
}

func TestNoDriftAcrossRepeatedOperations(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "0"})
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		if _, err := f.ledger.Deposit(ctx, "A", d("0.10")); err != nil {
			t.Fatal(err)
		}
	}
	if got := f.balance(t, "A"); !got.Equal(d("100.00")) {
		t.Fatalf("balance=%s want exactly 100.00", got)
	}
	for i := 0; i < 1000; i++ {
		if _, err := f.ledger.Withdraw(ctx, "A", d("0.10")); err != nil {
			t.Fatal(err)
		}
	}
	if got := f.balance(t, "A"); !got.IsZero() {
		t.Fatalf("balance=%s want exactly 0", got)
	}
}

func TestTransferSucceeds(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "100.00", "B": "0.00"})

	source, err := f.ledger.Transfer(context.Background(), "A", "B", d("40.00"))
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if !source.Balance.Equal(d("60.00")) {
		t.Errorf("returned source balance=%s want 60.00", source.Balance)
	}
	if got := f.balance(t, "A"); !got.Equal(d("60.00")) {
		t.Errorf("A=%s want 60.00", got)
	}
	if got := f.balance(t, "B"); !got.Equal(d("40.00")) {
		t.Errorf("B=%s want 40.00", got)
	}

	ha, hb := f.history(t, "A"), f.history(t, "B")
	if len(ha) != 1 || len(hb) != 1 {
		t.Fatalf("history lens A=%d B=%d want 1,1", len(ha), len(hb))
	}
	debit, credit := ha[0], hb[0]
	if debit.IsCredit || debit.FromID != "A" || debit.ToID != "B" {
		t.Errorf("unexpected debit leg %+v", debit)
	}
	if !credit.IsCredit || credit.OwnerID != "B" || credit.FromID != "A" || credit.ToID != "B" {
		t.Errorf("unexpected credit leg %+v", credit)
	}
	if !debit.Timestamp.Equal(credit.Timestamp) || !debit.Amount.Equal(credit.Amount) {
		t.Errorf("legs must share amount and timestamp: %+v %+v", debit, credit)
	}
}

func TestTransferToSelf(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "100"})

	if _, err := f.ledger.Transfer(context.Background(), "A", "A", d("10.00")); !errors.Is(err, models.ErrSelfTransfer) {
		t.Fatalf("want ErrSelfTransfer, got %v", err)
	}
	if got := f.balance(t, "A"); !got.Equal(d("100")) {
		t.Errorf("balance=%s want 100", got)
	}
	if h := f.history(t, "A"); len(h) != 0 {
		t.Errorf("no records expected, got %+v", h)
	}
}

func TestTransferToUnknownAccount(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "100"})

	if _, err := f.ledger.Transfer(context.Background(), "A", "nonexistent", d("10.00")); !errors.Is(err, models.ErrAccountNotFound) {
		t.Fatalf("want ErrAccountNotFound, got %v", err)
	}
	if got := f.balance(t, "A"); !got.Equal(d("100")) {
		t.Errorf("balance=%s want 100", got)
	}
}

func TestUnknownAccountsDoNotGrowLockMap(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "100"})
	ctx := context.Background()

	if _, err := f.ledger.Deposit(ctx, "A", d("1")); err != nil {
		t.Fatal(err)
	}
	before := len(f.ledger.muMap)

	for i := 0; i < 100; i++ {
		ghost := fmt.Sprintf("ghost-%d", i)
		if _, err := f.ledger.Transfer(ctx, "A", ghost, d("1.00")); !errors.Is(err, models.ErrAccountNotFound) {
			t.Fatalf("Transfer to %s: want ErrAccountNotFound, got %v", ghost, err)
		}
		if _, err := f.ledger.Transfer(ctx, ghost, "A", d("1.00")); !errors.Is(err, models.ErrAccountNotFound) {
			t.Fatalf("Transfer from %s: want ErrAccountNotFound, got %v", ghost, err)
		}
		if _, err := f.ledger.Deposit(ctx, ghost, d("1.00")); !errors.Is(err, models.ErrAccountNotFound) {
			t.Fatalf("Deposit to %s: want ErrAccountNotFound, got %v", ghost, err)
		}
	}

	if after := len(f.ledger.muMap); after != before {
		t.Errorf("lock map grew from %d to %d", before, after)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "10", "B": "5"})

	if _, err := f.ledger.Transfer(context.Background(), "A", "B", d("10.01")); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if !f.balance(t, "A").Equal(d("10")) || !f.balance(t, "B").Equal(d("5")) {
		t.Error("balances changed after failed transfer")
	}
}

func TestTransferRollsBackWhenSecondLegFails(t *testing.T) {
	store := &faultyStore{LedgerStore: memory.NewMemoryLedgerStore(), failAppendOn: 2}
	f := newFixture(t, store, map[string]string{"A": "100", "B": "0"})

	_, err := f.ledger.Transfer(context.Background(), "A", "B", d("40"))
	if !errors.Is(err, models.ErrPersistence) {
		t.Fatalf("want ErrPersistence, got %v", err)
	}
	if !errors.Is(err, errInjected) {
		t.Errorf("cause should be preserved, got %v", err)
	}

	if got := f.balance(t, "A"); !got.Equal(d("100")) {
		t.Errorf("A=%s want 100 (debit must be rolled back)", got)
	}
	if got := f.balance(t, "B"); !got.IsZero() {
		t.Errorf("B=%s want 0", got)
	}
	if len(f.history(t, "A")) != 0 || len(f.history(t, "B")) != 0 {
		t.Error("no records may survive a failed transfer")
	}
}

func TestFailedCommitLeavesNoTrace(t *testing.T) {
	store := &faultyStore{LedgerStore: memory.NewMemoryLedgerStore(), failCommit: true}
	pub := &recordingPublisher{}
	f := newFixture(t, store, map[string]string{"A": "100", "B": "0"}, WithPublisher(pub, ""))
	ctx := context.Background()

	if _, err := f.ledger.Withdraw(ctx, "A", d("1")); !errors.Is(err, models.ErrPersistence) {
		t.Errorf("Withdraw: want ErrPersistence, got %v", err)
	}
	if _, err := f.ledger.Deposit(ctx, "A", d("1")); !errors.Is(err, models.ErrPersistence) {
		t.Errorf("Deposit: want ErrPersistence, got %v", err)
	}
	if _, err := f.ledger.Transfer(ctx, "A", "B", d("1")); !errors.Is(err, models.ErrPersistence) {
		t.Errorf("Transfer: want ErrPersistence, got %v", err)
	}

	if !f.balance(t, "A").Equal(d("100")) || !f.balance(t, "B").IsZero() {
		t.Error("balances changed after failed commits")
	}
	if len(f.history(t, "A")) != 0 {
		t.Error("records written despite failed commit")
	}
	if len(pub.events) != 0 {
		t.Errorf("no events expected for failed operations, got %d", len(pub.events))
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "0"}, WithClock(clock))
	ctx := context.Background()

	ops := []struct {
		credit bool
		amount string
	}{
		{true, "10.00"}, {true, "5.50"}, {false, "3.25"}, {true, "0.75"}, {false, "13.00"},
	}
	for _, op := range ops {
		var err error
		if op.credit {
			_, err = f.ledger.Deposit(ctx, "A", d(op.amount))
		} else {
			_, err = f.ledger.Withdraw(ctx, "A", d(op.amount))
		}
		if err != nil {
			t.Fatal(err)
		}
	}

	h := f.history(t, "A")
	if len(h) != len(ops) {
		t.Fatalf("history len=%d want %d", len(h), len(ops))
	}
	// most recent first
	for i, rec := range h {
		op := ops[len(ops)-1-i]
		if rec.IsCredit != op.credit || !rec.Amount.Equal(d(op.amount)) {
			t.Errorf("h[%d]=%+v want credit=%v amount=%s", i, rec, op.credit, op.amount)
		}
		if i > 0 && rec.Timestamp.After(h[i-1].Timestamp) {
			t.Errorf("history not ordered by timestamp desc at %d", i)
		}
	}
	if got := f.balance(t, "A"); !got.IsZero() {
		t.Errorf("balance=%s want 0", got)
	}
}

func TestTimestampsNeverGoBackwards(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	times := []time.Time{base.Add(10 * time.Second), base, base.Add(5 * time.Second)}
	i := 0
	clock := func() time.Time {
		ts := times[i%len(times)]
		i++
		return ts
	}
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "0"}, WithClock(clock))
	ctx := context.Background()

	for range times {
		if _, err := f.ledger.Deposit(ctx, "A", d("1")); err != nil {
			t.Fatal(err)
		}
	}
	for _, rec := range f.history(t, "A") {
		if !rec.Timestamp.Equal(base.Add(10 * time.Second)) {
			t.Errorf("timestamp=%v want clamped to %v", rec.Timestamp, base.Add(10*time.Second))
		}
	}
}

func TestPublishesCompletedEvents(t *testing.T) {
	pub := &recordingPublisher{}
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "100", "B": "0"}, WithPublisher(pub, "ledger.events"))
	ctx := context.Background()

	if _, err := f.ledger.Deposit(ctx, "A", d("1")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Transfer(ctx, "A", "B", d("2")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Withdraw(ctx, "B", d("5")); err == nil {
		t.Fatal("expected insufficient funds")
	}

	if len(pub.events) != 2 {
		t.Fatalf("events=%d want 2", len(pub.events))
	}
	if pub.topics[0] != "ledger.events" {
		t.Errorf("topic=%s want ledger.events", pub.topics[0])
	}
	transfer := pub.events[1]
	if transfer.Kind != events.KindTransfer || transfer.FromAccount != "A" || transfer.ToAccount != "B" || !transfer.Amount.Equal(d("2")) {
		t.Errorf("unexpected transfer event %+v", transfer)
	}
	if transfer.EventID == "" || transfer.OccurredAt.IsZero() {
		t.Errorf("event id and time must be set: %+v", transfer)
	}
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "100"}, WithPublisher(pub, ""))

	if _, err := f.ledger.Withdraw(context.Background(), "A", d("10")); err != nil {
		t.Fatalf("publish failure leaked into the operation: %v", err)
	}
	if got := f.balance(t, "A"); !got.Equal(d("90")) {
		t.Errorf("balance=%s want 90", got)
	}
}

func TestConcurrentTransfersConserveMoney(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "1000", "B": "1000", "C": "1000"})
	ctx := context.Background()

	const n = 200
	pairs := [][2]string{{"A", "B"}, {"B", "A"}, {"B", "C"}, {"C", "A"}}

	var wg sync.WaitGroup
	for _, p := range pairs {
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(from, to string) {
				defer wg.Done()
				_, err := f.ledger.Transfer(ctx, from, to, d("1.25"))
				if err != nil && !errors.Is(err, models.ErrInsufficientFunds) {
					t.Errorf("%s->%s: %v", from, to, err)
				}
			}(p[0], p[1])
		}
	}
	wg.Wait()

	total := decimal.Zero
	for _, id := range []string{"A", "B", "C"} {
		bal := f.balance(t, id)
		if bal.IsNegative() {
			t.Errorf("%s has negative balance %s", id, bal)
		}
		total = total.Add(bal)
	}
	if !total.Equal(d("3000")) {
		t.Fatalf("total=%s want 3000", total)
	}

	// every committed transfer left exactly two legs
	legs := 0
	for _, id := range []string{"A", "B", "C"} {
		legs += len(f.history(t, id))
	}
	if legs%2 != 0 {
		t.Errorf("odd number of transfer legs: %d", legs)
	}
}

func TestConcurrentDeposits(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "0"})
	ctx := context.Background()

	const workers = 100
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := f.ledger.Deposit(ctx, "A", d("0.01")); err != nil {
				t.Errorf("deposit: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := f.balance(t, "A"); !got.Equal(d("1.00")) {
		t.Fatalf("balance=%s want 1.00", got)
	}
	if h := f.history(t, "A"); len(h) != workers {
		t.Fatalf("history len=%d want %d", len(h), workers)
	}
}

func TestZeroAmountIsAccepted(t *testing.T) {
	f := newFixture(t, memory.NewMemoryLedgerStore(), map[string]string{"A": "10.00", "B": "0.00"})
	ctx := context.Background()

	if _, err := f.ledger.Deposit(ctx, "A", decimal.Zero); err != nil {
		t.Fatalf("zero deposit: %v", err)
	}
	if _, err := f.ledger.Transfer(ctx, "B", "A", decimal.Zero); err != nil {
		t.Fatalf("zero transfer from empty account: %v", err)
	}

	if got := f.balance(t, "A"); !got.Equal(d("10.00")) {
		t.Errorf("balance=%s want 10.00", got)
	}
	if h := f.history(t, "A"); len(h) != 2 || !h[0].Amount.IsZero() {
		t.Errorf("history=%+v", h)
	}
}
