package recorder

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	interfaces "github.com/sheikh-saqib/atm-ledger/internal/interfaces"
	"github.com/sheikh-saqib/atm-ledger/internal/models"
)

// Recorder appends history entries and reads them back for display.
type Recorder struct {
	store interfaces.LedgerStore
	now   func() time.Time
}

func New(store interfaces.LedgerStore) *Recorder {
	return &Recorder{
		store: store,
		now:   time.Now,
	}
}

// Record appends one entry inside the caller's transaction, so the entry
// commits or disappears together with the balance writes around it.
// A missing ID or timestamp is filled in.
func (r *Recorder) Record(ctx context.Context, tx interfaces.LedgerTx, entry models.TransactionRecord) error {
	if entry.OwnerID == "" || entry.FromID == "" {
		return fmt.Errorf("recorder: owner and from are required")
	}
	if entry.Amount.IsNegative() {
		return fmt.Errorf("%w: recorded amount %s is negative", models.ErrInvalidAmount, entry.Amount.String())
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now().UTC().Truncate(time.Second)
	}

	return models.WrapPersistence("append record", tx.AppendRecord(ctx, entry))
}

// HistoryFor returns every record owned by accountID, most recent first.
// Records with the same timestamp keep their insertion order.
func (r *Recorder) HistoryFor(ctx context.Context, accountID string) ([]models.TransactionRecord, error) {
	records, err := r.store.GetRecordsByOwner(ctx, accountID)
	if err != nil {
		return nil, models.WrapPersistence("read history", err)
	}

	sorted := make([]models.TransactionRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	return sorted, nil
}
