package directory

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	interfaces "github.com/sheikh-saqib/atm-ledger/internal/interfaces"
	"github.com/sheikh-saqib/atm-ledger/internal/logging"
	"github.com/sheikh-saqib/atm-ledger/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	idSpace  = 100000 // ids are 5-digit zero-padded numbers
	idFormat = "%05d"

	minPinLength = 4
	maxPinLength = 8

	defaultAttempts = 32
)

// ErrIDSpaceExhausted is returned when no free id was found within the allowed attempts.
var ErrIDSpaceExhausted = errors.New("directory: could not allocate a free account id")

// Directory resolves, authenticates and creates accounts.
type Directory struct {
	store    interfaces.LedgerStore
	logger   *logging.Logger
	attempts int
	hashCost int
	randID   func() (string, error)

	mu     sync.Mutex
	taken  *bloom.BloomFilter // every id known to be allocated; false positives only cost a lookup
	seeded bool

	dummyOnce sync.Once
	dummyHash []byte
}

type Option func(*Directory)

func WithLogger(logger *logging.Logger) Option {
	return func(d *Directory) { d.logger = logger.Named("directory") }
}

// WithAttempts bounds how many candidate ids Create tries.
func WithAttempts(n int) Option {
	return func(d *Directory) {
		if n > 0 {
			d.attempts = n
		}
	}
}

// WithHashCost sets the bcrypt cost used for new PINs.
func WithHashCost(cost int) Option {
	return func(d *Directory) { d.hashCost = cost }
}

// WithIDSource replaces the random id generator.
func WithIDSource(fn func() (string, error)) Option {
	return func(d *Directory) { d.randID = fn }
}

func New(store interfaces.LedgerStore, opts ...Option) *Directory {
	d := &Directory{
		store:    store,
		logger:   logging.NewNoOpLogger(),
		attempts: defaultAttempts,
		hashCost: bcrypt.DefaultCost,
		randID:   randomID,
		taken:    bloom.NewWithEstimates(idSpace, 0.01),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Authenticate returns the account when id and pin match. Unknown ids and
// wrong PINs both yield ErrAuthenticationFailed after a comparable amount of work.
func (d *Directory) Authenticate(ctx context.Context, id, pin string) (models.Account, error) {
	hash, err := d.store.GetPinHash(ctx, id)
	if errors.Is(err, models.ErrAccountNotFound) {
		_ = bcrypt.CompareHashAndPassword(d.dummy(), []byte(pin))
		return models.Account{}, models.ErrAuthenticationFailed
	}
	if err != nil {
		return models.Account{}, models.WrapPersistence("read credential", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(pin)); err != nil {
		return models.Account{}, models.ErrAuthenticationFailed
	}

	account, err := d.store.GetAccount(ctx, id)
	if errors.Is(err, models.ErrAccountNotFound) {
		return models.Account{}, models.ErrAuthenticationFailed
	}
	if err != nil {
		return models.Account{}, models.WrapPersistence("read account", err)
	}
	return account, nil
}

// Lookup resolves an account without any credential check. It backs the
// engine's counterpart resolution and is not exposed to end users.
func (d *Directory) Lookup(ctx context.Context, id string) (models.Account, error) {
	account, err := d.store.GetAccount(ctx, id)
	if err != nil {
		return models.Account{}, models.WrapPersistence("lookup account", err)
	}
	return account, nil
}

// CreateAs is Create restricted to admin actors.
func (d *Directory) CreateAs(ctx context.Context, actor models.Account, pin string) (models.Account, error) {
	if !actor.IsAdmin {
		return models.Account{}, models.ErrPermissionDenied
	}
	return d.Create(ctx, pin)
}

// ListAs returns every account except the actor's own. Admin only.
func (d *Directory) ListAs(ctx context.Context, actor models.Account) ([]models.Account, error) {
	if !actor.IsAdmin {
		return nil, models.ErrPermissionDenied
	}
	accounts, err := d.store.ListAccounts(ctx)
	if err != nil {
		return nil, models.WrapPersistence("list accounts", err)
	}

	result := make([]models.Account, 0, len(accounts))
	for _, a := range accounts {
		if a.ID != actor.ID {
			result = append(result, a)
		}
	}
	return result, nil
}

// EnsureAdmin creates the admin account id with pin unless it already exists.
// An existing account under id that is not an admin is an error.
func (d *Directory) EnsureAdmin(ctx context.Context, id, pin string) (models.Account, error) {
	existing, err := d.store.GetAccount(ctx, id)
	if err == nil {
		return d.requireAdmin(existing)
	}
	if !errors.Is(err, models.ErrAccountNotFound) {
		return models.Account{}, models.WrapPersistence("lookup admin", err)
	}

	hash, err := d.hashPin(pin)
	if err != nil {
		return models.Account{}, err
	}
	admin := models.Account{ID: id, IsAdmin: true, Balance: decimal.Zero}
	if err := d.store.CreateAccount(ctx, admin, hash); err != nil {
		if errors.Is(err, models.ErrDuplicateAccount) {
			existing, err := d.Lookup(ctx, id)
			if err != nil {
				return models.Account{}, err
			}
			return d.requireAdmin(existing)
		}
		return models.Account{}, models.WrapPersistence("create admin", err)
	}

	d.markTaken(id)
	d.logger.Info("admin account created", zap.String("account_id", id))
	return admin, nil
}

func (d *Directory) requireAdmin(account models.Account) (models.Account, error) {
	if !account.IsAdmin {
		d.logger.Error("configured admin id belongs to a non-admin account", zap.String("account_id", account.ID))
		return models.Account{}, fmt.Errorf("%w: account %s is not an admin", models.ErrPermissionDenied, account.ID)
	}
	return account, nil
}

// Create allocates a non-admin account with a zero balance under a fresh
// 5-digit id. Candidate ids are retried until one is free or the attempt
// budget runs out.
func (d *Directory) Create(ctx context.Context, pin string) (models.Account, error) {
	hash, err := d.hashPin(pin)
	if err != nil {
		return models.Account{}, err
	}

	for attempt := 1; attempt <= d.attempts; attempt++ {
		id, err := d.randID()
		if err != nil {
			return models.Account{}, fmt.Errorf("directory: generate id: %w", err)
		}

		if d.maybeTaken(ctx, id) {
			_, err := d.store.GetAccount(ctx, id)
			if err == nil {
				continue
			}
			if !errors.Is(err, models.ErrAccountNotFound) {
				return models.Account{}, models.WrapPersistence("check id", err)
			}
		}

		account, err := models.NewAccount(id, false, decimal.Zero)
		if err != nil {
			return models.Account{}, err
		}
		err = d.store.CreateAccount(ctx, account, hash)
		if errors.Is(err, models.ErrDuplicateAccount) {
			// allocated concurrently, possibly by another process
			d.markTaken(id)
			continue
		}
		if err != nil {
			return models.Account{}, models.WrapPersistence("create account", err)
		}

		d.markTaken(id)
		d.logger.Info("account created", zap.String("account_id", id), zap.Int("attempt", attempt))
		return account, nil
	}

	d.logger.Error("account id allocation failed", zap.Int("attempts", d.attempts))
	return models.Account{}, ErrIDSpaceExhausted
}

func (d *Directory) hashPin(pin string) ([]byte, error) {
	if err := ValidatePin(pin); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), d.hashCost)
	if err != nil {
		return nil, fmt.Errorf("directory: hash pin: %w", err)
	}
	return hash, nil
}

func (d *Directory) dummy() []byte {
	d.dummyOnce.Do(func() {
		d.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("00000000"), d.hashCost)
	})
	return d.dummyHash
}

// maybeTaken consults the filter, seeding it from the store on first use.
func (d *Directory) maybeTaken(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.seeded {
		accounts, err := d.store.ListAccounts(ctx)
		if err != nil {
			// without a seed the filter can't rule anything out
			d.logger.Warn("seeding id filter failed", zap.Error(err))
			return true
		}
		for _, a := range accounts {
			d.taken.AddString(a.ID)
		}
		d.seeded = true
	}
	return d.taken.TestString(id)
}

func (d *Directory) markTaken(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.taken.AddString(id)
}

// ValidatePin accepts 4 to 8 ASCII digits.
func ValidatePin(pin string) error {
	if len(pin) < minPinLength || len(pin) > maxPinLength {
		return fmt.Errorf("%w: pin must have %d to %d digits", models.ErrInvalidCredential, minPinLength, maxPinLength)
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return fmt.Errorf("%w: pin must be numeric", models.ErrInvalidCredential)
		}
	}
	return nil
}

func randomID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(idSpace))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(idFormat, n.Int64()), nil
}
