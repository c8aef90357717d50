package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sheikh-saqib/atm-ledger/internal/logging"
	"github.com/sheikh-saqib/atm-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Ledger is the part of the engine the session surface drives.
type Ledger interface {
	Balance(ctx context.Context, accountID string) (models.Account, error)
	History(ctx context.Context, accountID string) ([]models.TransactionRecord, error)
	Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (models.Account, error)
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (models.Account, error)
	Transfer(ctx context.Context, sourceID, targetID string, amount decimal.Decimal) (models.Account, error)
}

// Directory authenticates callers and serves the admin operations.
type Directory interface {
	Authenticate(ctx context.Context, id, pin string) (models.Account, error)
	CreateAs(ctx context.Context, actor models.Account, pin string) (models.Account, error)
	ListAs(ctx context.Context, actor models.Account) ([]models.Account, error)
}

type Server struct {
	ledger    Ledger
	directory Directory
	logger    *logging.Logger
	metrics   http.Handler
	health    func(ctx context.Context) error
	timeout   time.Duration
}

type Option func(*Server)

func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) { s.logger = logger.Named("http") }
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithHealthCheck makes /health report 503 while check fails.
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(s *Server) { s.health = check }
}

func NewServer(ledger Ledger, directory Directory, opts ...Option) *Server {
	s := &Server{
		ledger:    ledger,
		directory: directory,
		logger:    logging.NewNoOpLogger(),
		timeout:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router wires every route and middleware.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(requestID)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	me := r.PathPrefix("/me").Subrouter()
	me.Use(s.authenticate)
	me.HandleFunc("/balance", s.handleBalance).Methods(http.MethodGet)
	me.HandleFunc("/transactions", s.handleHistory).Methods(http.MethodGet)
	me.HandleFunc("/withdraw", s.handleWithdraw).Methods(http.MethodPost)
	me.HandleFunc("/deposit", s.handleDeposit).Methods(http.MethodPost)
	me.HandleFunc("/transfer", s.handleTransfer).Methods(http.MethodPost)

	admin := r.PathPrefix("/accounts").Subrouter()
	admin.Use(s.authenticate)
	admin.HandleFunc("", s.handleCreateAccount).Methods(http.MethodPost)
	admin.HandleFunc("", s.handleListAccounts).Methods(http.MethodGet)

	return r
}
