package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sheikh-saqib/atm-ledger/internal/models"
	"github.com/shopspring/decimal"
)

type amountRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

type transferRequest struct {
	To     string           `json:"to"`
	Amount *decimal.Decimal `json:"amount"`
}

type createAccountRequest struct {
	Pin string `json:"pin"`
}

// maxBodyBytes bounds every request body; valid payloads are a few dozen bytes.
const maxBodyBytes = 4 << 10

// decode reads a size-limited JSON body, reporting any failure as sentinel.
func decode(w http.ResponseWriter, r *http.Request, v any, sentinel error) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", sentinel)
	}
	return nil
}

func requireAmount(amount *decimal.Decimal) (decimal.Decimal, error) {
	if amount == nil {
		return decimal.Zero, fmt.Errorf("%w: amount is required", models.ErrInvalidAmount)
	}
	return *amount, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		if err := s.health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	account, err := s.ledger.Balance(r.Context(), actorFrom(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.ledger.History(r.Context(), actorFrom(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleSingleLeg(w, r, s.ledger.Withdraw)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleSingleLeg(w, r, s.ledger.Deposit)
}

func (s *Server) handleSingleLeg(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, accountID string, amount decimal.Decimal) (models.Account, error)) {
	var req amountRequest
	if err := decode(w, r, &req, models.ErrInvalidAmount); err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := requireAmount(req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	account, err := op(r.Context(), actorFrom(r.Context()).ID, amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decode(w, r, &req, models.ErrInvalidAmount); err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := requireAmount(req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	account, err := s.ledger.Transfer(r.Context(), actorFrom(r.Context()).ID, req.To, amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decode(w, r, &req, models.ErrInvalidCredential); err != nil {
		s.writeError(w, r, err)
		return
	}

	account, err := s.directory.CreateAs(r.Context(), actorFrom(r.Context()), req.Pin)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.directory.ListAs(r.Context(), actorFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}
