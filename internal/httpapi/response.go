package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sheikh-saqib/atm-ledger/internal/logging"
	"github.com/sheikh-saqib/atm-ledger/internal/models"
	"go.uber.org/zap"
)

const timestampLayout = "2006-01-02 15:04:05"

type accountResponse struct {
	ID      string `json:"id"`
	IsAdmin bool   `json:"is_admin"`
	Balance string `json:"balance"`
}

type recordResponse struct {
	ID        string `json:"id"`
	Direction string `json:"direction"`
	From      string `json:"from"`
	To        string `json:"to,omitempty"`
	Amount    string `json:"amount"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func toAccountResponse(a models.Account) accountResponse {
	return accountResponse{ID: a.ID, IsAdmin: a.IsAdmin, Balance: models.FormatAmount(a.Balance)}
}

func toRecordResponse(r models.TransactionRecord) recordResponse {
	return recordResponse{
		ID:        r.ID,
		Direction: r.Direction(),
		From:      r.FromID,
		To:        r.ToID,
		Amount:    models.FormatAmount(r.Amount),
		Timestamp: r.Timestamp.UTC().Format(timestampLayout),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidCredential),
		errors.Is(err, models.ErrSelfTransfer):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, models.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	reqID := logging.RequestID(r.Context())

	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", reqID),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		// storage details stay in the log
		msg = "internal error"
	}
	if status == http.StatusUnauthorized {
		msg = models.ErrAuthenticationFailed.Error()
	}

	writeJSON(w, status, errorResponse{Error: msg, RequestID: reqID})
}
