package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sheikh-saqib/atm-ledger/internal/logging"
	"github.com/sheikh-saqib/atm-ledger/internal/models"
	"go.uber.org/zap"
)

type contextKey string

const actorKey contextKey = "actor"

const requestIDHeader = "X-Request-ID"

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, reqID)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), reqID)))
	})
}

// authenticate resolves the caller from HTTP Basic credentials. The response
// never says whether the id or the PIN was wrong.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, pin, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="atm"`)
			s.writeError(w, r, models.ErrAuthenticationFailed)
			return
		}

		actor, err := s.directory.Authenticate(r.Context(), id, pin)
		if err != nil {
			s.logger.Warn("authentication failed",
				zap.String("request_id", logging.RequestID(r.Context())),
				zap.String("error_class", models.ClassifyError(err)),
			)
			w.Header().Set("WWW-Authenticate", `Basic realm="atm"`)
			s.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(ctx context.Context) models.Account {
	actor, _ := ctx.Value(actorKey).(models.Account)
	return actor
}
