package credits

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"nexcv-backend/internal/auth"
	"nexcv-backend/internal/store"
	"nexcv-backend/pkg/logging"
)

// Require gates a metered handler: it deducts cost credits from the caller
// before the handler runs and short-circuits with 402 when the balance is
// insufficient. The deduction and its ledger row commit atomically, so a
// handler that runs has always been paid for.
func Require(svc *Service, cost int64, reason string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := auth.UserID(r.Context())
			if userID == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			err := svc.Spend(r.Context(), userID, cost, reason)
			switch {
			case errors.Is(err, store.ErrInsufficientCredits):
				writeError(w, http.StatusPaymentRequired, "not enough credits")
				return
			case errors.Is(err, store.ErrNotFound):
				writeError(w, http.StatusNotFound, "user not found")
				return
			case err != nil:
				logging.L(r.Context()).Error("credit deduction failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to process credits")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
