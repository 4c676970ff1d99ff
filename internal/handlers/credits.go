package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"nexcv-backend/internal/auth"
	"nexcv-backend/internal/billing"
	"nexcv-backend/internal/credits"
	"nexcv-backend/internal/store"
	"nexcv-backend/pkg/logging"
)

// UserDirectory is the slice of the user store the billing flow needs:
// webhooks can arrive for users the service has never seen.
type UserDirectory interface {
	Ensure(ctx context.Context, externalID, email, name string) (*store.User, error)
}

// CreditsHandler serves balance, pricing, purchase and admin endpoints.
type CreditsHandler struct {
	Credits  *credits.Service
	Billing  billing.Provider
	Users    UserDirectory
	MaxBytes int64
}

func NewCreditsHandler(svc *credits.Service, provider billing.Provider, users UserDirectory) *CreditsHandler {
	return &CreditsHandler{
		Credits:  svc,
		Billing:  provider,
		Users:    users,
		MaxBytes: 1 << 20,
	}
}

// Balance handles GET /api/credits/balance.
func (h *CreditsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	balance, err := h.Credits.Balance(ctx, userID)
	if err != nil {
		logging.L(ctx).Error("fetch balance failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

// History handles GET /api/credits/history.
func (h *CreditsHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	txs, err := h.Credits.History(ctx, userID, queryLimit(r))
	if err != nil {
		logging.L(ctx).Error("fetch credit history failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch credit history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"count":        len(txs),
	})
}

// Pricing handles GET /api/credits/pricing.
func (h *CreditsHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"pricePerCredit": credits.PricePerCredit,
		"currency":       credits.Currency,
		"packages":       credits.Packages,
	})
}

type checkoutRequest struct {
	Credits int64 `json:"credits"`
}

func (p checkoutRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Credits, validation.Min(int64(1)), validation.Max(int64(1000))),
	)
}

// Checkout handles POST /api/credits/checkout: starts a payment session and
// returns the redirect URL.
func (h *CreditsHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	if h.Billing == nil {
		writeError(w, http.StatusServiceUnavailable, "Payments are not configured")
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Credits == 0 {
		req.Credits = credits.Packages[0]
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	url, err := h.Billing.CreateCheckout(ctx, userID, req.Credits)
	if err != nil {
		logging.L(ctx).Error("create checkout failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to start checkout")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Webhook handles POST /webhooks/stripe. It is unauthenticated; trust
// comes from the payment provider's signature over the raw body.
func (h *CreditsHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Billing == nil {
		writeError(w, http.StatusServiceUnavailable, "Payments are not configured")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, h.MaxBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	completed, err := h.Billing.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		logging.L(ctx).Warn("webhook verification failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid webhook")
		return
	}
	if completed == nil {
		// An event type we do not act on; acknowledge so the provider
		// stops retrying.
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	if completed.UserID == "" {
		logging.L(ctx).Warn("checkout completed without user metadata")
		writeError(w, http.StatusBadRequest, "missing user metadata")
		return
	}

	if _, err := h.Users.Ensure(ctx, completed.UserID, completed.Email, ""); err != nil {
		logging.L(ctx).Error("ensure user failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to credit purchase")
		return
	}
	if err := h.Credits.Grant(ctx, completed.UserID, completed.Credits, credits.TypePurchase, "stripe-checkout"); err != nil {
		logging.L(ctx).Error("grant credits failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to credit purchase")
		return
	}

	logging.L(ctx).Info("purchase credited",
		zap.String("user_id", completed.UserID),
		zap.Int64("credits", completed.Credits),
	)
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

type adminAdjustRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (p adminAdjustRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Amount, validation.Required, validation.Min(int64(1))),
		validation.Field(&p.Reason, validation.Required, validation.Length(1, 200)),
	)
}

// AdminAdd handles POST /api/credits/admin/{userId}/add.
func (h *CreditsHandler) AdminAdd(w http.ResponseWriter, r *http.Request) {
	h.adminAdjust(w, r, credits.TypeAdminAdd)
}

// AdminRevoke handles POST /api/credits/admin/{userId}/revoke.
func (h *CreditsHandler) AdminRevoke(w http.ResponseWriter, r *http.Request) {
	h.adminAdjust(w, r, credits.TypeAdminRevoke)
}

func (h *CreditsHandler) adminAdjust(w http.ResponseWriter, r *http.Request, txType string) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userId")

	var req adminAdjustRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.Users.Ensure(ctx, userID, "", ""); err != nil {
		logging.L(ctx).Error("ensure user failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to adjust credits")
		return
	}

	var err error
	if txType == credits.TypeAdminRevoke {
		err = h.Credits.Revoke(ctx, userID, req.Amount, req.Reason)
	} else {
		err = h.Credits.Grant(ctx, userID, req.Amount, txType, req.Reason)
	}
	if err == store.ErrInsufficientCredits {
		writeError(w, http.StatusBadRequest, "Insufficient credits to revoke")
		return
	}
	if err != nil {
		logging.L(ctx).Error("adjust credits failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to adjust credits")
		return
	}

	balance, err := h.Credits.Balance(ctx, userID)
	if err != nil {
		logging.L(ctx).Error("fetch balance failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch balance")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"balance": balance,
	})
}
