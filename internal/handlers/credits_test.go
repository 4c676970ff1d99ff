package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"nexcv-backend/internal/billing"
	"nexcv-backend/internal/credits"
	"nexcv-backend/internal/store"
)

type fakeBilling struct {
	checkoutURL string
	completed   *billing.CheckoutCompleted
	verifyErr   error
	lastCredits int64
}

func (f *fakeBilling) CreateCheckout(_ context.Context, _ string, creditCount int64) (string, error) {
	f.lastCredits = creditCount
	return f.checkoutURL, nil
}

func (f *fakeBilling) VerifyWebhook(_ []byte, _ string) (*billing.CheckoutCompleted, error) {
	return f.completed, f.verifyErr
}

func newCreditsHandler(t *testing.T, provider billing.Provider) (*CreditsHandler, *store.Users) {
	t.Helper()
	db, err := store.Open("file::memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := store.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	users := store.NewUsers(db)
	svc := credits.NewService(users, zaptest.NewLogger(t))
	return NewCreditsHandler(svc, provider, users), users
}

func TestCheckoutDefaultsToSmallestPackage(t *testing.T) {
	provider := &fakeBilling{checkoutURL: "https://pay.example/session"}
	h, _ := newCreditsHandler(t, provider)

	body, _ := json.Marshal(map[string]any{})
	rr := httptest.NewRecorder()
	h.Checkout(rr, authedRequest(http.MethodPost, "/api/credits/checkout", body, "user-1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if provider.lastCredits != credits.Packages[0] {
		t.Fatalf("expected default package %d, got %d", credits.Packages[0], provider.lastCredits)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("pay.example")) {
		t.Fatalf("expected checkout URL in response: %s", rr.Body.String())
	}
}

func TestCheckoutWithoutProvider(t *testing.T) {
	h, _ := newCreditsHandler(t, nil)

	body, _ := json.Marshal(map[string]any{"credits": 10})
	rr := httptest.NewRecorder()
	h.Checkout(rr, authedRequest(http.MethodPost, "/api/credits/checkout", body, "user-1"))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a billing provider, got %d", rr.Code)
	}
}

func TestWebhookCreditsPurchase(t *testing.T) {
	provider := &fakeBilling{
		completed: &billing.CheckoutCompleted{UserID: "buyer-1", Credits: 25, Email: "b@example.com"},
	}
	h, users := newCreditsHandler(t, provider)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "sig")
	rr := httptest.NewRecorder()
	h.Webhook(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	// The buyer had never hit an authenticated endpoint; the webhook
	// creates the account and credits it.
	u, err := users.FindByExternalID(context.Background(), "buyer-1")
	if err != nil {
		t.Fatalf("find buyer: %v", err)
	}
	if u.CreditBalance != 25 {
		t.Fatalf("expected balance 25, got %d", u.CreditBalance)
	}
	if u.Email != "b@example.com" {
		t.Fatalf("expected buyer email recorded, got %q", u.Email)
	}
}

func TestWebhookIgnoredEvent(t *testing.T) {
	// VerifyWebhook returns (nil, nil) for event types we do not act on;
	// the webhook must still acknowledge with 200.
	h, _ := newCreditsHandler(t, &fakeBilling{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	h.Webhook(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for ignored event, got %d", rr.Code)
	}
}

func TestWebhookBadSignature(t *testing.T) {
	h, _ := newCreditsHandler(t, &fakeBilling{verifyErr: errors.New("bad signature")})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	h.Webhook(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad signature, got %d", rr.Code)
	}
}

func TestAdminAddAndRevoke(t *testing.T) {
	h, _ := newCreditsHandler(t, nil)

	body, _ := json.Marshal(map[string]any{"amount": 10, "reason": "promo"})
	req := withURLParam(authedRequest(http.MethodPost, "/api/credits/admin/target/add", body, "admin"), "userId", "target")
	rr := httptest.NewRecorder()
	h.AdminAdd(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("add: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Balance int64 `json:"balance"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Balance != 10 {
		t.Fatalf("expected balance 10 after add, got %d", resp.Balance)
	}

	body, _ = json.Marshal(map[string]any{"amount": 4, "reason": "correction"})
	req = withURLParam(authedRequest(http.MethodPost, "/api/credits/admin/target/revoke", body, "admin"), "userId", "target")
	rr = httptest.NewRecorder()
	h.AdminRevoke(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("revoke: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Balance != 6 {
		t.Fatalf("expected balance 6 after revoke, got %d", resp.Balance)
	}

	// Revoking past zero is rejected.
	body, _ = json.Marshal(map[string]any{"amount": 100, "reason": "overshoot"})
	req = withURLParam(authedRequest(http.MethodPost, "/api/credits/admin/target/revoke", body, "admin"), "userId", "target")
	rr = httptest.NewRecorder()
	h.AdminRevoke(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for overdraw revoke, got %d", rr.Code)
	}
}

func TestBalanceAndPricing(t *testing.T) {
	h, _ := newCreditsHandler(t, nil)

	rr := httptest.NewRecorder()
	h.Balance(rr, authedRequest(http.MethodGet, "/api/credits/balance", nil, "nobody"))
	if rr.Code != http.StatusOK {
		t.Fatalf("balance: expected 200, got %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte(`"balance":0`)) {
		t.Fatalf("expected zero balance for unknown user: %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.Pricing(rr, httptest.NewRequest(http.MethodGet, "/api/credits/pricing", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("pricing: expected 200, got %d", rr.Code)
	}
	var pricing struct {
		PricePerCredit int     `json:"pricePerCredit"`
		Currency       string  `json:"currency"`
		Packages       []int64 `json:"packages"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &pricing); err != nil {
		t.Fatalf("decode pricing: %v", err)
	}
	if pricing.PricePerCredit != credits.PricePerCredit || pricing.Currency != credits.Currency {
		t.Fatalf("unexpected pricing: %+v", pricing)
	}
	if len(pricing.Packages) != len(credits.Packages) {
		t.Fatalf("unexpected packages: %+v", pricing.Packages)
	}
}
