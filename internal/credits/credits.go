package credits

import (
	"context"

	"go.uber.org/zap"

	"nexcv-backend/internal/metrics"
	"nexcv-backend/internal/store"
)

// Pricing constants: one credit costs 500 of the smallest currency unit.
const (
	PricePerCredit = 500
	Currency       = "inr"
)

// Packages are the purchasable credit bundles.
var Packages = []int64{10, 25, 50, 100}

// Ledger transaction types.
const (
	TypePurchase    = "purchase"
	TypeSpend       = "spend"
	TypeAdminAdd    = "admin_add"
	TypeAdminRevoke = "admin_revoke"
)

// Service meters credit usage. Every balance change is transactional with
// its ledger row: there is no way to spend without an append-only record.
type Service struct {
	users  *store.Users
	logger *zap.Logger
}

func NewService(users *store.Users, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:  users,
		logger: logger.Named("credits"),
	}
}

// Spend deducts cost credits from the user before a metered operation.
// Returns store.ErrInsufficientCredits when the balance cannot cover it.
func (s *Service) Spend(ctx context.Context, userID string, cost int64, reason string) error {
	if err := s.users.AdjustCredits(ctx, userID, -cost, TypeSpend, reason); err != nil {
		return err
	}
	metrics.CreditsSpentTotal.WithLabelValues(reason).Add(float64(cost))
	s.logger.Debug("credits spent",
		zap.String("user_id", userID),
		zap.Int64("cost", cost),
		zap.String("reason", reason),
	)
	return nil
}

// Grant adds credits, e.g. after a completed purchase.
func (s *Service) Grant(ctx context.Context, userID string, amount int64, txType, reason string) error {
	return s.users.AdjustCredits(ctx, userID, amount, txType, reason)
}

// Revoke removes credits without allowing the balance to go negative.
func (s *Service) Revoke(ctx context.Context, userID string, amount int64, reason string) error {
	return s.users.AdjustCredits(ctx, userID, -amount, TypeAdminRevoke, reason)
}

// Balance returns the user's current balance; unknown users have zero.
func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	u, err := s.users.FindByExternalID(ctx, userID)
	if err == store.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return u.CreditBalance, nil
}

// History returns the user's most recent ledger rows.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]store.CreditTransaction, error) {
	txs, err := s.users.CreditHistory(ctx, userID, limit)
	if err == store.ErrNotFound {
		return []store.CreditTransaction{}, nil
	}
	return txs, err
}
