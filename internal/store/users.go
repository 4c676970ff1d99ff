package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the account and credit-ledger repository.
type Users struct {
	db *bun.DB
}

func NewUsers(db *bun.DB) *Users {
	return &Users{db: db}
}

// FindByExternalID fetches a user by identity-provider subject.
func (s *Users) FindByExternalID(ctx context.Context, externalID string) (*User, error) {
	u := new(User)
	err := s.db.NewSelect().Model(u).Where("external_id = ?", externalID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// Ensure fetches the user for externalID, creating a placeholder account on
// first sight. Used by the webhook path where the purchase can arrive before
// the user ever hit an authenticated endpoint.
func (s *Users) Ensure(ctx context.Context, externalID, email, name string) (*User, error) {
	u, err := s.FindByExternalID(ctx, externalID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	u = &User{
		ID:         uuid.NewString(),
		ExternalID: externalID,
		Email:      email,
		Name:       name,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(u).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			// Concurrent first sight: the other writer won.
			return s.FindByExternalID(ctx, externalID)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// AdjustCredits applies delta to the user's balance and appends a ledger row
// in one transaction. A negative delta that would overdraw the balance fails
// with ErrInsufficientCredits and changes nothing.
func (s *Users) AdjustCredits(ctx context.Context, externalID string, delta int64, txType, reason string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		u := new(User)
		err := tx.NewSelect().Model(u).Where("external_id = ?", externalID).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}

		if delta < 0 && u.CreditBalance+delta < 0 {
			return ErrInsufficientCredits
		}

		if _, err := tx.NewUpdate().Model((*User)(nil)).
			Set("credit_balance = credit_balance + ?", delta).
			Where("external_id = ?", externalID).
			Exec(ctx); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		entry := &CreditTransaction{
			ID:        uuid.NewString(),
			UserID:    u.ID,
			Type:      txType,
			Amount:    delta,
			Reason:    reason,
			CreatedAt: time.Now().UTC(),
		}
		if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
			return fmt.Errorf("append ledger: %w", err)
		}
		return nil
	})
}

// CreditHistory returns the user's most recent ledger rows.
func (s *Users) CreditHistory(ctx context.Context, externalID string, limit int) ([]CreditTransaction, error) {
	u, err := s.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	var txs []CreditTransaction
	err = s.db.NewSelect().Model(&txs).
		Where("user_id = ?", u.ID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("credit history: %w", err)
	}
	if txs == nil {
		txs = []CreditTransaction{}
	}
	return txs, nil
}
