package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Interactions is the AI interaction audit log.
type Interactions struct {
	db *bun.DB
}

func NewInteractions(db *bun.DB) *Interactions {
	return &Interactions{db: db}
}

// Log appends one interaction row.
func (s *Interactions) Log(ctx context.Context, entry *AIInteraction) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()

	if _, err := s.db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("log interaction: %w", err)
	}
	return nil
}

// ListByUser returns a user's most recent interactions.
func (s *Interactions) ListByUser(ctx context.Context, userID string, limit int) ([]AIInteraction, error) {
	return s.list(ctx, "user_id", userID, limit)
}

// ListByResume returns a resume's most recent interactions.
func (s *Interactions) ListByResume(ctx context.Context, resumeID string, limit int) ([]AIInteraction, error) {
	return s.list(ctx, "resume_id", resumeID, limit)
}

func (s *Interactions) list(ctx context.Context, column, value string, limit int) ([]AIInteraction, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []AIInteraction
	err := s.db.NewSelect().Model(&logs).
		Where("? = ?", bun.Ident(column), value).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	if logs == nil {
		logs = []AIInteraction{}
	}
	return logs, nil
}
