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

// Resumes is the resume repository.
type Resumes struct {
	db *bun.DB
}

func NewResumes(db *bun.DB) *Resumes {
	return &Resumes{db: db}
}

// Create inserts a new resume, assigning id and timestamps. A slug collision
// is reported as ErrSlugTaken.
func (s *Resumes) Create(ctx context.Context, r *Resume) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	if _, err := s.db.NewInsert().Model(r).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("insert resume: %w", err)
	}
	return nil
}

// FindByID fetches a resume regardless of owner or visibility; access
// control is the caller's concern.
func (s *Resumes) FindByID(ctx context.Context, id string) (*Resume, error) {
	r := new(Resume)
	err := s.db.NewSelect().Model(r).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find resume: %w", err)
	}
	return r, nil
}

// FindPublicBySlug fetches a resume by slug only when it is public.
func (s *Resumes) FindPublicBySlug(ctx context.Context, slug string) (*Resume, error) {
	r := new(Resume)
	err := s.db.NewSelect().Model(r).
		Where("slug = ?", slug).
		Where("visibility = ?", VisibilityPublic).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find public resume: %w", err)
	}
	return r, nil
}

// ListByUser returns the owner's resumes, most recently updated first.
func (s *Resumes) ListByUser(ctx context.Context, userID string) ([]Resume, error) {
	var resumes []Resume
	err := s.db.NewSelect().Model(&resumes).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	if resumes == nil {
		resumes = []Resume{}
	}
	return resumes, nil
}

// SlugExists reports whether any other resume already uses slug.
func (s *Resumes) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	q := s.db.NewSelect().Model((*Resume)(nil)).Where("slug = ?", slug)
	if excludeID != "" {
		q = q.Where("id != ?", excludeID)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return count > 0, nil
}

// Update persists changes to an existing resume, refreshing UpdatedAt.
func (s *Resumes) Update(ctx context.Context, r *Resume) error {
	r.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().Model(r).WherePK().Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("update resume: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a resume by id.
func (s *Resumes) Delete(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*Resume)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete resume: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
