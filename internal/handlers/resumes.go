package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"nexcv-backend/internal/auth"
	"nexcv-backend/internal/cache"
	"nexcv-backend/internal/store"
	"nexcv-backend/pkg/logging"
)

const slugConflictMsg = "A resume with this title/slug already exists. Please use a different title."

// ResumeStore is the backing document store as seen by the resume handlers.
// Implemented by *store.Resumes; faked in tests.
type ResumeStore interface {
	Create(ctx context.Context, r *store.Resume) error
	FindByID(ctx context.Context, id string) (*store.Resume, error)
	FindPublicBySlug(ctx context.Context, slug string) (*store.Resume, error)
	ListByUser(ctx context.Context, userID string) ([]store.Resume, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	Update(ctx context.Context, r *store.Resume) error
	Delete(ctx context.Context, id string) error
}

// ResumeHandler serves resume CRUD with the cache as a read/write-through
// layer in front of the document store. Invalidation is synchronous with and
// ordered immediately after each committed mutation; a failed invalidation
// is a soft failure bounded by the entry's own TTL.
type ResumeHandler struct {
	Store ResumeStore
	Cache *cache.Service
}

func NewResumeHandler(s ResumeStore, c *cache.Service) *ResumeHandler {
	return &ResumeHandler{Store: s, Cache: c}
}

type resumePayload struct {
	Title      string          `json:"title"`
	Data       json.RawMessage `json:"data"`
	Template   string          `json:"template"`
	Visibility string          `json:"visibility"`
}

func (p resumePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.Template, validation.Required),
		validation.Field(&p.Visibility, validation.In(store.VisibilityPublic, store.VisibilityPrivate)),
	)
}

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// slugify derives a URL slug from a title.
func slugify(title string) string {
	slug := nonSlugRe.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

// Create handles POST /api/resumes.
func (h *ResumeHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	var payload resumePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if payload.Visibility == "" {
		payload.Visibility = store.VisibilityPrivate
	}
	if err := payload.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	slug := slugify(payload.Title)
	if slug == "" {
		writeError(w, http.StatusBadRequest, "title must contain letters or digits")
		return
	}

	if taken, err := h.Store.SlugExists(ctx, slug, ""); err != nil {
		logging.L(ctx).Error("slug check failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create resume")
		return
	} else if taken {
		writeError(w, http.StatusBadRequest, slugConflictMsg)
		return
	}

	resume := &store.Resume{
		UserID:     userID,
		Title:      payload.Title,
		Slug:       slug,
		Data:       payload.Data,
		Template:   payload.Template,
		Visibility: payload.Visibility,
	}
	if err := h.Store.Create(ctx, resume); err != nil {
		if errors.Is(err, store.ErrSlugTaken) {
			writeError(w, http.StatusBadRequest, slugConflictMsg)
			return
		}
		logging.L(ctx).Error("create resume failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create resume")
		return
	}

	// The new resume is the freshest possible value for its own key; the
	// owner's cached list is now stale.
	plan := cache.Plan{}
	plan.Write(cache.ResumeKey(resume.ID), resume, cache.EntityTTL)
	plan.Clear(cache.UserResumesKey(userID).String())
	if resume.Visibility == store.VisibilityPublic {
		plan.Write(cache.PublicResumeKey(resume.Slug), resume, cache.EntityTTL)
	}
	h.Cache.Apply(ctx, plan)

	writeJSON(w, http.StatusCreated, resume)
}

// List handles GET /api/resumes.
func (h *ResumeHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	var resumes []store.Resume
	if h.Cache.GetEntity(ctx, cache.UserResumesKey(userID), &resumes) {
		writeJSON(w, http.StatusOK, resumes)
		return
	}

	resumes, err := h.Store.ListByUser(ctx, userID)
	if err != nil {
		logging.L(ctx).Error("list resumes failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch resumes")
		return
	}
	h.Cache.CacheEntity(ctx, cache.UserResumesKey(userID), resumes, cache.EntityTTL)

	writeJSON(w, http.StatusOK, resumes)
}

// GetByID handles GET /api/resumes/{id}.
func (h *ResumeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)
	id := chi.URLParam(r, "id")

	resume := new(store.Resume)
	if !h.Cache.GetEntity(ctx, cache.ResumeKey(id), resume) {
		var err error
		resume, err = h.Store.FindByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Resume not found")
			return
		}
		if err != nil {
			logging.L(ctx).Error("fetch resume failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to fetch resume")
			return
		}
		h.Cache.CacheEntity(ctx, cache.ResumeKey(id), resume, cache.EntityTTL)
	}

	if resume.Visibility == store.VisibilityPrivate && resume.UserID != userID {
		writeError(w, http.StatusForbidden, "This resume is private and you don't have permission to view it")
		return
	}

	writeJSON(w, http.StatusOK, resume)
}

type publicSlugParam struct {
	Slug string
}

func (p publicSlugParam) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Slug, validation.Required, validation.Length(1, 200)),
	)
}

// GetPublic handles GET /api/resumes/public/{slug}.
func (h *ResumeHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	if err := (publicSlugParam{Slug: slug}).Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slug")
		return
	}

	resume := new(store.Resume)
	if h.Cache.GetEntity(ctx, cache.PublicResumeKey(slug), resume) {
		writeJSON(w, http.StatusOK, resume)
		return
	}

	resume, err := h.Store.FindPublicBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Public resume not found")
		return
	}
	if err != nil {
		logging.L(ctx).Error("fetch public resume failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch public resume")
		return
	}
	h.Cache.CacheEntity(ctx, cache.PublicResumeKey(slug), resume, cache.EntityTTL)

	writeJSON(w, http.StatusOK, resume)
}

// Update handles PUT /api/resumes/{id}.
func (h *ResumeHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)
	id := chi.URLParam(r, "id")

	var payload resumePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	existing, err := h.Store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Resume not found")
		return
	}
	if err != nil {
		logging.L(ctx).Error("fetch resume failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update resume")
		return
	}
	if existing.UserID != userID {
		writeError(w, http.StatusForbidden, "You don't have permission to update this resume")
		return
	}

	// The slug only moves when the title changes.
	slug := existing.Slug
	if payload.Title != "" && payload.Title != existing.Title {
		slug = slugify(payload.Title)
		if slug == "" {
			writeError(w, http.StatusBadRequest, "title must contain letters or digits")
			return
		}
		if taken, err := h.Store.SlugExists(ctx, slug, id); err != nil {
			logging.L(ctx).Error("slug check failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to update resume")
			return
		} else if taken {
			writeError(w, http.StatusBadRequest, slugConflictMsg)
			return
		}
		existing.Title = payload.Title
	}
	existing.Slug = slug

	if payload.Data != nil {
		existing.Data = payload.Data
	}
	if payload.Template != "" {
		existing.Template = payload.Template
	}
	if payload.Visibility != "" {
		if payload.Visibility != store.VisibilityPublic && payload.Visibility != store.VisibilityPrivate {
			writeError(w, http.StatusBadRequest, "invalid visibility")
			return
		}
		existing.Visibility = payload.Visibility
	}

	if err := h.Store.Update(ctx, existing); err != nil {
		if errors.Is(err, store.ErrSlugTaken) {
			writeError(w, http.StatusBadRequest, slugConflictMsg)
			return
		}
		logging.L(ctx).Error("update resume failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update resume")
		return
	}

	// Refresh the id-keyed entry, drop the stale list, and keep the
	// public slug entry in step with visibility.
	plan := cache.Plan{}
	plan.Write(cache.ResumeKey(id), existing, cache.EntityTTL)
	plan.Clear(cache.UserResumesKey(userID).String())
	if existing.Visibility == store.VisibilityPublic {
		plan.Write(cache.PublicResumeKey(existing.Slug), existing, cache.EntityTTL)
	} else {
		plan.Clear(cache.PublicResumeKey(existing.Slug).String())
	}
	h.Cache.Apply(ctx, plan)

	writeJSON(w, http.StatusOK, existing)
}

// Delete handles DELETE /api/resumes/{id}.
func (h *ResumeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)
	id := chi.URLParam(r, "id")

	existing, err := h.Store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Resume not found")
		return
	}
	if err != nil {
		logging.L(ctx).Error("fetch resume failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete resume")
		return
	}
	if existing.UserID != userID {
		writeError(w, http.StatusForbidden, "You don't have permission to delete this resume")
		return
	}

	if err := h.Store.Delete(ctx, id); err != nil {
		logging.L(ctx).Error("delete resume failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete resume")
		return
	}

	plan := cache.Plan{}
	plan.Clear(cache.ResumeKey(id).String())
	plan.Clear(cache.UserResumesKey(userID).String())
	if existing.Visibility == store.VisibilityPublic {
		plan.Clear(cache.PublicResumeKey(existing.Slug).String())
	}
	h.Cache.Apply(ctx, plan)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
