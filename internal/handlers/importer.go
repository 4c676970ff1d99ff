package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"nexcv-backend/internal/importer"
	"nexcv-backend/pkg/logging"
)

// ProfileFetcher is the enrichment-API collaborator. Implemented by
// *importer.Client; faked in tests.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, profileURL string) (*importer.Profile, map[string]json.RawMessage, error)
}

// ImportHandler converts an external professional profile into an unsaved
// resume document. Persisting it is the client's decision, via the normal
// resume create endpoint.
type ImportHandler struct {
	Fetcher ProfileFetcher
}

func NewImportHandler(fetcher ProfileFetcher) *ImportHandler {
	return &ImportHandler{Fetcher: fetcher}
}

type importRequest struct {
	URL string `json:"url"`
}

func (p importRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.URL, validation.Required, validation.By(validProfileURL)),
	)
}

func validProfileURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	if !strings.HasPrefix(u.Scheme, "http") {
		return errors.New("must be an http(s) URL")
	}
	return nil
}

// Import handles POST /api/import/profile.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Fetcher == nil {
		writeError(w, http.StatusServiceUnavailable, "Profile import is not configured")
		return
	}

	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, raw, err := h.Fetcher.FetchProfile(ctx, req.URL)
	if errors.Is(err, importer.ErrEmptyProfile) {
		writeError(w, http.StatusNotFound, "No profile data found for this URL")
		return
	}
	if err != nil {
		logging.L(ctx).Error("profile fetch failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to fetch profile")
		return
	}

	data := importer.ToResumeData(profile, raw)
	writeJSON(w, http.StatusOK, map[string]any{
		"data":   data,
		"source": req.URL,
	})
}
