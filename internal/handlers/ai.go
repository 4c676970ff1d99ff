package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"nexcv-backend/internal/auth"
	"nexcv-backend/internal/cache"
	"nexcv-backend/internal/llm"
	"nexcv-backend/internal/store"
	"nexcv-backend/pkg/logging"
)

// InteractionLog is the AI audit log as seen by the handlers. Implemented by
// *store.Interactions; faked in tests.
type InteractionLog interface {
	Log(ctx context.Context, entry *store.AIInteraction) error
	ListByUser(ctx context.Context, userID string, limit int) ([]store.AIInteraction, error)
	ListByResume(ctx context.Context, resumeID string, limit int) ([]store.AIInteraction, error)
}

// AIHandler serves the metered AI endpoints. The cache sits in front of the
// LLM collaborator: chat responses are cached under all hash variants,
// enhancement results under the content hash of their input document.
// Fallback text produced on LLM failure is never cached.
type AIHandler struct {
	Cache        *cache.Service
	LLM          llm.Client
	Interactions InteractionLog
}

func NewAIHandler(c *cache.Service, client llm.Client, interactions InteractionLog) *AIHandler {
	return &AIHandler{Cache: c, LLM: client, Interactions: interactions}
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	ResumeID       string `json:"resumeId"`
}

func (p chatRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Message, validation.Required, validation.Length(1, 2000)),
	)
}

type chatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
	Cached         bool   `json:"cached"`
	MatchType      string `json:"matchType,omitempty"`
}

// Chat handles POST /api/ai/chat.
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	// Fuzzy probe: exact, then normalized, then keywords.
	var cached string
	if matchType, hit := h.Cache.GetChatResponse(ctx, userID, req.ConversationID, req.Message, &cached); hit {
		writeJSON(w, http.StatusOK, chatResponse{
			Response:       cached,
			ConversationID: req.ConversationID,
			Cached:         true,
			MatchType:      string(matchType),
		})
		return
	}

	var history []llm.Message
	h.Cache.GetConversationHistory(ctx, userID, req.ConversationID, &history)

	answer, err := h.LLM.Chat(ctx, llm.ChatMessages(history, req.Message))
	if err != nil {
		// Degrade to the fixed fallback. It is an apology, not a
		// generation, so it must not be cached under the message's
		// key variants.
		logging.L(ctx).Warn("chat generation failed", zap.Error(err))
		writeJSON(w, http.StatusOK, chatResponse{
			Response:       llm.FallbackResponse,
			ConversationID: req.ConversationID,
		})
		return
	}

	history = append(history,
		llm.Message{Role: llm.RoleUser, Content: req.Message},
		llm.Message{Role: llm.RoleAssistant, Content: answer},
	)
	h.Cache.CacheConversationHistory(ctx, userID, req.ConversationID, history, 0)
	h.Cache.CacheChatResponse(ctx, userID, req.ConversationID, req.Message, answer, 0)

	h.logInteraction(ctx, userID, req.ResumeID, "chat", req.Message, answer)

	writeJSON(w, http.StatusOK, chatResponse{
		Response:       answer,
		ConversationID: req.ConversationID,
	})
}

type enhanceRequest struct {
	Resume   map[string]any `json:"resume"`
	ResumeID string         `json:"resumeId"`
}

type enhanceResponse struct {
	Enhanced any  `json:"enhanced"`
	Cached   bool `json:"cached"`
}

// Enhance handles POST /api/ai/enhance-resume. The result is
// content-addressed: byte-identical input documents share one cache entry.
func (h *AIHandler) Enhance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	var req enhanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Resume == nil {
		writeError(w, http.StatusBadRequest, "Missing resume JSON")
		return
	}

	docHash, err := cache.HashDocument(req.Resume)
	if err != nil {
		writeError(w, http.StatusBadRequest, "resume is not serializable")
		return
	}

	var cachedResult map[string]any
	if h.Cache.GetEnhancedDocument(ctx, docHash, &cachedResult) {
		writeJSON(w, http.StatusOK, enhanceResponse{Enhanced: cachedResult, Cached: true})
		return
	}

	resumeJSON, err := json.Marshal(req.Resume)
	if err != nil {
		writeError(w, http.StatusBadRequest, "resume is not serializable")
		return
	}

	answer, err := h.LLM.Chat(ctx, llm.EnhanceMessages(resumeJSON))
	if err != nil {
		logging.L(ctx).Error("enhance generation failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to enhance resume")
		return
	}

	enhanced, ok := llm.ExtractJSON(answer)
	if !ok {
		// The model answered but not with a usable document; do not
		// cache a broken result.
		logging.L(ctx).Warn("enhance response was not valid JSON")
		writeError(w, http.StatusBadGateway, "AI returned an unusable result")
		return
	}

	h.Cache.CacheEnhancedDocument(ctx, docHash, enhanced, 0)
	h.logInteraction(ctx, userID, req.ResumeID, "enhance", string(resumeJSON), answer)

	writeJSON(w, http.StatusOK, enhanceResponse{Enhanced: enhanced, Cached: false})
}

// GetConversation handles GET /api/ai/conversation/{conversationId}.
func (h *AIHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)
	conversationID := chi.URLParam(r, "conversationId")

	history := []llm.Message{}
	h.Cache.GetConversationHistory(ctx, userID, conversationID, &history)

	writeJSON(w, http.StatusOK, map[string]any{
		"conversationId": conversationID,
		"history":        history,
	})
}

// CacheStats handles GET /api/ai/cache/stats.
func (h *AIHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats := h.Cache.Stats(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"connected": h.Cache.Connected(),
		"stats":     stats,
	})
}

// ClearCache handles DELETE /api/ai/cache. With ?pattern= it clears one key
// family, otherwise the whole cache.
func (h *AIHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var cleared bool
	if pattern := r.URL.Query().Get("pattern"); pattern != "" {
		cleared = h.Cache.InvalidatePattern(ctx, pattern)
	} else {
		cleared = h.Cache.FlushAll(ctx)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"cleared": cleared})
}

type normalizationRequest struct {
	Prompt string `json:"prompt"`
}

type hashPreview struct {
	Type string `json:"type"`
	Hash string `json:"hash"`
}

// TestNormalization handles POST /api/ai/test-normalization: a debugging
// endpoint exposing how a prompt normalizes and which hash variants it
// produces.
func (h *AIHandler) TestNormalization(w http.ResponseWriter, r *http.Request) {
	var req normalizationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	variants := cache.Variants("test", "test", req.Prompt)
	previews := make([]hashPreview, 0, len(variants))
	for _, v := range variants {
		previews = append(previews, hashPreview{
			Type: string(v.Type),
			Hash: v.Hash[:8] + "...",
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"original":       req.Prompt,
		"normalized":     cache.Normalize(req.Prompt),
		"hashVariations": previews,
	})
}

// UserLogs handles GET /api/ai/admin/logs/user/{userId}.
func (h *AIHandler) UserLogs(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	logs, err := h.Interactions.ListByUser(r.Context(), userID, queryLimit(r))
	if err != nil {
		logging.L(r.Context()).Error("fetch AI logs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch AI logs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"logs":    logs,
		"count":   len(logs),
		"userId":  userID,
	})
}

// ResumeLogs handles GET /api/ai/admin/logs/resume/{resumeId}.
func (h *AIHandler) ResumeLogs(w http.ResponseWriter, r *http.Request) {
	resumeID := chi.URLParam(r, "resumeId")
	logs, err := h.Interactions.ListByResume(r.Context(), resumeID, queryLimit(r))
	if err != nil {
		logging.L(r.Context()).Error("fetch AI logs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch AI logs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"logs":     logs,
		"count":    len(logs),
		"resumeId": resumeID,
	})
}

// logInteraction appends an audit row; failures must not break the request.
func (h *AIHandler) logInteraction(ctx context.Context, userID, resumeID, section, prompt, response string) {
	if h.Interactions == nil {
		return
	}
	err := h.Interactions.Log(ctx, &store.AIInteraction{
		UserID:   userID,
		ResumeID: resumeID,
		Section:  section,
		Prompt:   prompt,
		Response: response,
	})
	if err != nil {
		logging.L(ctx).Warn("failed to log AI interaction", zap.Error(err))
	}
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return 50
	}
	return limit
}
