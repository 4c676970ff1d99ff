package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"nexcv-backend/internal/metrics"
)

const (
	maxRequestSize = 2 * 1024 * 1024 // 2MB total JSON payload
	maxMessageSize = 512 * 1024      // 512KB per message content
)

type providerChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type providerChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

type providerChatResponse struct {
	ID      string               `json:"id"`
	Model   string               `json:"model"`
	Choices []providerChatChoice `json:"choices"`
}

type providerErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate sends a single-user-message completion request.
func (c *client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}})
}

// Chat sends the full message list and returns the assistant's text. An
// empty completion is reported as ErrEmptyCompletion, never as "".
func (c *client) Chat(parentCtx context.Context, messages []Message) (string, error) {
	start := time.Now()

	if len(messages) == 0 {
		return "", fmt.Errorf("llmclient: at least one message is required")
	}

	// Per-message size guard
	for i, m := range messages {
		if len(m.Content) > maxMessageSize {
			return "", fmt.Errorf(
				"llmclient: message[%d] content too large (%d bytes, max %d)",
				i, len(m.Content), maxMessageSize,
			)
		}
	}

	c.logger.Debug("llm request starting",
		zap.String("model", c.cfg.Model),
		zap.Int("message_count", len(messages)),
	)

	// Per-request timeout (0 = only use parentCtx)
	var ctx context.Context
	var cancel context.CancelFunc
	if c.cfg.UpstreamTimeout > 0 {
		ctx, cancel = context.WithTimeout(parentCtx, c.cfg.UpstreamTimeout)
	} else {
		ctx, cancel = context.WithCancel(parentCtx)
	}
	defer cancel()

	bodyBytes, err := json.Marshal(providerChatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("llmclient: marshal request: %w", err)
	}

	if len(bodyBytes) > maxRequestSize {
		return "", fmt.Errorf(
			"llmclient: request too large (%d bytes, max %d)",
			len(bodyBytes), maxRequestSize,
		)
	}

	url := c.cfg.BaseURL + "/v1/chat/completions"

	// doOnce builds a fresh *http.Request for each attempt
	doOnce := func(ctx context.Context, body []byte) (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("llmclient: build HTTP request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		httpReq.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(httpReq)
	}

	resp, err := c.doWithRetry(ctx, bodyBytes, doOnce)
	if err != nil {
		c.logger.Error("llm request failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return "", err
	}
	defer resp.Body.Close()

	metrics.AIRequestSeconds.Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)

		// Try to parse structured error
		var perr providerErrorResponse
		if err := json.Unmarshal(body, &perr); err == nil && perr.Error.Message != "" {
			c.logger.Error("llm provider error",
				zap.Int("status", resp.StatusCode),
				zap.String("error_type", perr.Error.Type),
				zap.String("error_message", perr.Error.Message),
			)
			return "", fmt.Errorf("llmclient: upstream %d: %s (%s)",
				resp.StatusCode, perr.Error.Message, perr.Error.Type)
		}

		c.logger.Error("llm upstream error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 200)),
		)
		return "", fmt.Errorf("llmclient: upstream %d: %s",
			resp.StatusCode, truncate(string(body), 200))
	}

	var pResp providerChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&pResp); err != nil {
		return "", fmt.Errorf("llmclient: decode upstream response: %w", err)
	}

	if len(pResp.Choices) == 0 {
		c.logger.Error("llm provider returned no choices",
			zap.String("model", c.cfg.Model),
		)
		return "", ErrEmptyCompletion
	}

	content := strings.TrimSpace(pResp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}

	c.logger.Debug("llm request complete",
		zap.Duration("duration", time.Since(start)),
		zap.Int("response_bytes", len(content)),
	)

	return content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
