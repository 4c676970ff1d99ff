package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// FallbackResponse is the fixed string substituted when the provider fails
// or returns empty text. It is a service apology, not a generation, and is
// never cached.
const FallbackResponse = "I'm having trouble generating a response right now. Please try again in a moment."

const chatSystemPrompt = "You are a resume-writing assistant. Give concise, actionable advice " +
	"about resume content, structure and wording. Answer in plain text."

const enhanceSystemPrompt = "You are a resume editor. You receive a resume as JSON and return the " +
	"same JSON structure with improved summary, descriptions and skills. " +
	"Respond with JSON only, no commentary."

// ChatMessages assembles the message list for a chat turn: system prompt,
// prior history, then the new user message.
func ChatMessages(history []Message, userMessage string) []Message {
	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: RoleSystem, Content: chatSystemPrompt})
	msgs = append(msgs, history...)
	msgs = append(msgs, Message{Role: RoleUser, Content: userMessage})
	return msgs
}

// EnhanceMessages assembles the message list for a resume-enhancement call.
func EnhanceMessages(resumeJSON []byte) []Message {
	return []Message{
		{Role: RoleSystem, Content: enhanceSystemPrompt},
		{Role: RoleUser, Content: string(resumeJSON)},
	}
}

var codeFenceRe = regexp.MustCompile("```(?:json)?")

// trailingCommaRe strips commas before a closing brace or bracket, a common
// model output defect.
var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// ExtractJSON pulls the largest JSON object out of a model response,
// tolerating code fences and trailing commas. Returns false when no valid
// object can be recovered.
func ExtractJSON(response string) (json.RawMessage, bool) {
	cleaned := strings.TrimSpace(codeFenceRe.ReplaceAllString(response, ""))
	if cleaned == "" {
		return nil, false
	}

	if json.Valid([]byte(cleaned)) {
		return json.RawMessage(cleaned), true
	}

	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start < 0 || end <= start {
		return nil, false
	}

	candidate := trailingCommaRe.ReplaceAllString(cleaned[start:end+1], "$1")
	if !json.Valid([]byte(candidate)) {
		return nil, false
	}
	return json.RawMessage(candidate), true
}
