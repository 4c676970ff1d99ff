package cache

import "strings"

// Key is a namespaced cache key. Writers and readers go through the same
// constructors below so key formats cannot drift between call sites.
type Key string

func (k Key) String() string { return string(k) }

// Namespace returns the prefix before the first colon ("conv", "chat",
// "resume", ...). Used for logging and per-namespace metrics.
func (k Key) Namespace() string {
	s := string(k)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}

// ConversationKey addresses a user's conversation history.
func ConversationKey(userID, conversationID string) Key {
	return Key("conv:" + userID + ":" + conversationID)
}

// EnhanceKey addresses an AI-enhanced result by the content hash of its
// input document.
func EnhanceKey(docHash string) Key {
	return Key("enhance:" + docHash)
}

// ChatKey addresses a chat response by one of its variant hashes.
func ChatKey(variantHash string) Key {
	return Key("chat:" + variantHash)
}

// ResumeKey addresses a single resume by id.
func ResumeKey(id string) Key {
	return Key("resume:" + id)
}

// UserResumesKey addresses the cached resume list of one owner.
func UserResumesKey(userID string) Key {
	return Key("resumes:user:" + userID)
}

// PublicResumeKey addresses a publicly visible resume by slug.
func PublicResumeKey(slug string) Key {
	return Key("resume:public:" + slug)
}
