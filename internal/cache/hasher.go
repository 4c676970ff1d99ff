package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// VariantType tags which matching tier produced a hash or a hit.
type VariantType string

const (
	VariantExact      VariantType = "exact"
	VariantNormalized VariantType = "normalized"
	VariantKeywords   VariantType = "keywords"

	// keywordTokenCount is how many leading normalized tokens form the
	// keyword signature.
	keywordTokenCount = 3
)

// Variant is one derived cache-key fragment for a message.
type Variant struct {
	Type VariantType `json:"type"`
	Hash string      `json:"hash"`
}

// digest returns the SHA-256 hex digest of identity_context_payload.
// Identity and context always prefix the payload so an empty normalized
// signature still yields a caller-scoped key.
func digest(identity, context, payload string) string {
	sum := sha256.Sum256([]byte(identity + "_" + context + "_" + payload))
	return hex.EncodeToString(sum[:])
}

// Variants derives the cache-key fragments for a message, most specific
// first: exact (raw text), normalized (order/case/punctuation-insensitive
// signature) and keywords (first tokens of the signature). The keywords
// variant is omitted when normalization leaves no tokens.
//
// Identical inputs always produce identical digests. Two texts that
// normalize to the same signature share the normalized and keywords digests
// while keeping distinct exact digests; that is the fuzzy-match mechanism.
func Variants(identity, context, text string) []Variant {
	variants := []Variant{
		{Type: VariantExact, Hash: digest(identity, context, text)},
		{Type: VariantNormalized, Hash: digest(identity, context, Normalize(text))},
	}

	if kw := KeywordSignature(text, keywordTokenCount); kw != "" {
		variants = append(variants, Variant{
			Type: VariantKeywords,
			Hash: digest(identity, context, kw),
		})
	}

	return variants
}

// HashDocument returns a stable SHA-256 hex digest over the canonical JSON
// serialization of doc, used as a content-addressed key for "enhanced output
// for exactly this input document". encoding/json sorts map keys, so
// logically equal documents hash identically.
func HashDocument(doc any) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
