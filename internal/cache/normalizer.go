package cache

import (
	"sort"
	"strings"
	"unicode"
)

// stopWords is the closed set of English function words removed during
// prompt normalization. Tokens are matched after lower-casing.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"that": {}, "the": {}, "to": {}, "was": {}, "will": {}, "with": {},
	"what": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"can": {}, "could": {}, "would": {}, "should": {}, "may": {},
	"might": {}, "must": {}, "shall": {},
	"do": {}, "does": {}, "did": {}, "have": {}, "had": {},
	"am": {}, "been": {}, "being": {},
	"this": {}, "these": {}, "those": {},
	"i": {}, "you": {}, "your": {}, "yours": {},
	"me": {}, "my": {}, "myself": {},
	"we": {}, "our": {}, "ours": {}, "us": {},
	"they": {}, "them": {}, "their": {}, "theirs": {},
	"him": {}, "his": {}, "her": {}, "hers": {}, "she": {},
}

// Normalize canonicalizes free-text prompts into a stable, order-independent
// token signature used for fuzzy cache matching:
//
//	lower-case -> strip punctuation to spaces -> tokenize -> drop empty
//	tokens and stop words -> sort -> rejoin with single spaces.
//
// It is a pure, total function: same input always yields the same output,
// token order, casing and punctuation in the input never affect it, and it
// never fails. If every token is a stop word the result is the empty string;
// callers must treat that as "no signature".
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			// Punctuation and symbols become token boundaries.
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
	}
	sort.Strings(kept)

	return strings.Join(kept, " ")
}

// KeywordSignature returns the first n tokens of the normalized signature,
// the loosest matching tier. It returns "" when normalization leaves no
// tokens.
func KeywordSignature(text string, n int) string {
	normalized := Normalize(text)
	if normalized == "" || n <= 0 {
		return ""
	}
	tokens := strings.Split(normalized, " ")
	if len(tokens) > n {
		tokens = tokens[:n]
	}
	return strings.Join(tokens, " ")
}
