package autosearch

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/OpenChatGit/autosearch/internal/helpers"
)

// extractSearchQuery distills a conversational question into search
// terms: punctuation is stripped, stopwords removed, and the remaining
// tokens kept when they are a year, a time keyword, capitalized in the
// original text, or longer than three characters. If that leaves
// nothing, shorter non-stopword tokens are kept instead; if still
// nothing, the original query goes out verbatim. The retention order is
// part of the contract and must not be reordered.
func extractSearchQuery(query string, now time.Time) string {
	original := strings.TrimSpace(query)
	if original == "" {
		return original
	}
	tokens := helpers.Tokenize(original)

	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if helpers.IsStopWord(tok) {
			continue
		}
		if yearToken.MatchString(tok) || timeKeywords.has(tok) || isCapitalized(tok) || utf8.RuneCountInString(tok) > 3 {
			kept = append(kept, tok)
		}
	}
	if len(kept) == 0 {
		for _, tok := range tokens {
			if !helpers.IsStopWord(tok) && utf8.RuneCountInString(tok) > 2 {
				kept = append(kept, tok)
			}
		}
	}
	if len(kept) == 0 {
		return original
	}
	return strings.Join(augment(kept, now), " ")
}

// augment appends the current year (and month for version queries) when
// the tokens look time-sensitive and no year is present yet. The
// version-keyword check runs first and only one augmentation applies.
func augment(tokens []string, now time.Time) []string {
	for _, tok := range tokens {
		if yearToken.MatchString(tok) {
			return tokens
		}
	}
	year := strconv.Itoa(now.Year())
	if versionKeywords.hasAny(tokens) {
		return append(tokens, year, now.Month().String())
	}
	if timeSensitiveKeywords.hasAny(tokens) {
		return append(tokens, year)
	}
	return tokens
}

func isCapitalized(token string) bool {
	r, _ := utf8.DecodeRuneInString(token)
	return unicode.IsUpper(r)
}
