package autosearch

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/OpenChatGit/autosearch/internal/helpers"
)

// followUpWindow is how long after the previous turn a query can still
// be treated as a continuation of it.
const followUpWindow = 120 * time.Second

// indicators are the five boolean signals the decision policy weighs.
type indicators struct {
	question bool
	timeRef  bool
	infoReq  bool
	year     bool
	qmark    bool
}

func (in indicators) count() int {
	n := 0
	for _, b := range []bool{in.question, in.timeRef, in.infoReq, in.year, in.qmark} {
		if b {
			n++
		}
	}
	return n
}

// shouldSearch decides whether a query warrants a web search. It never
// fails; anything unclassifiable simply returns false.
func shouldSearch(query string, history []Turn, enabled bool, now time.Time) bool {
	if !enabled {
		return false
	}
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return false
	}
	if isCasual(trimmed) {
		return false
	}
	if isFollowUp(trimmed, history, now) {
		return false
	}

	in := classify(trimmed)
	length := utf8.RuneCountInString(trimmed)
	switch {
	case in.timeRef || in.year:
		return true
	case in.infoReq && length > 20:
		return true
	case in.infoReq && (in.question || in.qmark):
		return true
	case in.count() >= 2:
		return true
	case length > 30 && in.question:
		return true
	default:
		return false
	}
}

func classify(query string) indicators {
	tokens := helpers.Tokenize(strings.ToLower(query))
	return indicators{
		question: questionWords.hasAny(tokens),
		timeRef:  timeKeywords.hasAny(tokens),
		infoReq:  infoRequestKeywords.hasAny(tokens),
		year:     yearMention.MatchString(query),
		qmark:    strings.Contains(query, "?"),
	}
}

func isCasual(query string) bool {
	lower := strings.ToLower(query)
	for _, p := range casualPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// isFollowUp reports whether the query continues the previous turn: the
// turn is recent and the query either opens with a continuation word or
// is short and vague.
func isFollowUp(query string, history []Turn, now time.Time) bool {
	if len(history) == 0 {
		return false
	}
	last := history[len(history)-1]
	if now.Sub(last.Timestamp) >= followUpWindow {
		return false
	}

	lower := strings.ToLower(query)
	for _, w := range continuationWords {
		if lower == w || strings.HasPrefix(lower, w+" ") {
			return true
		}
	}
	if utf8.RuneCountInString(query) < 25 {
		for _, p := range vaguePatterns {
			if p.MatchString(lower) {
				return true
			}
		}
	}
	return false
}
