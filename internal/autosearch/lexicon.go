package autosearch

import (
	"regexp"
	"strings"
)

// The classifier and optimizer share these bilingual (English/German)
// keyword sets. Matching is always done on lowercased tokens.

var questionWords = newWordSet(
	// English, including punctuation-stripped contractions.
	"what", "who", "where", "when", "why", "how", "which", "whose", "whom",
	"whats", "whos", "wheres", "whens", "whys", "hows",
	// German.
	"was", "wer", "wo", "wann", "warum", "wieso", "weshalb", "wie",
	"welche", "welcher", "welches", "wessen", "wohin", "woher",
)

var timeKeywords = newWordSet(
	"today", "now", "current", "currently", "latest", "newest", "recent",
	"recently", "yesterday", "tomorrow", "tonight",
	"heute", "jetzt", "aktuell", "aktuelle", "aktuellen", "aktuelles",
	"neueste", "neuesten", "momentan", "derzeit", "gestern", "morgen",
)

var infoRequestKeywords = newWordSet(
	"explain", "describe", "define", "definition", "information", "info",
	"details", "meaning", "difference", "compare", "comparison", "overview",
	"guide", "tutorial", "example", "examples", "list",
	"erkläre", "erklär", "erklärung", "beschreibe", "definiere",
	"bedeutung", "unterschied", "vergleich", "übersicht", "anleitung",
	"beispiel", "beispiele", "zeige", "nenne", "liste",
)

// versionKeywords trigger the year+month augmentation: queries about
// releases go stale fastest.
var versionKeywords = newWordSet(
	"version", "release", "released", "latest", "newest", "update",
	"updated", "changelog", "announcement",
	"veröffentlicht", "veröffentlichung", "erschienen", "neueste", "neuesten",
)

// timeSensitiveKeywords trigger the year-only augmentation.
var timeSensitiveKeywords = newWordSet(
	"news", "today", "now", "current", "currently", "live", "breaking",
	"price", "prices", "weather",
	"nachrichten", "heute", "jetzt", "aktuell", "aktuelle", "aktuellen",
	"wetter", "preis", "preise",
)

// continuationWords open a follow-up to the previous turn when they
// start the query.
var continuationWords = []string{
	"and", "also", "but", "or", "then", "so", "what about", "how about",
	"und", "auch", "aber", "oder", "dann", "was ist mit", "wie wäre es mit",
}

// casualPatterns match greetings, thanks and farewells that never need
// a web search. Applied to the trimmed, lowercased query.
var casualPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(hi|hello|hey|yo|howdy|hallo|moin|servus|huhu|na)\b[\s,!.]*(how are you|hows it going|how's it going|whats up|what's up|wie gehts|wie geht's|wie geht es dir|alles klar)?[\s?!.]*$`),
	regexp.MustCompile(`^(good morning|good afternoon|good evening|good night|guten morgen|guten tag|guten abend|gute nacht|mahlzeit)[\s!.?]*$`),
	regexp.MustCompile(`^(how are you|hows it going|how's it going|whats up|what's up|wie gehts|wie geht's|wie geht es dir|wie geht es ihnen|alles klar bei dir)[\s?!.]*$`),
	regexp.MustCompile(`^(thanks|thank you|thanks a lot|thx|ty|danke|vielen dank|danke schön|dankeschön|dankesehr)\b[\s!.?]*$`),
	regexp.MustCompile(`^(bye|goodbye|see you|see ya|cya|tschüss|tschüs|ciao|bis bald|bis später|bis dann|auf wiedersehen|mach's gut|machs gut)\b[\s!.?]*$`),
	regexp.MustCompile(`^(ok|okay|cool|nice|great|awesome|perfect|got it|understood|super|toll|prima|passt|verstanden|alles klar)[\s!.?]*$`),
}

// vaguePatterns, together with the short-length bound, mark a query as
// a continuation of the previous answer rather than a new topic.
var vaguePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(more|tell me more|go on|continue|really|seriously|why|why not|how so|what else|anything else|again)[\s?!.]*$`),
	regexp.MustCompile(`^(mehr|erzähl mehr|weiter|wirklich|echt|warum|wieso|warum nicht|noch was|sonst noch was|nochmal)[\s?!.]*$`),
	regexp.MustCompile(`\b(it|that|this|them|those|das|es|davon|darüber|dazu)[\s?!.]*$`),
}

// yearMention matches the four-digit years the classifier treats as a
// search signal.
var yearMention = regexp.MustCompile(`\b(202[0-9]|2030)\b`)

// yearToken matches any plausible year token for the optimizer's
// retention and augmentation checks.
var yearToken = regexp.MustCompile(`^(19|20)\d{2}$`)

type wordSet map[string]struct{}

func newWordSet(words ...string) wordSet {
	set := make(wordSet, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func (s wordSet) has(token string) bool {
	_, ok := s[strings.ToLower(token)]
	return ok
}

func (s wordSet) hasAny(tokens []string) bool {
	for _, tok := range tokens {
		if s.has(tok) {
			return true
		}
	}
	return false
}
