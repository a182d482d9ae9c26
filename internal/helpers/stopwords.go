package helpers

import (
	"strings"
	"unicode"
)

// stopWords is the bilingual (English/German) stopword set shared by the
// query optimizer and the RAG term vectors. Contracted question forms
// appear in their punctuation-stripped spelling ("whats", "hows") because
// tokenization removes apostrophes without splitting the word.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(englishStopWords + " " + germanStopWords) {
		stopWords[w] = struct{}{}
	}
}

const englishStopWords = `
a an the and or but if then else when where what which who whom whose why
how is are was were be been being am do does did done will would shall
should can could may might must have has had having i you he she it we
they me him her us them my your his its our their mine yours this that
these those there here not no nor so too very just about above after
again against all any as at before below between both during each few
for from further into more most of off on once only other out over own
same some such than to under until up while with without within whats
hows whos wheres whens whys im ive youre youve hes shes theyre lets
isnt arent wasnt werent hasnt havent dont doesnt didnt wont wouldnt
shouldnt couldnt cant in`

const germanStopWords = `
aber als also am an auf aus bei beim bin bis bist da damit dann das dass
dein deine dem den der des dich die dies diese diesem diesen dieser
dieses dir doch dort du durch ein eine einem einen einer eines er es
euch euer eure für gegen hab habe haben hat hatte hatten hier hin hinter
ich ihm ihn ihnen ihr ihre im ins ist ja jede jedem jeden jeder jedes
kann kannst können könnt mach machen mal man mein meine mich mir mit
muss musst müssen nach nicht nichts noch nun nur ob oder ohne schon sehr
sein seine sich sie sind so soll sollen sollst sollt sonst über um und
uns unser unsere unter viel vom von vor war waren warst warum was weiter
weitere wem wen wenn wer werde werden werdet wie wieder wieso will wir
wird wirst wo wollen wollt würde würden zu zum zur`

// IsStopWord reports whether the token (any casing) belongs to the
// bilingual stopword set.
func IsStopWord(token string) bool {
	_, ok := stopWords[strings.ToLower(token)]
	return ok
}

// StripPunctuation deletes every rune that is not a letter, digit or
// whitespace. Intra-word punctuation joins the surrounding characters
// ("What's" becomes "Whats"), matching how queries are tokenized for
// stopword matching.
func StripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokenize splits s into punctuation-stripped tokens, preserving the
// original casing for callers that inspect capitalization.
func Tokenize(s string) []string {
	return strings.Fields(StripPunctuation(s))
}

// ContentTerms lowercases and tokenizes s and drops stopwords. This is
// the term basis for TF-IDF scoring and similarity vectors.
func ContentTerms(s string) []string {
	tokens := Tokenize(strings.ToLower(s))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		terms = append(terms, tok)
	}
	return terms
}

// TermFrequencies counts occurrences per term for cosine-similarity
// vectors.
func TermFrequencies(terms []string) map[string]int {
	freq := make(map[string]int, len(terms))
	for _, t := range terms {
		freq[t]++
	}
	return freq
}
