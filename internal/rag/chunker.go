package rag

import (
	"strings"
	"unicode"
)

// splitSentences breaks text at sentence boundaries: a terminator
// (. ! ?) followed by whitespace and an uppercase letter. Runs of
// terminators stay attached to the sentence they close, so ellipses
// and "?!" do not produce empty fragments.
func splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0
	i := 0
	for i < len(runes) {
		if !isTerminator(runes[i]) {
			i++
			continue
		}
		end := i + 1
		for end < len(runes) && isTerminator(runes[end]) {
			end++
		}
		next := end
		for next < len(runes) && unicode.IsSpace(runes[next]) {
			next++
		}
		if next > end && next < len(runes) && unicode.IsUpper(runes[next]) {
			if s := strings.TrimSpace(string(runes[start:end])); s != "" {
				sentences = append(sentences, s)
			}
			start = next
			i = next
			continue
		}
		i = end
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// chunkText accumulates sentences into chunks of roughly chunkSize
// characters. When appending a sentence would overflow and the current
// chunk has grown to a useful length, the chunk is emitted and the
// next one starts pre-seeded with an overlap tail of the previous
// text. Chunks that never reach MinChunkChars are discarded; anything
// that balloons past HardChunkCeiling is flushed immediately.
func chunkText(text string, chunkSize, overlap int) []string {
	sentences := splitSentences(text)
	var chunks []string
	var current []rune

	flushOversized := func() {
		for len(current) > HardChunkCeiling {
			chunks = append(chunks, strings.TrimSpace(string(current[:HardChunkCeiling])))
			current = current[HardChunkCeiling:]
		}
	}

	for _, sentence := range sentences {
		s := []rune(sentence)
		candidate := len(current) + len(s)
		if len(current) > 0 {
			candidate++ // joining space
		}
		if candidate > chunkSize && len(current) >= MinChunkChars {
			chunk := strings.TrimSpace(string(current))
			chunks = append(chunks, chunk)
			current = []rune(overlapTail(current, overlap))
		}
		if len(current) > 0 {
			current = append(current, ' ')
		}
		current = append(current, s...)
		flushOversized()
	}
	if last := strings.TrimSpace(string(current)); last != "" {
		chunks = append(chunks, last)
	}

	kept := chunks[:0]
	for _, c := range chunks {
		if len([]rune(c)) >= MinChunkChars {
			kept = append(kept, c)
		}
	}
	return kept
}

// overlapTail returns the last overlap characters of chunk, advanced
// to the next word boundary when the cut lands mid-word so the tail
// never starts with a partial word.
func overlapTail(chunk []rune, overlap int) string {
	if overlap <= 0 || len(chunk) == 0 {
		return ""
	}
	if overlap >= len(chunk) {
		return strings.TrimSpace(string(chunk))
	}
	tail := chunk[len(chunk)-overlap:]
	if !unicode.IsSpace(chunk[len(chunk)-overlap-1]) && !unicode.IsSpace(tail[0]) {
		i := 0
		for i < len(tail) && !unicode.IsSpace(tail[i]) {
			i++
		}
		for i < len(tail) && unicode.IsSpace(tail[i]) {
			i++
		}
		tail = tail[i:]
	}
	return strings.TrimSpace(string(tail))
}
