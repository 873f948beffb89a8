package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// abbreviations never end a sentence even when followed by whitespace.
var abbreviations = map[string]struct{}{
	"dr.": {}, "mr.": {}, "mrs.": {}, "ms.": {}, "prof.": {}, "sr.": {}, "jr.": {},
	"st.": {}, "vs.": {}, "etc.": {}, "e.g.": {}, "i.e.": {}, "inc.": {}, "ltd.": {},
	"co.": {}, "corp.": {}, "no.": {}, "fig.": {}, "approx.": {}, "dept.": {},
}

// titles may precede an initial, as in "Dr. J. Watson".
var titles = map[string]struct{}{
	"dr.": {}, "mr.": {}, "mrs.": {}, "ms.": {}, "prof.": {},
}

// sentence is a trimmed sentence and its byte range in the source text.
type sentence struct {
	text  string
	start int
	end   int
	runes int
}

// splitSentences breaks text at '.', '!' or '?' followed by whitespace, skipping
// known abbreviations and runs of initials such as "J. R. Tolkien".
func splitSentences(text string) []sentence {
	var out []sentence
	start := 0

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(text) && !isSpace(text[i+1]) {
			continue
		}
		if c == '.' && continuesSentence(text[start:i+1], text[i+1:]) {
			continue
		}
		if s, ok := trimmed(text, start, i+1); ok {
			out = append(out, s)
		}
		start = i + 1
	}

	if s, ok := trimmed(text, start, len(text)); ok {
		out = append(out, s)
	}
	return out
}

func trimmed(text string, start, end int) (sentence, bool) {
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	if start >= end {
		return sentence{}, false
	}
	s := text[start:end]
	return sentence{text: s, start: start, end: end, runes: utf8.RuneCountInString(s)}, true
}

// continuesSentence reports whether the period ending segment belongs to an
// abbreviation. A single-letter initial only counts when the next word is
// capitalised and the initial opens the sentence or follows another initial
// or a title, so "vitamin C. It" still ends a sentence.
func continuesSentence(segment, rest string) bool {
	words := strings.Fields(segment)
	if len(words) == 0 {
		return false
	}
	last := bareWord(words[len(words)-1])
	if _, ok := abbreviations[last]; ok {
		return true
	}
	if !isInitial(last) || !startsUpper(rest) {
		return false
	}
	if len(words) == 1 {
		return true
	}
	prev := bareWord(words[len(words)-2])
	if _, ok := titles[prev]; ok {
		return true
	}
	return isInitial(prev)
}

func bareWord(word string) string {
	return strings.ToLower(strings.TrimLeft(word, "(\"'[{"))
}

func isInitial(word string) bool {
	return len(word) == 2 && word[0] >= 'a' && word[0] <= 'z' && word[1] == '.'
}

func startsUpper(s string) bool {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r' || b == '\f' || b == '\v'
}
