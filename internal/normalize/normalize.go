// Package normalize applies the final formatting pass to composed text.
// Every rule is a projection, so the whole pass is idempotent:
// Text(Text(s)) == Text(s) for all inputs.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	spaceRuns     = regexp.MustCompile(`[ \t]{2,}`)
	trailingSpace = regexp.MustCompile(`(?m)[ \t]+$`)
	newlineRuns   = regexp.MustCompile(`\n{3,}`)
)

// Text normalizes whitespace and sentence capitalization. It never fails;
// empty input yields an empty string.
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = spaceRuns.ReplaceAllString(s, " ")
	s = trailingSpace.ReplaceAllString(s, "")
	s = newlineRuns.ReplaceAllString(s, "\n\n")
	s = strings.TrimRight(s, " \t\n")
	return capitalizeSentences(s)
}

// capitalizeSentences uppercases the first alphabetic character of the text
// and of every sentence that follows terminal punctuation plus whitespace.
func capitalizeSentences(s string) string {
	runes := []rune(s)
	pending := true
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if pending {
			if unicode.IsLetter(r) {
				runes[i] = unicode.ToUpper(r)
				pending = false
				continue
			}
			if !unicode.IsSpace(r) {
				pending = false
			}
		}
		if isSentenceEnd(r) && nextIsBoundary(runes, i) {
			pending = true
		}
	}
	return string(runes)
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// nextIsBoundary reports whether the rune after position i is whitespace or
// the end of input, which is what makes punctuation sentence-ending.
func nextIsBoundary(runes []rune, i int) bool {
	if i+1 >= len(runes) {
		return true
	}
	return unicode.IsSpace(runes[i+1])
}
