// Package keyword matches fixed vocabularies against free text.
//
// ASCII terms are matched case-insensitively with regular expressions anchored at a
// word boundary. Terms in other scripts have no reliable word boundaries and are
// matched as case-folded substrings.
package keyword

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Mode selects how an ASCII term is bounded.
type Mode int

const (
	// Prefix requires a leading word boundary and accepts any suffix, so
	// "surprise" matches "surprises" while "expected" does not match "unexpected".
	Prefix Mode = iota
	// Whole requires word boundaries on both sides.
	Whole
)

type term struct {
	text  string
	lower string
	re    *regexp.Regexp
}

// Set is an immutable compiled vocabulary.
type Set struct {
	terms []term
}

// Compile builds a Set. Empty and duplicate terms are dropped.
func Compile(words []string, mode Mode) Set {
	seen := make(map[string]struct{}, len(words))
	terms := make([]term, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		lower := strings.ToLower(w)
		if w == "" {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}

		t := term{text: w, lower: lower}
		if isASCII(w) {
			t.re = regexp.MustCompile(pattern(w, mode))
		}
		terms = append(terms, t)
	}
	return Set{terms: terms}
}

func pattern(w string, mode Mode) string {
	parts := strings.Fields(w)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	expr := `(?i)\b` + strings.Join(parts, `\s+`)
	if mode == Whole {
		expr += `\b`
	}
	return expr
}

// Len returns the number of terms in the set.
func (s Set) Len() int {
	return len(s.terms)
}

// Hits counts the distinct terms present in text.
func (s Set) Hits(text string) int {
	return len(s.Matches(text))
}

// Matches returns the terms present in text, in declaration order.
func (s Set) Matches(text string) []string {
	if text == "" || len(s.terms) == 0 {
		return nil
	}
	var lowered string
	var out []string
	for _, t := range s.terms {
		if t.re != nil {
			if t.re.MatchString(text) {
				out = append(out, t.text)
			}
			continue
		}
		if lowered == "" {
			lowered = strings.ToLower(text)
		}
		if strings.Contains(lowered, t.lower) {
			out = append(out, t.text)
		}
	}
	return out
}

// Contains reports whether any term is present in text.
func (s Set) Contains(text string) bool {
	return s.Hits(text) > 0
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
