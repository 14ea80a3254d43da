// Package command maps recognized spoken or typed phrases onto dashboard
// actions. A phrase template is a sequence of literal words with an optional
// leading "(hey)" group and an optional trailing "*" that captures the rest
// of the utterance.
package command

import (
	"fmt"
	"strings"
	"unicode"
)

// Template is a compiled phrase pattern.
type Template struct {
	raw         string
	words       []string // literal words, normalized
	optionalHey bool     // leading "(hey)" group present
	wildcard    bool     // trailing "*" present
}

// ParseTemplate compiles a phrase pattern such as "(hey) synoptic ask *".
func ParseTemplate(pattern string) (Template, error) {
	t := Template{raw: pattern}
	fields := strings.Fields(strings.ToLower(pattern))
	if len(fields) == 0 {
		return t, fmt.Errorf("empty template")
	}
	if fields[0] == "(hey)" {
		t.optionalHey = true
		fields = fields[1:]
	}
	if n := len(fields); n > 0 && fields[n-1] == "*" {
		t.wildcard = true
		fields = fields[:n-1]
	}
	for _, f := range fields {
		if f == "*" || strings.ContainsAny(f, "()") {
			return t, fmt.Errorf("template %q: unsupported token %q", pattern, f)
		}
		word := normalizeWord(f)
		if word == "" {
			continue
		}
		t.words = append(t.words, word)
	}
	if len(t.words) == 0 {
		return t, fmt.Errorf("template %q has no literal words", pattern)
	}
	return t, nil
}

// MustTemplate is ParseTemplate for static tables.
func MustTemplate(pattern string) Template {
	t, err := ParseTemplate(pattern)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the pattern as written.
func (t Template) String() string { return t.raw }

// Wildcard reports whether the template captures trailing text.
func (t Template) Wildcard() bool { return t.wildcard }

// key is the normalized identity used for duplicate detection.
func (t Template) key() string {
	k := strings.Join(t.words, " ")
	if t.optionalHey {
		k = "(hey) " + k
	}
	if t.wildcard {
		k += " *"
	}
	return k
}

// forms lists the literal word sequences the template accepts.
func (t Template) forms() [][]string {
	if !t.optionalHey {
		return [][]string{t.words}
	}
	withHey := append([]string{"hey"}, t.words...)
	return [][]string{withHey, t.words}
}

// match tests an utterance. tokens are the normalized words, original the
// whitespace-split original words (same length) used to build the capture.
func (t Template) match(tokens, original []string) (string, bool) {
	for _, form := range t.forms() {
		if len(tokens) < len(form) {
			continue
		}
		if !hasPrefix(tokens, form) {
			continue
		}
		rest := original[len(form):]
		if !t.wildcard {
			if len(rest) == 0 {
				return "", true
			}
			continue
		}
		if len(rest) == 0 {
			continue
		}
		return strings.Join(rest, " "), true
	}
	return "", false
}

// shadows reports whether t, tried first, would always win over later for
// every utterance later accepts.
func (t Template) shadows(later Template) bool {
	if !t.wildcard {
		if later.wildcard {
			return false
		}
		for _, lf := range later.forms() {
			if !t.hasForm(lf) {
				return false
			}
		}
		return true
	}
	for _, lf := range later.forms() {
		covered := false
		for _, ef := range t.forms() {
			if len(lf) > len(ef) && hasPrefix(lf, ef) {
				covered = true
				break
			}
			if later.wildcard && len(lf) >= len(ef) && hasPrefix(lf, ef) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

func (t Template) hasForm(form []string) bool {
	for _, f := range t.forms() {
		if len(f) == len(form) && hasPrefix(form, f) {
			return true
		}
	}
	return false
}

func hasPrefix(tokens, prefix []string) bool {
	if len(prefix) > len(tokens) {
		return false
	}
	for i, w := range prefix {
		if tokens[i] != w {
			return false
		}
	}
	return true
}

// normalizeWord lower-cases and strips surrounding punctuation.
func normalizeWord(w string) string {
	return strings.TrimFunc(strings.ToLower(w), func(r rune) bool {
		return unicode.IsPunct(r) && r != '\''
	})
}

// tokenize splits an utterance into normalized words and the matching
// original words, dropping tokens that are pure punctuation.
func tokenize(utterance string) (tokens, original []string) {
	for _, f := range strings.Fields(utterance) {
		n := normalizeWord(f)
		if n == "" {
			continue
		}
		tokens = append(tokens, n)
		original = append(original, f)
	}
	return tokens, original
}
