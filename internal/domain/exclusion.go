package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	m "unitcov.dev/pkg/unitcov/internal/model"
)

// Matcher is the union of a list of shell-style exclusion globs.
//
// Patterns follow fnmatch rules: `*` and `?` also match `/`, and `[...]` or
// `[!...]` match a character class. Braces and backslashes are ordinary
// characters and an unterminated `[` matches itself. A path matches when any
// pattern matches it in full.
type Matcher struct {
	patterns []string
	globs    []glob.Glob
}

// CompileExclusions compiles patterns into a single Matcher. It fails on the
// first malformed pattern.
func CompileExclusions(patterns []string) (*Matcher, error) {
	matcher := &Matcher{
		patterns: make([]string, 0, len(patterns)),
		globs:    make([]glob.Glob, 0, len(patterns)),
	}

	for i, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			return nil, fmt.Errorf("exclusion pattern #%d is empty", i+1)
		}

		compiled, err := compileFnmatch(filepath.ToSlash(pattern))
		if err != nil {
			return nil, fmt.Errorf("exclusion pattern #%d %q: %w", i+1, pattern, err)
		}

		matcher.patterns = append(matcher.patterns, pattern)
		matcher.globs = append(matcher.globs, compiled)
	}

	return matcher, nil
}

// Matches reports whether path satisfies at least one pattern.
func (mt *Matcher) Matches(path m.Path) bool {
	if mt == nil {
		return false
	}

	candidate := filepath.ToSlash(string(path))
	for _, g := range mt.globs {
		if g.Match(candidate) {
			return true
		}
	}

	return false
}

// Expectation classifies path against the exclusion list.
func (mt *Matcher) Expectation(path m.Path) m.Expectation {
	if mt.Matches(path) {
		return m.ExpectExcluded
	}

	return m.ExpectCovered
}

// Len returns the number of compiled patterns.
func (mt *Matcher) Len() int {
	if mt == nil {
		return 0
	}

	return len(mt.globs)
}

// maxNegatedClassSize bounds the expansion of a negated class that mixes
// ranges with other members.
const maxNegatedClassSize = 4096

var errClassTooLarge = errors.New("negated character class is too large")

// noMatch stands in for a pattern holding a class with no members.
type noMatch struct{}

func (noMatch) Match(string) bool { return false }

// compileFnmatch compiles an fnmatch pattern. Only `*`, `?` and `[...]` are
// special; braces and backslashes are literal and an unterminated `[` matches
// itself. No separators are given, so wildcards cross `/`.
func compileFnmatch(pattern string) (glob.Glob, error) {
	translated, matchable, err := translateFnmatch(pattern)
	if err != nil {
		return nil, err
	}

	if !matchable {
		return noMatch{}, nil
	}

	return glob.Compile(translated)
}

// translateFnmatch rewrites pattern into gobwas syntax. matchable is false
// when a class can never match.
func translateFnmatch(pattern string) (string, bool, error) {
	runes := []rune(pattern)

	var b strings.Builder

	matchable := true

	for i := 0; i < len(runes); {
		r := runes[i]

		switch r {
		case '*', '?':
			b.WriteRune(r)
			i++
		case '[':
			end := classEnd(runes, i+1)
			if end < 0 {
				writeLiteral(&b, r)
				i++

				continue
			}

			class, ok, err := translateClass(runes[i+1 : end])
			if err != nil {
				return "", false, err
			}

			matchable = matchable && ok
			b.WriteString(class)
			i = end + 1
		default:
			writeLiteral(&b, r)
			i++
		}
	}

	return b.String(), matchable, nil
}

// classEnd returns the index of the `]` closing a class whose body starts at
// start, or -1. A leading `!` and a `]` right after it belong to the body.
func classEnd(runes []rune, start int) int {
	j := start
	if j < len(runes) && runes[j] == '!' {
		j++
	}

	if j < len(runes) && runes[j] == ']' {
		j++
	}

	for j < len(runes) && runes[j] != ']' {
		j++
	}

	if j >= len(runes) {
		return -1
	}

	return j
}

type runeRange struct {
	lo, hi rune
}

// translateClass rewrites a class body. A `-` between two members forms a
// range; reversed ranges are dropped.
func translateClass(body []rune) (string, bool, error) {
	negated := len(body) > 0 && body[0] == '!'
	if negated {
		body = body[1:]
	}

	var singles []rune

	var ranges []runeRange

	for i := 0; i < len(body); {
		if i+2 < len(body) && body[i+1] == '-' {
			if body[i] <= body[i+2] {
				ranges = append(ranges, runeRange{lo: body[i], hi: body[i+2]})
			}

			i += 3

			continue
		}

		singles = append(singles, body[i])
		i++
	}

	if len(singles) == 0 && len(ranges) == 0 {
		if negated {
			return "?", true, nil
		}

		return "", false, nil
	}

	if negated {
		class, err := negatedClass(singles, ranges)
		return class, true, err
	}

	return positiveClass(singles, ranges), true, nil
}

// positiveClass emits the members as alternatives: escaped literals and
// single-range classes.
func positiveClass(singles []rune, ranges []runeRange) string {
	var parts []string

	for _, r := range singles {
		parts = append(parts, `\`+string(r))
	}

	for _, rg := range ranges {
		// A leading `!` would read as negation.
		if rg.lo == '!' {
			parts = append(parts, `\!`)
			if rg.hi == '!' {
				continue
			}

			rg.lo++
		}

		parts = append(parts, "["+string(rg.lo)+"-"+string(rg.hi)+"]")
	}

	if len(parts) == 1 {
		return parts[0]
	}

	return "{" + strings.Join(parts, ",") + "}"
}

// negatedClass emits `[!...]`. A lone range stays a range; anything else is
// expanded to a list of characters.
func negatedClass(singles []rune, ranges []runeRange) (string, error) {
	if len(singles) == 0 && len(ranges) == 1 {
		return "[!" + string(ranges[0].lo) + "-" + string(ranges[0].hi) + "]", nil
	}

	members := slices.Clone(singles)

	for _, rg := range ranges {
		if int(rg.hi-rg.lo)+len(members) >= maxNegatedClassSize {
			return "", errClassTooLarge
		}

		for r := rg.lo; r <= rg.hi; r++ {
			members = append(members, r)
		}
	}

	slices.Sort(members)
	members = slices.Compact(members)

	var b strings.Builder

	b.WriteString("[!")

	// A raw `-` first cannot start a range.
	if idx := slices.Index(members, '-'); idx >= 0 {
		b.WriteRune('-')
		members = slices.Delete(members, idx, idx+1)
	}

	for _, r := range members {
		if r == '\\' || r == ']' || r == '!' {
			b.WriteRune('\\')
		}

		b.WriteRune(r)
	}

	b.WriteString("]")

	return b.String(), nil
}

// writeLiteral escapes characters gobwas would otherwise interpret.
func writeLiteral(b *strings.Builder, r rune) {
	if strings.ContainsRune(`\{}[],`, r) {
		b.WriteRune('\\')
	}

	b.WriteRune(r)
}
