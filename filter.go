package treegrid

import (
	"strings"
	"unicode"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Query is a parsed fzf-style filter. Syntax:
//
//	foo     fuzzy subsequence
//	'foo    exact substring
//	^foo    prefix
//	foo$    suffix
//	!term   negation of any of the above
//	a b     all terms must match
//	a | b   either side may match
//
// Matching is case-insensitive unless the term has an uppercase letter.
type Query struct {
	alternatives [][]queryTerm
}

type matchFn func(bool, bool, bool, *util.Chars, []rune, bool, *util.Slab) (algo.Result, *[]int)

type queryTerm struct {
	runes         []rune
	match         matchFn
	negated       bool
	caseSensitive bool
}

func init() {
	algo.Init("default")
}

// slab is scratch space for the matcher; filtering runs on the host's
// event loop.
var slab = util.MakeSlab(100*1024, 2048)

// ParseQuery parses raw into a reusable Query.
func ParseQuery(raw string) Query {
	var q Query
	for _, part := range strings.Split(strings.TrimSpace(raw), " | ") {
		var terms []queryTerm
		for _, tok := range strings.Fields(part) {
			terms = append(terms, parseQueryTerm(tok))
		}
		if len(terms) > 0 {
			q.alternatives = append(q.alternatives, terms)
		}
	}
	return q
}

func parseQueryTerm(tok string) queryTerm {
	t := queryTerm{match: algo.FuzzyMatchV2}

	if len(tok) > 1 && tok[0] == '!' {
		t.negated = true
		tok = tok[1:]
	}

	switch {
	case len(tok) > 1 && tok[0] == '\'':
		t.match, tok = algo.ExactMatchNaive, tok[1:]
	case len(tok) > 1 && tok[0] == '^':
		t.match, tok = algo.PrefixMatch, tok[1:]
	case len(tok) > 1 && tok[len(tok)-1] == '$':
		t.match, tok = algo.SuffixMatch, tok[:len(tok)-1]
	}

	t.caseSensitive = strings.IndexFunc(tok, unicode.IsUpper) >= 0
	if !t.caseSensitive {
		tok = strings.ToLower(tok)
	}
	t.runes = []rune(tok)
	return t
}

// Empty reports whether the query matches everything.
func (q Query) Empty() bool { return len(q.alternatives) == 0 }

// Score matches candidate. Higher scores are better matches.
func (q Query) Score(candidate string) (int, bool) {
	if q.Empty() {
		return 0, true
	}
	chars := util.ToChars([]byte(candidate))

	best, matched := -1, false
	for _, terms := range q.alternatives {
		total, ok := 0, true
		for _, t := range terms {
			s, hit := t.score(&chars)
			if !hit {
				ok = false
				break
			}
			total += s
		}
		if ok && total > best {
			best, matched = total, true
		}
	}
	return best, matched
}

func (t queryTerm) score(chars *util.Chars) (int, bool) {
	res, _ := t.match(t.caseSensitive, false, true, chars, t.runes, false, slab)
	hit := res.Start >= 0
	if t.negated {
		return 0, !hit
	}
	return res.Score, hit
}

// Filter keeps the items whose text matches raw, in their original order.
// An empty query returns items unchanged.
func Filter[T any](items []T, raw string, text func(T) string) []T {
	q := ParseQuery(raw)
	if q.Empty() {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if _, ok := q.Score(text(item)); ok {
			out = append(out, item)
		}
	}
	return out
}
