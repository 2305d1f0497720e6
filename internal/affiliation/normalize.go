// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package affiliation

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// foldPool holds transformer chains; a chain is not safe for concurrent use.
var foldPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKD,
			runes.Remove(runes.In(unicode.Mn)), // strip accents
			runes.Remove(runes.In(unicode.Cf)), // zero-width and format chars
			norm.NFKC,
			width.Fold,
			cases.Fold(),
		)
	},
}

// fold returns s accent-stripped and case-folded.
func fold(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")
	tr := foldPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	foldPool.Put(tr)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

var emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// ExtractEmails returns every email address in s in order of appearance.
func ExtractEmails(s string) []string {
	found := emailRe.FindAllString(s, -1)
	for i, e := range found {
		found[i] = strings.TrimRight(e, ".-")
	}
	return found
}

// token is one whitespace-delimited word of an affiliation segment.
// raw keeps the original text for name extraction; norm is folded with
// edge punctuation and inner dots removed ("Inc." -> "inc", "S.A." -> "sa").
type token struct {
	raw  string
	norm string
}

// tokenize splits a segment into tokens, dropping tokens that normalize to
// nothing except a bare "&".
func tokenize(s string) []token {
	fields := strings.Fields(s)
	toks := make([]token, 0, len(fields))
	for _, f := range fields {
		n := normToken(f)
		if n == "" {
			continue
		}
		toks = append(toks, token{raw: f, norm: n})
	}
	return toks
}

// normToken folds one word and strips punctuation noise. Hyphens inside a
// word and a standalone ampersand survive.
func normToken(w string) string {
	w = fold(w)
	var b strings.Builder
	b.Grow(len(w))
	for _, r := range w {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '&':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}

// normSeq tokenizes a marker phrase into normalized words.
func normSeq(phrase string) []string {
	toks := tokenize(phrase)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.norm
	}
	return out
}

// findSeq returns the first index at which seq occurs in toks as whole
// tokens, or -1.
func findSeq(toks []token, seq []string) int {
	if len(seq) == 0 || len(seq) > len(toks) {
		return -1
	}
outer:
	for i := 0; i+len(seq) <= len(toks); i++ {
		for j, w := range seq {
			if toks[i+j].norm != w {
				continue outer
			}
		}
		return i
	}
	return -1
}

// segment is one institution-sized piece of an affiliation string.
type segment struct {
	raw  string
	toks []token
}

// splitSegments cuts an affiliation (emails already removed) on ";" and ","
// into institution segments. A segment made only of company suffix tokens,
// such as the "Inc." in "Pfizer, Inc.", is joined back onto the segment
// before it.
func splitSegments(s string, suffixes map[string]bool) []segment {
	var segs []segment
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' }) {
		part = strings.TrimSpace(part)
		toks := tokenize(part)
		if len(toks) == 0 {
			continue
		}
		if len(segs) > 0 && allSuffixes(toks, suffixes) {
			prev := &segs[len(segs)-1]
			prev.raw = prev.raw + ", " + part
			prev.toks = append(prev.toks, toks...)
			continue
		}
		segs = append(segs, segment{raw: part, toks: toks})
	}
	return segs
}

func allSuffixes(toks []token, suffixes map[string]bool) bool {
	for _, t := range toks {
		if !suffixes[t.norm] && t.norm != "co" && t.norm != "&" {
			return false
		}
	}
	return true
}
