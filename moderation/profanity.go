package moderation

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var defaultWords = []string{
	"arse", "arsehole", "ass", "asshole", "bastard", "bitch", "bollocks",
	"bullshit", "cock", "crap", "cunt", "dick", "dickhead", "douche",
	"fag", "faggot", "fuck", "fucker", "fucking", "motherfucker", "nigga",
	"nigger", "piss", "prick", "pussy", "retard", "shit", "shitty", "slut",
	"twat", "wanker", "whore",
}

var leet = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',
	'@': 'a',
	'$': 's',
}

// Filter rejects text containing any listed word as a whole token, after
// accent stripping, case folding and leetspeak substitution.
type Filter struct {
	words map[string]struct{}
}

func NewFilter(words ...string) *Filter {
	if len(words) == 0 {
		words = defaultWords
	}
	f := &Filter{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		for _, tok := range tokenize(normalize(w)) {
			f.words[tok] = struct{}{}
		}
	}
	return f
}

func (f *Filter) IsProfane(text string) bool {
	for _, tok := range tokenize(normalize(text)) {
		if _, ok := f.words[tok]; ok {
			return true
		}
		if _, ok := f.words[collapseRuns(tok)]; ok {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = cases.Fold().String(out)
	return strings.Map(func(r rune) rune {
		if m, ok := leet[r]; ok {
			return m
		}
		return r
	}, out)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// collapseRuns squeezes runs of three or more identical letters to one, so
// "fuuuck" matches "fuck" while "ass" is left alone.
func collapseRuns(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i := 0; i < len(rs); {
		j := i
		for j < len(rs) && rs[j] == rs[i] {
			j++
		}
		n := j - i
		if n >= 3 {
			n = 1
		}
		for k := 0; k < n; k++ {
			b.WriteRune(rs[i])
		}
		i = j
	}
	return b.String()
}
