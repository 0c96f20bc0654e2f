// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relevance

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deaccent strips combining marks so "Muñoz" and "Munoz" compare equal.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// honorifics are dropped before comparison.
var honorifics = map[string]bool{
	"dr": true, "prof": true, "professor": true, "phd": true, "ph.d": true, "ph.d.": true,
}

// NormalizeName lowercases a name, folds diacritics, removes honorifics,
// and collapses whitespace.
func NormalizeName(name string) string {
	folded, _, err := transform.String(deaccent, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)

	var kept []string
	for _, f := range strings.Fields(folded) {
		if honorifics[strings.TrimSuffix(f, ".")] {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// nameParts holds the comparison components of a personal name. Initials
// are keyed by first rune, not first byte, so names like "Øystein" keep
// distinct initials after folding.
type nameParts struct {
	surname  string
	initials map[rune]bool
}

// splitName extracts surname and given-name initials from either the
// "Surname, F. I." form or the "First Middle Surname" form.
func splitName(name string) nameParts {
	name = NormalizeName(name)
	p := nameParts{initials: map[rune]bool{}}

	if comma := strings.Index(name, ","); comma >= 0 {
		p.surname = strings.TrimSpace(name[:comma])
		given := strings.ReplaceAll(name[comma+1:], ".", " ")
		for _, f := range strings.Fields(given) {
			r, _ := utf8.DecodeRuneInString(f)
			p.initials[r] = true
		}
		return p
	}

	fields := strings.Fields(name)
	if len(fields) == 0 {
		return p
	}
	p.surname = fields[len(fields)-1]
	for _, f := range fields[:len(fields)-1] {
		r, _ := utf8.DecodeRuneInString(f)
		p.initials[r] = true
	}
	return p
}

// NameSimilarity scores how likely two author names denote the same person,
// in [0,1]. Surnames gate the comparison: dissimilar surnames score zero
// regardless of the rest. Matching surnames with at least one shared
// given-name initial score high; matching surnames with disjoint initials
// score low (same family, different person).
func NameSimilarity(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	pa, pb := splitName(a), splitName(b)
	surnameSim := ratio(pa.surname, pb.surname)
	if surnameSim < 0.85 {
		return 0
	}

	if len(pa.initials) > 0 && len(pb.initials) > 0 {
		for c := range pa.initials {
			if pb.initials[c] {
				if surnameSim > 0.95 {
					return 0.95
				}
				return 0.90
			}
		}
		return 0.3
	}

	// One side has no given names to compare; fall back to whole-string
	// similarity, floored when the surname is a near-exact match.
	full := ratio(na, nb)
	if surnameSim > 0.9 && full < 0.7 {
		return 0.7
	}
	return full
}

// ratio is a similarity measure on strings in [0,1] based on edit
// distance: 1 - lev(a,b)/max(len).
func ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 || lb == 0 {
		return 0
	}

	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}

	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	return 1 - float64(prev[lb])/float64(maxLen)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
