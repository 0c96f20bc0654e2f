// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relevance

import (
	"strings"
	"unicode"
)

// stopwords excluded from the fingerprint comparison. Short function words
// only; domain terms always count.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "that": true, "the": true,
	"this": true, "to": true, "we": true, "with": true, "which": true,
}

// tokenize lowercases text and splits it into distinct content words.
func tokenize(text string) map[string]bool {
	out := map[string]bool{}
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}) {
		f = strings.Trim(f, "-")
		if len(f) < 2 || stopwords[f] {
			continue
		}
		out[f] = true
	}
	return out
}

// fingerprint is the distinct content-word set of the researcher's corpus
// (titles and abstracts) plus their declared keywords.
type fingerprint map[string]bool

// buildFingerprint precomputes the term set once per run.
func buildFingerprint(keywords []string, titles, abstracts []string) fingerprint {
	fp := fingerprint{}
	for _, kw := range keywords {
		for t := range tokenize(kw) {
			fp[t] = true
		}
	}
	for _, s := range titles {
		for t := range tokenize(s) {
			fp[t] = true
		}
	}
	for _, s := range abstracts {
		for t := range tokenize(s) {
			fp[t] = true
		}
	}
	return fp
}

// textSimilarity is the fraction of the abstract's content words that
// appear in the fingerprint, in [0,1]. An empty abstract scores zero.
func textSimilarity(abstract string, fp fingerprint) float64 {
	words := tokenize(abstract)
	if len(words) == 0 || len(fp) == 0 {
		return 0
	}
	matched := 0
	for w := range words {
		if fp[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(words))
}
