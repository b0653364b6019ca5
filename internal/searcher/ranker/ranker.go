// Package ranker orders search results: descending score, ties broken by
// ascending document reference.
package ranker

import (
	"math"
	"sort"
)

// scorePrecision is the number of decimal places scores are rounded to, so
// that floating-point noise cannot reorder documents with equal scores.
const scorePrecision = 1e6

// FieldMatch describes how a matched term occurred in one field.
type FieldMatch struct {
	TermFrequency int      `json:"tf"`
	Positions     [][2]int `json:"positions,omitempty"`
}

// MatchData maps matched vocabulary term -> field -> occurrence details.
type MatchData map[string]map[string]FieldMatch

// Add records that term matched in field.
func (m MatchData) Add(term, field string, fm FieldMatch) {
	fields, ok := m[term]
	if !ok {
		fields = make(map[string]FieldMatch)
		m[term] = fields
	}
	fields[field] = fm
}

// Terms returns the matched terms in sorted order.
func (m MatchData) Terms() []string {
	terms := make([]string, 0, len(m))
	for t := range m {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// Result is one matching document. Source names the index the document
// came from when results of several indexes are merged.
type Result struct {
	Ref       string    `json:"ref"`
	Score     float64   `json:"score"`
	Source    string    `json:"source,omitempty"`
	MatchData MatchData `json:"match_data,omitempty"`
}

// Less reports whether a ranks before b.
func Less(a, b Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Ref != b.Ref {
		return a.Ref < b.Ref
	}
	return a.Source < b.Source
}

// Round rounds a raw score to the precision results are compared at.
func Round(score float64) float64 {
	return math.Round(score*scorePrecision) / scorePrecision
}

// Rank rounds scores, sorts results in place and truncates to limit. A
// limit <= 0 keeps every result.
func Rank(results []Result, limit int) []Result {
	for i := range results {
		results[i].Score = Round(results[i].Score)
	}
	sort.Slice(results, func(i, j int) bool {
		return Less(results[i], results[j])
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
