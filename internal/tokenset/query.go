package tokenset

import (
	"sort"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

// Wildcard returns the vocabulary terms matched by pattern, where each '*'
// matches any run of characters, possibly empty. Results are sorted.
func (t *TokenSet) Wildcard(pattern string) []string {
	if pattern == "" {
		return nil
	}
	p := collapseStars([]rune(pattern))
	matches := make(map[string]struct{})
	var prefix []rune
	var walk func(id uint32, i int)
	walk = func(id uint32, i int) {
		if i == len(p) {
			if t.nodes[id].final {
				matches[string(prefix)] = struct{}{}
			}
			return
		}
		if p[i] == Wildcard {
			walk(id, i+1)
			for _, e := range t.nodes[id].edges {
				prefix = append(prefix, e.label)
				walk(e.target, i)
				prefix = prefix[:len(prefix)-1]
			}
			return
		}
		if target, ok := t.next(id, p[i]); ok {
			prefix = append(prefix, p[i])
			walk(target, i+1)
			prefix = prefix[:len(prefix)-1]
		}
	}
	walk(0, 0)

	out := make([]string, 0, len(matches))
	for term := range matches {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}

func collapseStars(p []rune) []rune {
	out := p[:0:0]
	for i, r := range p {
		if r == Wildcard && i > 0 && p[i-1] == Wildcard {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Fuzzy returns the vocabulary terms within maxDistance Levenshtein edits
// (insertion, deletion, substitution) of term, in lexicographic order.
//
// The walk carries one edit-distance row per depth. A branch is cut when
// every cell of its row exceeds maxDistance: row minima never decrease with
// depth, so nothing below can come back within range.
//
// An empty term matches nothing. maxDistance must be below the term length;
// larger requests would enumerate most of the vocabulary and are rejected.
func (t *TokenSet) Fuzzy(term string, maxDistance int) ([]string, error) {
	if maxDistance < 0 {
		return nil, apperrors.Validation("edit distance must not be negative, got %d", maxDistance)
	}
	if term == "" {
		return nil, nil
	}
	if maxDistance == 0 {
		if t.Contains(term) {
			return []string{term}, nil
		}
		return nil, nil
	}
	query := []rune(term)
	if maxDistance >= len(query) {
		return nil, apperrors.Validation("edit distance %d must be less than the length %d of %q",
			maxDistance, utf8.RuneCountInString(term), term)
	}

	width := len(query) + 1
	rows := [][]int{make([]int, width)}
	for j := range rows[0] {
		rows[0][j] = j
	}

	var results []string
	var prefix []rune
	var walk func(id uint32, depth int)
	walk = func(id uint32, depth int) {
		if len(rows) <= depth+1 {
			rows = append(rows, make([]int, width))
		}
		prev, row := rows[depth], rows[depth+1]
		for _, e := range t.nodes[id].edges {
			row[0] = prev[0] + 1
			rowMin := row[0]
			for j := 1; j < width; j++ {
				cost := 1
				if query[j-1] == e.label {
					cost = 0
				}
				row[j] = min(prev[j]+1, row[j-1]+1, prev[j-1]+cost)
				if row[j] < rowMin {
					rowMin = row[j]
				}
			}
			prefix = append(prefix, e.label)
			if t.nodes[e.target].final && row[width-1] <= maxDistance {
				results = append(results, string(prefix))
			}
			if rowMin <= maxDistance {
				walk(e.target, depth+1)
			}
			prefix = prefix[:len(prefix)-1]
		}
	}
	walk(0, 0)
	return results, nil
}
