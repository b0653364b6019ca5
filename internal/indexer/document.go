package indexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/tokenizer"
)

// Document is a structured record keyed by field name.
type Document map[string]any

// Extractor returns the raw value of one field: a string to tokenize, a
// []string or []any of pre-tokenized terms, or nil when the field is
// absent. Other scalar values are formatted with fmt.
type Extractor func(Document) any

// FieldExtractor reads doc[name]. Nested values can be reached with a
// dotted name ("author.name") when no top-level key matches.
func FieldExtractor(name string) Extractor {
	return func(doc Document) any {
		if v, ok := doc[name]; ok {
			return v
		}
		if !strings.Contains(name, ".") {
			return nil
		}
		var cur any = map[string]any(doc)
		for _, part := range strings.Split(name, ".") {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			if cur, ok = m[part]; !ok {
				return nil
			}
		}
		return cur
	}
}

func extractTokens(v any) ([]tokenizer.Token, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return tokenizer.Tokenize(val), nil
	case []string:
		return tokenizer.FromTerms(val), nil
	case []any:
		terms := make([]string, 0, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("term %d is %T, not a string", i, item)
			}
			terms = append(terms, s)
		}
		return tokenizer.FromTerms(terms), nil
	case fmt.Stringer:
		return tokenizer.Tokenize(val.String()), nil
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return tokenizer.Tokenize(fmt.Sprint(val)), nil
	case map[string]any:
		return nil, fmt.Errorf("object values need an extractor")
	default:
		return tokenizer.Tokenize(fmt.Sprint(val)), nil
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
