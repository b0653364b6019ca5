package index

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/tokenset"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

// FormatVersion is bumped whenever the serialized layout changes
// incompatibly.
const FormatVersion = 1

// Serialized is the persisted form of an Index. The vocabulary automaton is
// derived data and is rebuilt from VocabularyTerms on load.
type Serialized struct {
	Version         int                  `json:"version"`
	Ref             string               `json:"ref"`
	Fields          []Field              `json:"fields"`
	Pipeline        []string             `json:"pipeline"`
	SearchPipeline  []string             `json:"searchPipeline"`
	Documents       []string             `json:"documents"`
	DocumentBoosts  map[string]float64   `json:"documentBoosts,omitempty"`
	FieldVectors    map[string][]Element `json:"fieldVectors"`
	InvertedIndex   InvertedIndex        `json:"invertedIndex"`
	VocabularyTerms []string             `json:"vocabularyTerms"`
}

// Serialize snapshots idx into its persisted form. The result shares
// posting data with idx and must not be modified.
func (idx *Index) Serialize() *Serialized {
	vectors := make(map[string][]Element, len(idx.vectors))
	for fr, v := range idx.vectors {
		vectors[fr.String()] = v.elements
	}
	return &Serialized{
		Version:         FormatVersion,
		Ref:             idx.ref,
		Fields:          idx.Fields(),
		Pipeline:        idx.PipelineNames(),
		SearchPipeline:  idx.SearchPipelineNames(),
		Documents:       idx.References(),
		DocumentBoosts:  idx.documentBoosts,
		FieldVectors:    vectors,
		InvertedIndex:   idx.inverted,
		VocabularyTerms: idx.tokenSet.Terms(),
	}
}

func (idx *Index) MarshalJSON() ([]byte, error) {
	return json.Marshal(idx.Serialize())
}

// Unmarshal decodes a serialized index and rehydrates it with reg.
func Unmarshal(data []byte, reg *pipeline.Registry) (*Index, error) {
	var s Serialized
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: decoding index: %v", apperrors.ErrCorrupt, err)
	}
	return Load(&s, reg)
}

// Load rebuilds an Index from its serialized form. Stage names are resolved
// against reg; an unknown name is a configuration error.
func Load(s *Serialized, reg *pipeline.Registry) (*Index, error) {
	if s.Version != FormatVersion {
		return nil, apperrors.Configuration("unsupported index format version %d (want %d)", s.Version, FormatVersion)
	}
	if _, err := pipeline.New(reg, s.Pipeline...); err != nil {
		return nil, fmt.Errorf("rehydrating indexing pipeline: %w", err)
	}
	searchPipeline, err := pipeline.New(reg, s.SearchPipeline...)
	if err != nil {
		return nil, fmt.Errorf("rehydrating search pipeline: %w", err)
	}

	fields := make(map[string]float64, len(s.Fields))
	for _, f := range s.Fields {
		if !ValidFieldName(f.Name) {
			return nil, fmt.Errorf("%w: invalid field name %q", apperrors.ErrCorrupt, f.Name)
		}
		fields[f.Name] = f.Boost
	}
	docs := make(map[string]struct{}, len(s.Documents))
	for _, ref := range s.Documents {
		docs[ref] = struct{}{}
	}

	vocabulary := append([]string(nil), s.VocabularyTerms...)
	sort.Strings(vocabulary)
	tokenSet, err := tokenset.FromSorted(vocabulary)
	if err != nil {
		return nil, fmt.Errorf("%w: vocabulary: %v", apperrors.ErrCorrupt, err)
	}

	inverted := s.InvertedIndex
	if inverted == nil {
		inverted = make(InvertedIndex)
	}
	for term, byField := range inverted {
		if !tokenSet.Contains(term) {
			return nil, fmt.Errorf("%w: term %q missing from vocabulary", apperrors.ErrCorrupt, term)
		}
		for field, byRef := range byField {
			if _, ok := fields[field]; !ok {
				return nil, fmt.Errorf("%w: term %q references unknown field %q", apperrors.ErrCorrupt, term, field)
			}
			for ref, p := range byRef {
				if _, ok := docs[ref]; !ok {
					return nil, fmt.Errorf("%w: term %q references unknown document %q", apperrors.ErrCorrupt, term, ref)
				}
				if p == nil || p.TermFrequency < 1 {
					return nil, fmt.Errorf("%w: posting %q/%q/%q has no occurrences", apperrors.ErrCorrupt, term, field, ref)
				}
			}
		}
	}

	vectors := make(map[FieldRef]*Vector, len(s.FieldVectors))
	for key, elements := range s.FieldVectors {
		fr, ok := ParseFieldRef(key)
		if !ok {
			return nil, fmt.Errorf("%w: malformed field vector key %q", apperrors.ErrCorrupt, key)
		}
		fieldBoost, ok := fields[fr.Field]
		if !ok {
			return nil, fmt.Errorf("%w: vector %q references unknown field", apperrors.ErrCorrupt, key)
		}
		if _, ok := docs[fr.Ref]; !ok {
			return nil, fmt.Errorf("%w: vector %q references unknown document", apperrors.ErrCorrupt, key)
		}
		docBoost := 1.0
		if b, ok := s.DocumentBoosts[fr.Ref]; ok {
			docBoost = b
		}
		vectors[fr] = NewVector(append([]Element(nil), elements...), fieldBoost*docBoost)
	}

	return New(Params{
		Ref:            s.Ref,
		Fields:         append([]Field(nil), s.Fields...),
		PipelineNames:  append([]string(nil), s.Pipeline...),
		SearchNames:    append([]string(nil), s.SearchPipeline...),
		SearchPipeline: searchPipeline,
		Documents:      append([]string(nil), s.Documents...),
		DocumentBoosts: s.DocumentBoosts,
		Inverted:       inverted,
		Vectors:        vectors,
		TokenSet:       tokenSet,
	}), nil
}
