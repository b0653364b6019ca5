package index

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Element is one non-zero dimension of a field vector. It serialises as a
// two-element JSON array: ["term", weight].
type Element struct {
	Term   string
	Weight float64
}

func (e Element) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Term, e.Weight})
}

func (e *Element) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("vector element must have 2 entries, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Term); err != nil {
		return fmt.Errorf("vector element term: %w", err)
	}
	if err := json.Unmarshal(pair[1], &e.Weight); err != nil {
		return fmt.Errorf("vector element weight: %w", err)
	}
	return nil
}

// Vector is a sparse term-weight vector sorted by term. Weights are stored
// unnormalised and already carry the field and document boost; Magnitude is
// the length of the unboosted weights, so dividing by it keeps the boost.
type Vector struct {
	elements  []Element
	magnitude float64
}

// NewVector takes ownership of elements. boost is the factor already applied
// to every weight; values <= 0 are treated as 1.
func NewVector(elements []Element, boost float64) *Vector {
	sort.Slice(elements, func(i, j int) bool { return elements[i].Term < elements[j].Term })
	if !(boost > 0) || math.IsInf(boost, 0) {
		boost = 1
	}
	var sum float64
	for _, e := range elements {
		sum += e.Weight * e.Weight
	}
	return &Vector{elements: elements, magnitude: math.Sqrt(sum) / boost}
}

// Weight returns the weight of term, or 0 when the term is absent.
func (v *Vector) Weight(term string) float64 {
	i := sort.Search(len(v.elements), func(i int) bool { return v.elements[i].Term >= term })
	if i < len(v.elements) && v.elements[i].Term == term {
		return v.elements[i].Weight
	}
	return 0
}

func (v *Vector) Magnitude() float64 {
	return v.magnitude
}

func (v *Vector) Len() int {
	return len(v.elements)
}

// Elements returns a copy of the vector's dimensions.
func (v *Vector) Elements() []Element {
	out := make([]Element, len(v.elements))
	copy(out, v.elements)
	return out
}
