package pipeline

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

// Kind is the closed set of stage variants a pipeline can hold.
type Kind int

const (
	KindCustom Kind = iota
	KindTrimmer
	KindStopWordFilter
	KindStemmer
)

func (k Kind) String() string {
	switch k {
	case KindTrimmer:
		return "trimmer"
	case KindStopWordFilter:
		return "stopWordFilter"
	case KindStemmer:
		return "stemmer"
	default:
		return "custom"
	}
}

// Func maps one token to zero or more tokens. Returning nil removes the
// token. A Func must be pure: same input, same output.
type Func func(tok tokenizer.Token) []tokenizer.Token

// Stage is a registered, named Func.
type Stage struct {
	Name string
	Kind Kind
	Fn   Func
}

// Registry maps stage names to implementations so a pipeline can be stored
// as a list of names and rebuilt later. Registration normally happens at
// init time; lookups happen when a pipeline is constructed.
type Registry struct {
	mu     sync.RWMutex
	stages map[string]Stage
}

// Default is the process-wide registry.
var Default = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]Stage)}
}

// Register adds a stage under a unique name.
func (r *Registry) Register(name string, kind Kind, fn Func) error {
	if name == "" {
		return apperrors.Configuration("pipeline stage name must not be empty")
	}
	if fn == nil {
		return apperrors.Configuration("pipeline stage %q has no function", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stages[name]; exists {
		return apperrors.Configuration("pipeline stage %q already registered", name)
	}
	r.stages[name] = Stage{Name: name, Kind: kind, Fn: fn}
	return nil
}

// MustRegister is Register for init-time wiring; it panics on error.
func (r *Registry) MustRegister(name string, kind Kind, fn Func) {
	if err := r.Register(name, kind, fn); err != nil {
		panic(err)
	}
}

// Lookup resolves a stage name.
func (r *Registry) Lookup(name string) (Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stage, ok := r.stages[name]
	if !ok {
		return Stage{}, apperrors.Configuration("pipeline stage %q is not registered", name)
	}
	return stage, nil
}

// Names returns every registered name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stages))
	for name := range r.stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds a stage to the Default registry.
func Register(name string, kind Kind, fn Func) error {
	return Default.Register(name, kind, fn)
}
