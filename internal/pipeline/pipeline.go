// Package pipeline runs tokens through an ordered list of named stages.
// Stages are looked up in a Registry when the pipeline is built, so the
// pipeline itself can be persisted as its list of stage names.
package pipeline

import (
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/tokenizer"
)

// Pipeline is immutable once built and safe for concurrent use.
type Pipeline struct {
	stages []Stage
}

// New resolves names against reg in order. An unknown name is a
// configuration error.
func New(reg *Registry, names ...string) (*Pipeline, error) {
	if reg == nil {
		reg = Default
	}
	stages := make([]Stage, 0, len(names))
	for _, name := range names {
		stage, err := reg.Lookup(name)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return &Pipeline{stages: stages}, nil
}

// Empty returns a pipeline that passes tokens through unchanged.
func Empty() *Pipeline {
	return &Pipeline{}
}

// Run applies every stage in order. A stage sees one token at a time and
// its outputs replace that token in the sequence.
func (p *Pipeline) Run(tokens []tokenizer.Token) []tokenizer.Token {
	current := tokens
	for _, stage := range p.stages {
		next := make([]tokenizer.Token, 0, len(current))
		for _, tok := range current {
			next = append(next, stage.Fn(tok)...)
		}
		current = next
	}
	return current
}

// RunString tokenizes text and runs the result through the pipeline.
func (p *Pipeline) RunString(text string) []tokenizer.Token {
	return p.Run(tokenizer.Tokenize(text))
}

// Terms is RunString reduced to token texts.
func (p *Pipeline) Terms(text string) []string {
	tokens := p.RunString(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Text
	}
	return terms
}

// Names returns the stage names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, stage := range p.stages {
		names[i] = stage.Name
	}
	return names
}

func (p *Pipeline) Len() int {
	return len(p.stages)
}
