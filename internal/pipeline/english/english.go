// Package english provides the English trimmer, stop-word filter and stemmer
// stages. Importing the package registers them in pipeline.Default.
package english

import (
	"strings"
	"unicode"

	snowballeng "github.com/kljensen/snowball/english"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/pipeline"
)

const (
	TrimmerName        = "trimmer"
	StopWordFilterName = "stopWordFilter"
	StemmerName        = "stemmer"
)

// IndexStages is the default indexing pipeline.
var IndexStages = []string{TrimmerName, StopWordFilterName, StemmerName}

// SearchStages is the default search pipeline. Query terms skip the
// stop-word filter so an explicit stop word still reaches the vocabulary
// lookup, where it simply finds nothing.
var SearchStages = []string{StemmerName}

var stopWords = map[string]struct{}{
	"a": {}, "able": {}, "about": {}, "across": {}, "after": {}, "all": {},
	"almost": {}, "also": {}, "am": {}, "among": {}, "an": {}, "and": {},
	"any": {}, "are": {}, "as": {}, "at": {}, "be": {}, "because": {},
	"been": {}, "but": {}, "by": {}, "can": {}, "cannot": {}, "could": {},
	"dear": {}, "did": {}, "do": {}, "does": {}, "either": {}, "else": {},
	"ever": {}, "every": {}, "for": {}, "from": {}, "get": {}, "got": {},
	"had": {}, "has": {}, "have": {}, "he": {}, "her": {}, "hers": {},
	"him": {}, "his": {}, "how": {}, "however": {}, "i": {}, "if": {},
	"in": {}, "into": {}, "is": {}, "it": {}, "its": {}, "just": {},
	"least": {}, "let": {}, "like": {}, "likely": {}, "may": {}, "me": {},
	"might": {}, "most": {}, "must": {}, "my": {}, "neither": {}, "no": {},
	"nor": {}, "not": {}, "of": {}, "off": {}, "often": {}, "on": {},
	"only": {}, "or": {}, "other": {}, "our": {}, "own": {}, "rather": {},
	"said": {}, "say": {}, "says": {}, "she": {}, "should": {}, "since": {},
	"so": {}, "some": {}, "than": {}, "that": {}, "the": {}, "their": {},
	"them": {}, "then": {}, "there": {}, "these": {}, "they": {}, "this": {},
	"tis": {}, "to": {}, "too": {}, "twas": {}, "us": {}, "wants": {},
	"was": {}, "we": {}, "were": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "while": {}, "who": {}, "whom": {}, "why": {}, "will": {},
	"with": {}, "would": {}, "yet": {}, "you": {}, "your": {},
}

func init() {
	if err := Register(pipeline.Default); err != nil {
		panic(err)
	}
}

// Register adds the three English stages to reg.
func Register(reg *pipeline.Registry) error {
	if err := reg.Register(TrimmerName, pipeline.KindTrimmer, Trimmer); err != nil {
		return err
	}
	if err := reg.Register(StopWordFilterName, pipeline.KindStopWordFilter, StopWordFilter); err != nil {
		return err
	}
	return reg.Register(StemmerName, pipeline.KindStemmer, Stemmer)
}

// Trimmer strips leading and trailing runes that are neither letters nor
// digits. A token left empty is removed.
func Trimmer(tok tokenizer.Token) []tokenizer.Token {
	trimmed := strings.TrimFunc(tok.Text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if trimmed == "" {
		return nil
	}
	if trimmed == tok.Text {
		return []tokenizer.Token{tok}
	}
	return []tokenizer.Token{tok.Update(func(string) string { return trimmed })}
}

// StopWordFilter removes common English words.
func StopWordFilter(tok tokenizer.Token) []tokenizer.Token {
	if IsStopWord(tok.Text) {
		return nil
	}
	return []tokenizer.Token{tok}
}

// Stemmer reduces a token to its Porter2 stem.
func Stemmer(tok tokenizer.Token) []tokenizer.Token {
	stemmed := snowballeng.Stem(tok.Text, false)
	if stemmed == "" {
		return nil
	}
	return []tokenizer.Token{tok.Update(func(string) string { return stemmed })}
}

func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}
