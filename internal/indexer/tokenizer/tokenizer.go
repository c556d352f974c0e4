// Package tokenizer turns crawled documents into index terms.
// Text is NFKC-normalised and lower-cased, segmented into words on Unicode
// word boundaries, stripped of stop-words and stemmed. Title bigrams are
// emitted as well so that two-word queries land on their own page.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"github.com/kljensen/snowball/english"
	"golang.org/x/text/unicode/norm"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/index"
)

// DefaultExtractWords is how many extract words contribute terms.
const DefaultExtractWords = 30

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Tokenizer produces the term list for a document.
type Tokenizer struct {
	// ExtractWords caps how many extract words are turned into terms.
	ExtractWords int
	// Bigrams enables title bigrams.
	Bigrams bool
}

// New returns a Tokenizer with default limits and title bigrams enabled.
func New() *Tokenizer {
	return &Tokenizer{ExtractWords: DefaultExtractWords, Bigrams: true}
}

// Tokenize returns the document with its terms: title unigrams, title
// bigrams, then extract unigrams, each term once in first-seen order.
func (t *Tokenizer) Tokenize(url, title, extract string, score float64) index.TokenizedDocument {
	seen := make(map[string]struct{})
	var tokens []string
	add := func(term string) {
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		tokens = append(tokens, term)
	}

	titleTerms := Terms(title)
	for _, term := range titleTerms {
		add(term)
	}
	if t.Bigrams {
		for i := 0; i+1 < len(titleTerms); i++ {
			add(titleTerms[i] + " " + titleTerms[i+1])
		}
	}
	extractTerms := Terms(extract)
	if t.ExtractWords > 0 && len(extractTerms) > t.ExtractWords {
		extractTerms = extractTerms[:t.ExtractWords]
	}
	for _, term := range extractTerms {
		add(term)
	}

	return index.TokenizedDocument{
		Document: index.Document{Title: title, URL: url, Extract: extract, Score: score},
		Tokens:   tokens,
	}
}

// Terms returns the stemmed, stop-word free words of text in order.
// Repeated words are kept.
func Terms(text string) []string {
	ws := Words(text)
	terms := make([]string, 0, len(ws))
	for _, w := range ws {
		if _, isStop := stopWords[w]; isStop {
			continue
		}
		if term := Stem(w); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

// Words splits normalised text into lower-case words, dropping punctuation
// and whitespace segments.
func Words(text string) []string {
	seg := words.FromString(Normalize(text))
	var out []string
	for seg.Next() {
		w := seg.Value()
		if !isWord(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Normalize applies NFKC normalisation and lower-cases s.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// Stem reduces a lower-case word to its English stem.
func Stem(word string) string {
	if len(word) < 3 {
		return word
	}
	return english.Stem(word, false)
}

func isWord(segment string) bool {
	for _, r := range segment {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
