package embedding

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kljensen/snowball"
)

const DefaultMaxFeatures = 1000

var termPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// TFIDF is an in-process sparse vectorizer. Fit builds a vocabulary from a
// corpus (lowercased, stopwords dropped, snowball-stemmed English terms);
// GetEmbeddings then produces L2-normalized term-frequency/inverse-document-
// frequency rows over that vocabulary. Terms outside the vocabulary are
// ignored.
type TFIDF struct {
	maxFeatures int
	vocab       map[string]int
	idf         []float64
	fitted      bool
}

func NewTFIDF(maxFeatures int) *TFIDF {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &TFIDF{maxFeatures: maxFeatures}
}

func (t *TFIDF) ModelType() string { return ModelTypeTFIDF }
func (t *TFIDF) ModelName() string { return "tfidf-snowball" }

// VocabSize reports the number of terms kept by Fit.
func (t *TFIDF) VocabSize() int { return len(t.vocab) }

// Fit builds the vocabulary from corpus, keeping the maxFeatures terms with
// the highest document frequency (ties broken alphabetically). Columns are
// assigned in alphabetical term order. IDF is smoothed:
// ln((1+N)/(1+df)) + 1.
func (t *TFIDF) Fit(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("tfidf: empty corpus")
	}

	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, term := range tokenizeTerms(doc) {
			seen[term] = struct{}{}
		}
		for term := range seen {
			df[term]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if df[terms[i]] != df[terms[j]] {
			return df[terms[i]] > df[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > t.maxFeatures {
		terms = terms[:t.maxFeatures]
	}
	sort.Strings(terms)

	t.vocab = make(map[string]int, len(terms))
	t.idf = make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		t.vocab[term] = i
		t.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	t.fitted = true
	return nil
}

func (t *TFIDF) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if !t.fitted {
		return nil, errors.New("tfidf: vectorizer has not been fitted")
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		weights := make(map[int]float64)
		for _, term := range tokenizeTerms(text) {
			if col, ok := t.vocab[term]; ok {
				weights[col] += t.idf[col]
			}
		}

		var norm float64
		for _, w := range weights {
			norm += w * w
		}

		vec := make([]float32, len(t.idf))
		if norm > 0 {
			inv := 1 / math.Sqrt(norm)
			for col, w := range weights {
				vec[col] = float32(w * inv)
			}
		}
		out[i] = vec
	}
	return out, nil
}

// tokenizeTerms lowercases, keeps letter/digit runs of two or more runes,
// drops stopwords, and stems what remains.
func tokenizeTerms(text string) []string {
	words := termPattern.FindAllString(strings.ToLower(text), -1)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if utf8.RuneCountInString(word) < 2 {
			continue
		}
		if stopWords[word] {
			continue
		}
		terms = append(terms, stemWord(word))
	}
	return terms
}

func stemWord(word string) string {
	stem, err := snowball.Stem(word, "english", true)
	if err != nil {
		return word
	}
	return stem
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "been": true, "by": true, "for": true, "from": true, "has": true,
	"he": true, "in": true, "is": true, "it": true, "its": true, "of": true,
	"on": true, "that": true, "the": true, "to": true, "was": true, "will": true,
	"with": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "can": true, "must": true, "shall": true, "this": true,
	"these": true, "they": true, "them": true, "their": true, "there": true,
	"then": true, "than": true, "or": true, "but": true, "not": true, "no": true,
	"nor": true, "so": true, "yet": true, "however": true, "therefore": true,
	"thus": true, "hence": true, "because": true, "since": true, "although": true,
	"though": true, "unless": true, "until": true, "while": true, "where": true,
	"when": true, "who": true, "whom": true, "whose": true, "which": true,
	"what": true, "why": true, "how": true, "if": true, "do": true, "does": true,
	"did": true, "have": true, "had": true, "having": true, "get": true, "got": true,
	"getting": true, "go": true, "going": true, "gone": true, "went": true,
	"come": true, "came": true, "coming": true, "take": true, "took": true,
	"taken": true, "taking": true, "make": true, "made": true, "making": true,
	"see": true, "saw": true, "seen": true, "seeing": true, "know": true,
	"knew": true, "known": true, "knowing": true, "say": true, "said": true,
	"saying": true, "think": true, "thought": true, "thinking": true,
}
