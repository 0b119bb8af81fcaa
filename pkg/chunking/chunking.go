// Package chunking segments document text into ordered, overlapping chunks
// with positional and statistical metadata. Five strategies are supported;
// all of them measure sizes and offsets in runes.
package chunking

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

const (
	StrategyFixed     = "fixed"
	StrategyRecursive = "recursive"
	StrategySentence  = "sentence"
	StrategySemantic  = "semantic"
	StrategySliding   = "sliding_window"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// DefaultSeparators is the recursive strategy's separator priority order.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " "}

// Chunk is one segment of a document. A chunk is never empty or
// all-whitespace; whitespace-only spans are dropped without consuming an
// index.
type Chunk struct {
	ChunkID         string `json:"chunk_id"`
	DocumentID      string `json:"document_id"`
	ChunkIndex      int    `json:"chunk_index"`
	Text            string `json:"text"`
	CharCount       int    `json:"char_count"`
	EstimatedTokens int    `json:"estimated_tokens"`
	StartChar       int    `json:"start_char"`
	EndChar         int    `json:"end_char"`

	// SentenceCount is set by the sentence and semantic strategies.
	SentenceCount int `json:"sentence_count,omitempty"`
	// OverlapChars is set by the sliding-window strategy for every chunk,
	// including the first one's zero.
	OverlapChars *int `json:"overlap_chars,omitempty"`
	// SemanticGroup is true on chunks produced by the semantic strategy.
	SemanticGroup bool `json:"semantic_group,omitempty"`
}

// Config selects a strategy and its parameters for one segmentation call.
type Config struct {
	Strategy  string `json:"strategy"`
	ChunkSize int    `json:"chunk_size"`
	// Overlap is characters for fixed/recursive and a sentence count for the
	// sentence strategy. The sliding and semantic strategies ignore it.
	Overlap int `json:"overlap"`
	// Separators applies to the recursive strategy only; nil means
	// DefaultSeparators.
	Separators []string `json:"separators,omitempty"`
	// Stride applies to the sliding-window strategy only; zero derives
	// ChunkSize - Overlap.
	Stride int `json:"stride,omitempty"`
}

// Chunker dispatches segmentation calls. The zero value is not usable;
// construct with NewChunker. A Chunker is safe for concurrent use: every
// call operates purely over its input.
type Chunker struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

func NewChunker() (*Chunker, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("chunking: load sentence tokenizer: %w", err)
	}
	return &Chunker{tokenizer: tokenizer}, nil
}

// Split validates cfg and segments text into chunks owned by docID
// ("unknown" when empty). Empty text yields no chunks and no error.
func (c *Chunker) Split(text, docID string, cfg Config) ([]Chunk, error) {
	if cfg.Strategy == StrategySliding && cfg.Stride == 0 {
		cfg.Stride = cfg.ChunkSize - cfg.Overlap
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	switch cfg.Strategy {
	case StrategyFixed:
		return chunkFixed(text, docID, cfg.ChunkSize, cfg.Overlap), nil
	case StrategyRecursive:
		return chunkRecursive(text, docID, cfg.ChunkSize, cfg.Overlap, cfg.Separators), nil
	case StrategySentence:
		return c.chunkSentences(text, docID, cfg.ChunkSize, cfg.Overlap), nil
	case StrategySemantic:
		return c.chunkSemantic(text, docID, cfg.ChunkSize), nil
	case StrategySliding:
		return chunkSliding(text, docID, cfg.ChunkSize, cfg.Stride), nil
	default:
		return nil, fmt.Errorf("unsupported chunking strategy: %q", cfg.Strategy)
	}
}

// validateConfig rejects parameter combinations that would loop forever or
// exhaust memory. Nothing is clamped.
func validateConfig(cfg Config) error {
	if cfg.ChunkSize <= 0 {
		return fmt.Errorf("chunking: chunk_size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.Overlap < 0 {
		return fmt.Errorf("chunking: overlap must not be negative, got %d", cfg.Overlap)
	}
	switch cfg.Strategy {
	case StrategyFixed:
		if cfg.Overlap >= cfg.ChunkSize {
			return fmt.Errorf("chunking: overlap %d must be smaller than chunk_size %d", cfg.Overlap, cfg.ChunkSize)
		}
	case StrategySliding:
		if cfg.Stride <= 0 {
			return fmt.Errorf("chunking: stride must be positive, got %d", cfg.Stride)
		}
	case StrategyRecursive:
		for _, sep := range cfg.Separators {
			if sep == "" {
				return fmt.Errorf("chunking: separators must not contain empty strings")
			}
		}
	}
	return nil
}

func newChunk(docID string, index int, text string, start, end int) Chunk {
	if docID == "" {
		docID = "unknown"
	}
	n := utf8.RuneCountInString(text)
	return Chunk{
		ChunkID:         uuid.NewString(),
		DocumentID:      docID,
		ChunkIndex:      index,
		Text:            text,
		CharCount:       n,
		EstimatedTokens: n / 4,
		StartChar:       start,
		EndChar:         end,
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
