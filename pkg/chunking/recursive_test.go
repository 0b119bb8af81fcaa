package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecursive_ShortTextSingleChunk(t *testing.T) {
	c := newTestChunker(t)

	chunks, err := c.Split("Hello world", "doc-1", Config{Strategy: StrategyRecursive, ChunkSize: 500})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "Hello world", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, 11, chunks[0].EndChar)
	assert.Equal(t, 11, chunks[0].CharCount)
	assert.Equal(t, 2, chunks[0].EstimatedTokens)
}

func TestRecursive_ParagraphPriority(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph text.\n\nThird one."
	c := newTestChunker(t)

	chunks, err := c.Split(text, "doc-1", Config{Strategy: StrategyRecursive, ChunkSize: 25})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, []string{
		"First paragraph here.\n\n",
		"Second paragraph text.\n\n",
		"Third one.",
	}, chunkTexts(chunks))
	assert.Equal(t, []int{0, 23, 47}, chunkStarts(chunks))
	assert.Equal(t, []int{23, 47, 57}, chunkEnds(chunks))
	assert.Equal(t, text, strings.Join(chunkTexts(chunks), ""))
}

func TestRecursive_GreedyPacking(t *testing.T) {
	// The first two paragraphs fit one chunk together, the third does not.
	text := "Aa bb.\n\nCc dd.\n\nEe ff gg hh ii jj."
	c := newTestChunker(t)

	chunks, err := c.Split(text, "doc-1", Config{Strategy: StrategyRecursive, ChunkSize: 18})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, []string{"Aa bb.\n\nCc dd.\n\n", "Ee ff gg hh ii jj."}, chunkTexts(chunks))
	assert.Equal(t, []int{0, 16}, chunkStarts(chunks))
	assert.Equal(t, []int{16, 34}, chunkEnds(chunks))
}

func TestRecursive_OversizedPartDescends(t *testing.T) {
	// The first paragraph exceeds the budget and is re-split on ". ".
	text := "Aaaa bbbb. Cccc dddd.\n\nTail."
	c := newTestChunker(t)

	chunks, err := c.Split(text, "doc-1", Config{Strategy: StrategyRecursive, ChunkSize: 12})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, []string{"Aaaa bbbb. ", "Cccc dddd.\n", "Tail."}, chunkTexts(chunks))
	// Offsets are accumulated kept-span lengths: the dropped whitespace split
	// between the second and third chunk does not advance them.
	assert.Equal(t, []int{0, 11, 22}, chunkStarts(chunks))
	assert.Equal(t, []int{11, 22, 27}, chunkEnds(chunks))
}

func TestRecursive_NoSeparatorFallsBackToFixedWidth(t *testing.T) {
	c := newTestChunker(t)

	chunks, err := c.Split("abcdefghij", "doc-1", Config{Strategy: StrategyRecursive, ChunkSize: 3})
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.Equal(t, []string{"abc", "def", "ghi", "j"}, chunkTexts(chunks))
	assert.Equal(t, []int{0, 3, 6, 9}, chunkStarts(chunks))
	assert.Equal(t, []int{3, 6, 9, 10}, chunkEnds(chunks))
}

func TestRecursive_OverlapExtendsWithNextChunk(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph text.\n\nThird one."
	c := newTestChunker(t)

	chunks, err := c.Split(text, "doc-1", Config{Strategy: StrategyRecursive, ChunkSize: 25, Overlap: 5})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "First paragraph here.\n\nSecon", chunks[0].Text)
	assert.Equal(t, 28, chunks[0].CharCount)
	assert.Equal(t, 7, chunks[0].EstimatedTokens)
	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, 28, chunks[0].EndChar)

	assert.Equal(t, "Second paragraph text.\n\nThird", chunks[1].Text)
	assert.Equal(t, 29, chunks[1].CharCount)
	assert.Equal(t, 23, chunks[1].StartChar)
	assert.Equal(t, 52, chunks[1].EndChar)

	// The last chunk is never extended.
	assert.Equal(t, "Third one.", chunks[2].Text)
	assert.Equal(t, 47, chunks[2].StartChar)
	assert.Equal(t, 57, chunks[2].EndChar)
}

func TestRecursive_OverlapLargerThanNextChunk(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph text.\n\nThird one."
	c := newTestChunker(t)

	chunks, err := c.Split(text, "doc-1", Config{Strategy: StrategyRecursive, ChunkSize: 25, Overlap: 50})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "First paragraph here.\n\nSecond paragraph text.\n\n", chunks[0].Text)
	assert.Equal(t, 47, chunks[0].CharCount)
	assert.Equal(t, "Second paragraph text.\n\nThird one.", chunks[1].Text)
	assert.Equal(t, 34, chunks[1].CharCount)
	assert.Equal(t, "Third one.", chunks[2].Text)
}

func TestRecursive_CustomSeparators(t *testing.T) {
	c := newTestChunker(t)

	chunks, err := c.Split("alpha|beta|gamma|delta", "doc-1", Config{
		Strategy:   StrategyRecursive,
		ChunkSize:  12,
		Separators: []string{"|"},
	})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, []string{"alpha|beta|", "gamma|delta"}, chunkTexts(chunks))
	assert.Equal(t, []int{0, 11}, chunkStarts(chunks))
	assert.Equal(t, []int{11, 22}, chunkEnds(chunks))
}

func TestRecursive_OversizedWordTerminates(t *testing.T) {
	// A token longer than the budget whose only remaining separator is its
	// trailing space must degrade to fixed-width slices instead of recursing
	// on the same input.
	text := "aaaaaaaaaaaaaaaa bb. cc."
	c := newTestChunker(t)

	chunks, err := c.Split(text, "doc-1", Config{Strategy: StrategyRecursive, ChunkSize: 10})
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.Equal(t, []string{"aaaaaaaaaa", "aaaaaa ", "bb. ", "cc."}, chunkTexts(chunks))
	for _, ch := range chunks {
		assert.LessOrEqual(t, ch.CharCount, 10)
	}
	assert.Equal(t, text, strings.Join(chunkTexts(chunks), ""))
}
