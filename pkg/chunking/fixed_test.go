package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixed_WindowRecurrence(t *testing.T) {
	c := newTestChunker(t)

	chunks, err := c.Split("abcdefghij", "doc-1", Config{Strategy: StrategyFixed, ChunkSize: 4, Overlap: 1})
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.Equal(t, []string{"abcd", "defg", "ghij", "j"}, chunkTexts(chunks))
	assert.Equal(t, []int{0, 3, 6, 9}, chunkStarts(chunks))
	// end_char reports the intended window, even past the end of the text.
	assert.Equal(t, []int{4, 7, 10, 13}, chunkEnds(chunks))
	assert.Equal(t, 1, chunks[3].CharCount)
}

func TestFixed_IntendedWindowEnd(t *testing.T) {
	c := newTestChunker(t)

	chunks, err := c.Split("abcde", "doc-1", Config{Strategy: StrategyFixed, ChunkSize: 4})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "abcd", chunks[0].Text)
	assert.Equal(t, 4, chunks[0].EndChar)

	assert.Equal(t, "e", chunks[1].Text)
	assert.Equal(t, 4, chunks[1].StartChar)
	assert.Equal(t, 8, chunks[1].EndChar)
	assert.Equal(t, 1, chunks[1].CharCount)
}

func TestFixed_DropsWhitespaceWindows(t *testing.T) {
	c := newTestChunker(t)

	// The two middle windows cover only spaces.
	chunks, err := c.Split("ab    cd", "doc-1", Config{Strategy: StrategyFixed, ChunkSize: 2})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, []string{"ab", "cd"}, chunkTexts(chunks))
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
	assert.Equal(t, []int{0, 6}, chunkStarts(chunks))
}

func TestFixed_ZeroOverlapReconstructsText(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog near the river bank."
	c := newTestChunker(t)

	chunks, err := c.Split(text, "doc-1", Config{Strategy: StrategyFixed, ChunkSize: 7})
	require.NoError(t, err)
	assert.Equal(t, text, strings.Join(chunkTexts(chunks), ""))
}

func TestFixed_UnicodeRuneCounting(t *testing.T) {
	c := newTestChunker(t)

	chunks, err := c.Split("héllo wörld!", "doc-1", Config{Strategy: StrategyFixed, ChunkSize: 6})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "héllo ", chunks[0].Text)
	assert.Equal(t, "wörld!", chunks[1].Text)
	assert.Equal(t, 6, chunks[0].CharCount)
	assert.Equal(t, 6, chunks[1].CharCount)
	assert.Equal(t, 6, chunks[1].StartChar)
}
