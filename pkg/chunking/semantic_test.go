package chunking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemantic_Grouping(t *testing.T) {
	anchor := "Alpha database handles queries."
	related := "Alpha database scales."
	linked := "Database queries stay alpha."
	offtopic := "Bananas grow elsewhere."
	c := newTestChunker(t)

	t.Run("KeywordOverlapExtendsGroupPastHalfBudget", func(t *testing.T) {
		text := anchor + " " + related + " " + linked + " " + offtopic
		chunks, err := c.Split(text, "doc-1", Config{Strategy: StrategySemantic, ChunkSize: 100})
		require.NoError(t, err)
		require.Len(t, chunks, 2)

		assert.Equal(t, anchor+" "+related+" "+linked, chunks[0].Text)
		assert.Equal(t, 3, chunks[0].SentenceCount)
		assert.Equal(t, 83, chunks[0].CharCount)
		assert.Equal(t, 0, chunks[0].StartChar)

		assert.Equal(t, offtopic, chunks[1].Text)
		assert.Equal(t, 1, chunks[1].SentenceCount)
		assert.Equal(t, 84, chunks[1].StartChar)

		for _, ch := range chunks {
			assert.True(t, ch.SemanticGroup)
		}
	})

	t.Run("UnrelatedSentenceStartsNewGroup", func(t *testing.T) {
		text := anchor + " " + related + " " + offtopic + " " + linked
		chunks, err := c.Split(text, "doc-1", Config{Strategy: StrategySemantic, ChunkSize: 100})
		require.NoError(t, err)
		require.Len(t, chunks, 2)

		// Past half budget the off-topic sentence no longer qualifies.
		assert.Equal(t, anchor+" "+related, chunks[0].Text)
		assert.Equal(t, 2, chunks[0].SentenceCount)

		// It anchors the next group, which is still under half budget when
		// the linked sentence arrives.
		assert.Equal(t, offtopic+" "+linked, chunks[1].Text)
		assert.Equal(t, 2, chunks[1].SentenceCount)
	})

	t.Run("SizeCapAnchorsEverySentence", func(t *testing.T) {
		text := anchor + " " + related + " " + linked + " " + offtopic
		chunks, err := c.Split(text, "doc-1", Config{Strategy: StrategySemantic, ChunkSize: 20})
		require.NoError(t, err)
		require.Len(t, chunks, 4)

		for _, ch := range chunks {
			assert.Equal(t, 1, ch.SentenceCount)
			assert.True(t, ch.SemanticGroup)
		}
	})
}

func TestKeywordSet(t *testing.T) {
	set := keywordSet("Go, go, GO! Database systems 2024 ok.")
	assert.Equal(t, map[string]struct{}{
		"database": {},
		"systems":  {},
		"2024":     {},
	}, set)
}

func TestKeywordOverlap(t *testing.T) {
	t.Run("EmptyAnchorIsZero", func(t *testing.T) {
		got := keywordOverlap(keywordSet("a bb cc"), keywordSet("anything goes here"))
		assert.Zero(t, got)
	})

	t.Run("SharedCountOverAnchorSize", func(t *testing.T) {
		anchor := keywordSet("alpha beta gamma delta")
		candidate := keywordSet("beta delta epsilon")
		assert.InDelta(t, 0.5, keywordOverlap(anchor, candidate), 1e-9)
	})
}
