package chunking

import (
	"regexp"
	"strings"
)

const (
	// semanticOverlapRatio and the half-chunk-size escape hatch below are
	// heuristic grouping thresholds. They are preserved as-is for behavioral
	// compatibility across re-chunking runs.
	semanticOverlapRatio = 0.2
	semanticMinWordLen   = 4
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// chunkSemantic groups consecutive sentences around an anchor sentence. A
// sentence joins the current group while the group is under half of
// chunkSize, or while its keyword set overlaps the anchor's by more than
// semanticOverlapRatio, and joining never pushes the group past chunkSize.
// The anchor itself is always consumed, even when it alone exceeds chunkSize.
func (c *Chunker) chunkSemantic(text, docID string, chunkSize int) []Chunk {
	sents := c.tokenizeSentences(text)
	if len(sents) == 0 {
		return nil
	}

	var chunks []Chunk
	index := 0
	i := 0
	for i < len(sents) {
		chunkStart := i
		anchorWords := keywordSet(sents[i].text)
		total := sents[i].size
		i++

		for i < len(sents) {
			cand := sents[i]
			if total+1+cand.size > chunkSize {
				break
			}
			if float64(total) >= float64(chunkSize)/2 &&
				keywordOverlap(anchorWords, keywordSet(cand.text)) <= semanticOverlapRatio {
				break
			}
			total += 1 + cand.size
			i++
		}

		chunk := newChunk(docID, index, joinSpans(sents[chunkStart:i]), sents[chunkStart].start, 0)
		chunk.EndChar = chunk.StartChar + chunk.CharCount
		chunk.SentenceCount = i - chunkStart
		chunk.SemanticGroup = true
		chunks = append(chunks, chunk)
		index++
	}
	return chunks
}

// keywordSet is the lowercased word set of s, keeping only tokens of at
// least semanticMinWordLen runes.
func keywordSet(s string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len([]rune(w)) < semanticMinWordLen {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// keywordOverlap is |candidate ∩ anchor| / |anchor|; zero when the anchor
// has no keywords.
func keywordOverlap(anchor, candidate map[string]struct{}) float64 {
	if len(anchor) == 0 {
		return 0
	}
	shared := 0
	for w := range candidate {
		if _, ok := anchor[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(anchor))
}
