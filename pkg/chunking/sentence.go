package chunking

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// sentenceSpan is one detected sentence, trimmed, with its rune offset in the
// original text.
type sentenceSpan struct {
	text  string
	start int
	size  int
}

func (c *Chunker) tokenizeSentences(text string) []sentenceSpan {
	raw := c.tokenizer.Tokenize(text)

	spans := make([]sentenceSpan, 0, len(raw))
	for _, s := range raw {
		leftTrimmed := strings.TrimLeftFunc(s.Text, unicode.IsSpace)
		trimmed := strings.TrimRightFunc(leftTrimmed, unicode.IsSpace)
		if trimmed == "" {
			continue
		}

		byteStart := s.Start
		if byteStart < 0 {
			byteStart = 0
		}
		if byteStart > len(text) {
			byteStart = len(text)
		}
		lead := utf8.RuneCountInString(s.Text) - utf8.RuneCountInString(leftTrimmed)
		start := utf8.RuneCountInString(text[:byteStart]) + lead

		spans = append(spans, sentenceSpan{
			text:  trimmed,
			start: start,
			size:  utf8.RuneCountInString(trimmed),
		})
	}
	return spans
}

// chunkSentences greedily packs consecutive sentences (joined with single
// spaces) up to chunkSize runes. A sentence that alone exceeds chunkSize
// still becomes its own chunk. overlap is a sentence count: after each chunk
// the cursor rewinds by up to that many sentences, but never to before the
// second sentence of the chunk just produced.
func (c *Chunker) chunkSentences(text, docID string, chunkSize, overlap int) []Chunk {
	sents := c.tokenizeSentences(text)
	if len(sents) == 0 {
		return nil
	}

	var chunks []Chunk
	index := 0
	i := 0
	for i < len(sents) {
		chunkStart := i
		total := sents[i].size
		j := i + 1
		for j < len(sents) && total+1+sents[j].size <= chunkSize {
			total += 1 + sents[j].size
			j++
		}

		chunk := newChunk(docID, index, joinSpans(sents[chunkStart:j]), sents[chunkStart].start, 0)
		chunk.EndChar = chunk.StartChar + chunk.CharCount
		chunk.SentenceCount = j - chunkStart
		chunks = append(chunks, chunk)
		index++

		if j >= len(sents) {
			break
		}

		next := j
		if overlap > 0 {
			next = j - overlap
			if min := chunkStart + 1; next < min {
				next = min
			}
		}
		i = next
	}
	return chunks
}

func joinSpans(spans []sentenceSpan) string {
	parts := make([]string, len(spans))
	for i, s := range spans {
		parts[i] = s.text
	}
	return strings.Join(parts, " ")
}
