package chunking

import (
	"strings"
	"unicode/utf8"
)

// chunkRecursive splits on the highest-priority separator present, greedily
// packing parts up to chunkSize and recursing into oversized parts with the
// remaining separators. StartChar/EndChar are accumulated span lengths, not
// exact document offsets: gaps left by dropped whitespace-only spans are not
// re-added.
func chunkRecursive(text, docID string, chunkSize, overlap int, separators []string) []Chunk {
	if len(separators) == 0 {
		separators = DefaultSeparators
	}

	splits := recursiveSplit(text, chunkSize, separators)

	var chunks []Chunk
	index := 0
	pos := 0
	for _, span := range splits {
		if isBlank(span) {
			continue
		}
		n := utf8.RuneCountInString(span)
		chunks = append(chunks, newChunk(docID, index, span, pos, pos+n))
		index++
		pos += n
	}

	if overlap > 0 && len(chunks) > 1 {
		extendWithOverlap(chunks, overlap)
	}
	return chunks
}

func recursiveSplit(text string, chunkSize int, separators []string) []string {
	if utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}

	for i, sep := range separators {
		if !strings.Contains(text, sep) {
			continue
		}

		parts := strings.Split(text, sep)
		var result []string
		current := ""
		currentLen := 0

		for pi, part := range parts {
			withSep := part
			if pi < len(parts)-1 {
				withSep += sep
			}
			partLen := utf8.RuneCountInString(withSep)

			if currentLen+partLen <= chunkSize {
				current += withSep
				currentLen += partLen
				continue
			}

			if current != "" {
				result = append(result, current)
			}

			if partLen > chunkSize {
				// Still too big for one chunk: descend with the
				// lower-priority separators.
				rest := separators[i+1:]
				if len(rest) == 0 {
					rest = []string{" "}
				}
				if withSep == text && len(rest) == 1 && rest[0] == sep {
					// The separator occurs only as a suffix, so descending
					// again would recurse on identical input forever.
					result = append(result, fixedWidthSlices(withSep, chunkSize)...)
				} else {
					result = append(result, recursiveSplit(withSep, chunkSize, rest)...)
				}
				current = ""
				currentLen = 0
			} else {
				current = withSep
				currentLen = partLen
			}
		}

		if current != "" {
			result = append(result, current)
		}
		return result
	}

	// None of the separators occur anywhere: fall back to fixed-width slices.
	return fixedWidthSlices(text, chunkSize)
}

func fixedWidthSlices(text string, chunkSize int) []string {
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// extendWithOverlap appends the first overlap runes of each chunk's successor
// to its own text, recomputing the size fields. The last chunk is left as is.
func extendWithOverlap(chunks []Chunk, overlap int) {
	for i := 0; i < len(chunks)-1; i++ {
		next := []rune(chunks[i+1].Text)
		k := overlap
		if k > len(next) {
			k = len(next)
		}
		merged := chunks[i].Text + string(next[:k])
		n := utf8.RuneCountInString(merged)

		chunks[i].Text = merged
		chunks[i].CharCount = n
		chunks[i].EstimatedTokens = n / 4
		chunks[i].EndChar = chunks[i].StartChar + n
	}
}
