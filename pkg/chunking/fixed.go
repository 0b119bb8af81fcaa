package chunking

// chunkFixed takes windows of chunkSize runes, advancing the start by
// chunkSize-overlap each time. StartChar/EndChar report the intended window
// even when the final window runs past the end of the text.
func chunkFixed(text, docID string, chunkSize, overlap int) []Chunk {
	runes := []rune(text)

	var chunks []Chunk
	index := 0
	for start := 0; start < len(runes); start += chunkSize - overlap {
		end := start + chunkSize
		sliceEnd := end
		if sliceEnd > len(runes) {
			sliceEnd = len(runes)
		}
		span := string(runes[start:sliceEnd])
		if isBlank(span) {
			continue
		}
		chunks = append(chunks, newChunk(docID, index, span, start, end))
		index++
	}
	return chunks
}
