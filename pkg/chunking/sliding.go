package chunking

// chunkSliding emits windows of windowSize runes, moving the window start by
// stride each step. The window end is clamped to the text length and the
// loop stops once an emitted window reaches the end, so the final partial
// window appears exactly once. OverlapChars records windowSize-stride for
// every kept window after the first.
func chunkSliding(text, docID string, windowSize, stride int) []Chunk {
	runes := []rune(text)

	var chunks []Chunk
	index := 0
	start := 0
	for start < len(runes) {
		end := start + windowSize
		if end > len(runes) {
			end = len(runes)
		}
		span := string(runes[start:end])
		if !isBlank(span) {
			overlap := 0
			if index > 0 {
				overlap = windowSize - stride
			}
			chunk := newChunk(docID, index, span, start, end)
			chunk.OverlapChars = &overlap
			chunks = append(chunks, chunk)
			index++
		}
		if end >= len(runes) {
			break
		}
		start += stride
	}
	return chunks
}
