package chunking

// Distribution buckets chunk sizes with fixed thresholds: small is under 300
// runes, large is 700 or more.
type Distribution struct {
	Small  int `json:"small"`
	Medium int `json:"medium"`
	Large  int `json:"large"`
}

// Statistics is a pure aggregate over one chunk sequence. AvgChunkSize uses
// integer division.
type Statistics struct {
	TotalChunks  int          `json:"total_chunks"`
	TotalChars   int          `json:"total_chars"`
	TotalTokens  int          `json:"total_tokens"`
	AvgChunkSize int          `json:"avg_chunk_size"`
	MinChunkSize int          `json:"min_chunk_size"`
	MaxChunkSize int          `json:"max_chunk_size"`
	Distribution Distribution `json:"chunk_size_distribution"`
}

// Stats computes Statistics for chunks. An empty sequence yields the zero
// value, not an error.
func Stats(chunks []Chunk) Statistics {
	var s Statistics
	if len(chunks) == 0 {
		return s
	}

	s.TotalChunks = len(chunks)
	s.MinChunkSize = chunks[0].CharCount
	for _, c := range chunks {
		s.TotalChars += c.CharCount
		s.TotalTokens += c.EstimatedTokens
		if c.CharCount < s.MinChunkSize {
			s.MinChunkSize = c.CharCount
		}
		if c.CharCount > s.MaxChunkSize {
			s.MaxChunkSize = c.CharCount
		}
		switch {
		case c.CharCount < 300:
			s.Distribution.Small++
		case c.CharCount < 700:
			s.Distribution.Medium++
		default:
			s.Distribution.Large++
		}
	}
	s.AvgChunkSize = s.TotalChars / s.TotalChunks
	return s
}
