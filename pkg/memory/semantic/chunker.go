package semantic

const (
	// DefaultChunkSize is the rune length of one embedded chunk.
	DefaultChunkSize = 500

	// DefaultChunkOverlap is how many runes consecutive chunks share, so
	// a sentence straddling a boundary is retrievable from either side.
	DefaultChunkOverlap = 50
)

// chunk splits text into rune windows of at most size runes, with overlap
// runes shared between consecutive windows. Text at or under the size
// comes back as a single chunk; empty text produces none.
func chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
