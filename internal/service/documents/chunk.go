package documents

import "strings"

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// Split cuts text into chunks of at most size runes, each overlapping the
// previous by overlap runes, preferring to break at a space.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	content := []rune(strings.TrimSpace(text))
	if len(content) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(content) {
		end := start + size
		if end > len(content) {
			end = len(content)
		}
		if end < len(content) {
			if cut := lastSpace(content[start:end]); cut > 0 {
				end = start + cut
			}
		}

		if piece := strings.TrimSpace(string(content[start:end])); piece != "" {
			chunks = append(chunks, piece)
		}
		if end >= len(content) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == ' ' || rs[i] == '\n' || rs[i] == '\t' {
			return i
		}
	}
	return -1
}
