package memory

import "strings"

const (
	splitChunkSize = 400 // chars
	splitOverlap   = 80  // chars of overlap between windows
)

// splitText splits long text into overlapping windows, preferring sentence
// boundaries past the halfway point of a window. Short text returns as a
// single element.
func splitText(text string) []string {
	if len(text) <= splitChunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + splitChunkSize
		if end > len(text) {
			end = len(text)
		}
		window := text[start:end]

		lastStop := maxInt(
			strings.LastIndex(window, ". "),
			strings.LastIndex(window, "! "),
			strings.LastIndex(window, "? "),
		)
		if lastStop > splitChunkSize/2 {
			window = window[:lastStop+1]
			end = start + lastStop + 1
		}

		if trimmed := strings.TrimSpace(window); trimmed != "" {
			chunks = append(chunks, trimmed)
		}

		if end >= len(text) {
			break
		}
		start = end - splitOverlap
	}

	return chunks
}

func maxInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
