// Package chunker splits document text into fixed-window, overlapping
// chunks for embedding and lexical indexing.
package chunker

import "strings"

// Options configures the fixed-window splitter.
type Options struct {
	Size    int // target chunk size in bytes
	Overlap int // overlap between consecutive chunks, in bytes
}

// DefaultOptions matches the ingestion pipeline's default window.
func DefaultOptions() Options { return Options{Size: 600, Overlap: 80} }

// Span is one produced chunk: its text plus the [Start, End) byte offsets
// into the original document it was cut from.
type Span struct {
	Index int
	Text  string
	Start int
	End   int
}

// Split cuts text into overlapping windows, preferring to break on
// whitespace near the target boundary so words aren't split mid-token.
func Split(text string, opt Options) []Span {
	size := opt.Size
	if size <= 0 {
		size = 600
	}
	overlap := opt.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var out []Span
	start := 0
	idx := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			end = len(text)
		} else if i := strings.LastIndexAny(text[start:end], " \n\t"); i > size/2 {
			end = start + i
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			out = append(out, Span{Index: idx, Text: chunk, Start: start, End: end})
			idx++
		}
		if end >= len(text) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}
