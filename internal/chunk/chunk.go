// Package chunk splits extracted text into overlapping windows of
// whitespace-delimited tokens.
package chunk

import "strings"

// Chunk size defaults.
const (
	DefaultChunkTokens   = 500
	DefaultOverlapTokens = 50
)

// TextChunk is one window of tokens. StartToken is inclusive and
// EndToken exclusive, both indexes into the whitespace token stream.
type TextChunk struct {
	Index      int    `json:"index"`
	Text       string `json:"text"`
	StartToken int    `json:"start_token"`
	EndToken   int    `json:"end_token"`
}

// Split cuts text into windows of size tokens, each sharing overlap tokens
// with the previous one. Overlap is clamped to size-1 and a negative
// overlap counts as zero. Empty text or a non-positive size yields no
// chunks. Every token lands in at least one chunk.
func Split(text string, size, overlap int) []TextChunk {
	tokens := strings.Fields(text)
	if len(tokens) == 0 || size <= 0 {
		return []TextChunk{}
	}

	overlap = max(0, min(overlap, size-1))
	stride := size - overlap

	chunks := make([]TextChunk, 0, expectedCount(len(tokens), size, overlap))
	for start := 0; ; start += stride {
		end := min(start+size, len(tokens))
		chunks = append(chunks, TextChunk{
			Index:      len(chunks),
			Text:       strings.Join(tokens[start:end], " "),
			StartToken: start,
			EndToken:   end,
		})
		if end == len(tokens) {
			return chunks
		}
	}
}

// expectedCount is ceil((n-overlap)/(size-overlap)) for n > size, else 1.
func expectedCount(n, size, overlap int) int {
	if n <= size {
		return 1
	}
	stride := size - overlap
	return (n - overlap + stride - 1) / stride
}
