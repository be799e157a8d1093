package rag

import "strings"

// DefaultChunkSize is the chunk length in characters.
const DefaultChunkSize = 800

// Split cuts text into contiguous pieces of size characters. The last piece
// may be shorter. Concatenating the result yields text.
func Split(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	pieces := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

// ChunkText is Split with whitespace-only pieces removed.
func ChunkText(text string, size int) []string {
	pieces := Split(text, size)
	out := pieces[:0]
	for _, p := range pieces {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
