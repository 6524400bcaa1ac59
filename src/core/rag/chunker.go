package rag

import (
	"fmt"
	"strings"
)

const DefaultChunkSize = 500

// FixedTokenChunker splits text on whitespace and groups the tokens
// into consecutive windows of at most Size tokens. Windows never
// overlap; the last window holds the remainder. Joining all chunks
// with single spaces reproduces the original token sequence.
type FixedTokenChunker struct {
	Size int
}

func NewFixedTokenChunker(size int) *FixedTokenChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &FixedTokenChunker{Size: size}
}

func (c *FixedTokenChunker) Split(text string) ([]string, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	chunks := make([]string, 0, (len(tokens)+c.Size-1)/c.Size)
	for start := 0; start < len(tokens); start += c.Size {
		end := start + c.Size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.Join(tokens[start:end], " "))
	}

	return chunks, nil
}

// SanitizeID replaces every "/" with "_" so an object key is safe as an
// index document identifier.
func SanitizeID(s string) string {
	return strings.ReplaceAll(s, "/", "_")
}

// ChunkID derives the index document identifier for chunk idx of the
// object stored under key. Re-ingesting the same object yields the same
// IDs, so writes overwrite instead of duplicating.
func ChunkID(key string, idx int) string {
	return SanitizeID(fmt.Sprintf("%s-%d", key, idx))
}
