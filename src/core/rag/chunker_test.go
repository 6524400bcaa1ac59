package rag_test

import (
	"fmt"
	"strings"
	"testing"

	"certrag/src/core/rag"
)

func makeTokens(n int) []string {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok%d", i)
	}
	return tokens
}

func TestFixedTokenChunker_Split(t *testing.T) {
	tests := []struct {
		name       string
		tokenCount int
		chunkSize  int
		wantChunks int
	}{
		{
			name:       "exact multiple",
			tokenCount: 1000,
			chunkSize:  500,
			wantChunks: 2,
		},
		{
			name:       "with remainder",
			tokenCount: 1001,
			chunkSize:  500,
			wantChunks: 3,
		},
		{
			name:       "below one window",
			tokenCount: 42,
			chunkSize:  500,
			wantChunks: 1,
		},
		{
			name:       "single token",
			tokenCount: 1,
			chunkSize:  500,
			wantChunks: 1,
		},
		{
			name:       "small windows",
			tokenCount: 10,
			chunkSize:  3,
			wantChunks: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := makeTokens(tt.tokenCount)
			chunker := rag.NewFixedTokenChunker(tt.chunkSize)

			chunks, err := chunker.Split(strings.Join(tokens, " "))
			if err != nil {
				t.Fatalf("Split returned error: %v", err)
			}

			if len(chunks) != tt.wantChunks {
				t.Fatalf("got %d chunks, want %d", len(chunks), tt.wantChunks)
			}

			// Every chunk except possibly the last holds exactly chunkSize tokens
			for i, chunk := range chunks[:len(chunks)-1] {
				if got := len(strings.Fields(chunk)); got != tt.chunkSize {
					t.Errorf("chunk %d has %d tokens, want %d", i, got, tt.chunkSize)
				}
			}

			// Joining all chunks reproduces the original token sequence
			if got := strings.Join(chunks, " "); got != strings.Join(tokens, " ") {
				t.Errorf("concatenated chunks do not reproduce the token sequence")
			}
		})
	}
}

func TestFixedTokenChunker_EmptyInput(t *testing.T) {
	chunker := rag.NewFixedTokenChunker(500)

	for _, input := range []string{"", "   ", "\n\t  \n"} {
		chunks, err := chunker.Split(input)
		if err != nil {
			t.Fatalf("Split(%q) returned error: %v", input, err)
		}
		if len(chunks) != 0 {
			t.Errorf("Split(%q) = %d chunks, want 0", input, len(chunks))
		}
	}
}

func TestFixedTokenChunker_DefaultSize(t *testing.T) {
	chunker := rag.NewFixedTokenChunker(0)
	if chunker.Size != rag.DefaultChunkSize {
		t.Errorf("got size %d, want %d", chunker.Size, rag.DefaultChunkSize)
	}
}

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"folder/file.pdf", "folder_file.pdf"},
		{"a/b/c.docx", "a_b_c.docx"},
		{"plain.pdf", "plain.pdf"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := rag.SanitizeID(tt.in); got != tt.want {
			t.Errorf("SanitizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
		// Sanitization is idempotent
		if got := rag.SanitizeID(rag.SanitizeID(tt.in)); got != tt.want {
			t.Errorf("SanitizeID is not idempotent for %q", tt.in)
		}
	}
}

func TestChunkID(t *testing.T) {
	tests := []struct {
		key  string
		idx  int
		want string
	}{
		{"folder/file.pdf", 0, "folder_file.pdf-0"},
		{"folder/file.pdf", 12, "folder_file.pdf-12"},
		{"notes.docx", 3, "notes.docx-3"},
	}

	for _, tt := range tests {
		if got := rag.ChunkID(tt.key, tt.idx); got != tt.want {
			t.Errorf("ChunkID(%q, %d) = %q, want %q", tt.key, tt.idx, got, tt.want)
		}
	}
}
