package rag

import (
	"github.com/tmc/langchaingo/textsplitter"
)

// RecursiveChunker splits text with langchaingo's recursive character
// splitter. It is an opt-in alternative to FixedTokenChunker for
// materials where hard token windows cut mid-sentence; the fixed
// chunker stays the default.
type RecursiveChunker struct {
	splitter textsplitter.RecursiveCharacter
}

func NewRecursiveChunker(chunkSize, chunkOverlap int) *RecursiveChunker {
	return &RecursiveChunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}
}

func (c *RecursiveChunker) Split(text string) ([]string, error) {
	return c.splitter.SplitText(text)
}
