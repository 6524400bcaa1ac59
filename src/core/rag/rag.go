package rag

import (
	"context"
	"errors"
)

// ErrUnsupportedFileType is returned when an object's extension has no
// registered text extractor. Callers skip the object instead of failing
// the whole batch.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// IndexedRecord is the persisted unit in the vector index.
type IndexedRecord struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Timestamp string    `json:"timestamp"`
	Embedding []float64 `json:"embedding"`
}

// UploadRecord identifies one uploaded object from a storage
// notification.
type UploadRecord struct {
	Bucket    string
	ObjectKey string
}

// Embedder turns a text into its vector representation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Generator produces a completion for a prompt, bounded by maxTokens.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// VectorIndex stores embedded chunks and answers nearest-neighbor
// queries. Upsert replaces any record with the same ID. Search returns
// the matched texts ranked by similarity, highest first; fewer than k
// results (including none) is not an error.
type VectorIndex interface {
	Upsert(ctx context.Context, record IndexedRecord) error
	Search(ctx context.Context, vector []float64, k int) ([]string, error)
}

// ObjectStore fetches raw document bytes from object storage.
type ObjectStore interface {
	GetObject(ctx context.Context, bucket, objectKey string) ([]byte, error)
}

// Chunker partitions extracted text into chunks.
type Chunker interface {
	Split(text string) ([]string, error)
}

// MaterialTracker records ingestion outcomes for uploaded materials.
// Implementations are optional; a nil tracker disables tracking.
type MaterialTracker interface {
	MarkIngested(ctx context.Context, objectKey string, chunkCount int) error
	MarkFailed(ctx context.Context, objectKey string, reason string) error
}
