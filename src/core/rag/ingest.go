package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"certrag/src/infrastructure/log"
)

// IngestService runs the ingestion pipeline for uploaded objects:
// fetch, extract, chunk, embed, index. Chunks of one object are
// processed strictly in order; a failure mid-object leaves earlier
// chunks indexed (there is no rollback across a document's chunks).
type IngestService struct {
	store    ObjectStore
	chunker  Chunker
	embedder Embedder
	index    VectorIndex
	tracker  MaterialTracker
}

func NewIngestService(store ObjectStore, chunker Chunker, embedder Embedder, index VectorIndex, tracker MaterialTracker) *IngestService {
	return &IngestService{
		store:    store,
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		tracker:  tracker,
	}
}

// ProcessBatch ingests each record sequentially and returns the number
// of records ingested successfully. Unsupported file types and upstream
// failures are logged and skipped; they never abort the batch.
func (s *IngestService) ProcessBatch(ctx context.Context, records []UploadRecord) int {
	processed := 0
	for _, r := range records {
		chunkCount, err := s.IngestObject(ctx, r.Bucket, r.ObjectKey)
		if err != nil {
			if errors.Is(err, ErrUnsupportedFileType) {
				log.Info("skipping unsupported file type", "objectKey", r.ObjectKey)
			} else {
				log.Error(err, "failed to ingest object", "bucket", r.Bucket, "objectKey", r.ObjectKey)
			}
			s.markFailed(ctx, r.ObjectKey, err)
			continue
		}
		log.Info("ingested object", "objectKey", r.ObjectKey, "chunks", chunkCount)
		processed++
	}
	return processed
}

// IngestObject runs the full pipeline for one object and returns the
// number of chunks written to the index.
func (s *IngestService) IngestObject(ctx context.Context, bucket, objectKey string) (int, error) {
	data, err := s.store.GetObject(ctx, bucket, objectKey)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch object %s/%s: %w", bucket, objectKey, err)
	}

	text, err := ExtractText(objectKey, data)
	if err != nil {
		return 0, err
	}

	chunks, err := s.chunker.Split(text)
	if err != nil {
		return 0, fmt.Errorf("failed to chunk text: %w", err)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	for i, chunk := range chunks {
		embedding, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}

		record := IndexedRecord{
			ID:        ChunkID(objectKey, i),
			Text:      chunk,
			Source:    objectKey,
			Timestamp: timestamp,
			Embedding: embedding,
		}
		if err := s.index.Upsert(ctx, record); err != nil {
			return 0, fmt.Errorf("failed to index chunk %s: %w", record.ID, err)
		}
	}

	if s.tracker != nil {
		if err := s.tracker.MarkIngested(ctx, objectKey, len(chunks)); err != nil {
			log.Error(err, "failed to update material status", "objectKey", objectKey)
		}
	}

	return len(chunks), nil
}

func (s *IngestService) markFailed(ctx context.Context, objectKey string, cause error) {
	if s.tracker == nil {
		return
	}
	if err := s.tracker.MarkFailed(ctx, objectKey, cause.Error()); err != nil {
		log.Error(err, "failed to update material status", "objectKey", objectKey)
	}
}
