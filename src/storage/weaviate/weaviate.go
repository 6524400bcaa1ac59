package weaviate

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"certrag/src/core/rag"
)

const DefaultClass = "CertEmbeddings"

// chunkNamespace seeds the deterministic object UUIDs derived from
// chunk IDs, so re-ingesting a document overwrites its objects.
var chunkNamespace = uuid.MustParse("8c2b4f5e-1f6a-4c8d-9f3e-2a7b6d1c0e94")

// Store is the Weaviate-backed vector index. Objects are written
// through the batch importer, which replaces existing objects with the
// same UUID, giving the same upsert semantics as an ID-keyed index
// write.
type Store struct {
	client *weaviate.Client
	class  string

	mu      sync.Mutex
	ensured bool
}

func NewStore(client *weaviate.Client, class string) *Store {
	if class == "" {
		class = DefaultClass
	}
	return &Store{client: client, class: class}
}

func (s *Store) Upsert(ctx context.Context, record rag.IndexedRecord) error {
	if err := s.ensureClass(ctx); err != nil {
		return err
	}

	objectID := uuid.NewSHA1(chunkNamespace, []byte(record.ID))
	obj := &models.Object{
		Class: s.class,
		ID:    strfmt.UUID(objectID.String()),
		Properties: map[string]interface{}{
			"chunkId":   record.ID,
			"text":      record.Text,
			"source":    record.Source,
			"timestamp": record.Timestamp,
		},
		Vector: toFloat32(record.Embedding),
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(obj).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to write vector object: %w", err)
	}
	if len(resp) == 0 {
		return fmt.Errorf("batch write returned no results")
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch write failed: %s", r.Result.Errors.Error[0].Message)
		}
	}

	return nil
}

func (s *Store) Search(ctx context.Context, vector []float64, k int) ([]string, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(toFloat32(vector))

	result, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(
			graphql.Field{Name: "text"},
			graphql.Field{Name: "_additional { distance }"},
		).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("vector query failed: %s", result.Errors[0].Message)
	}

	var texts []string
	if data, ok := result.Data["Get"].(map[string]interface{}); ok {
		if objects, ok := data[s.class].([]interface{}); ok {
			for _, obj := range objects {
				objMap, ok := obj.(map[string]interface{})
				if !ok {
					continue
				}
				if text, ok := objMap["text"].(string); ok {
					texts = append(texts, text)
				}
			}
		}
	}

	return texts, nil
}

func (s *Store) ensureClass(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ensured {
		return nil
	}

	schema, err := s.client.Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}
	for _, class := range schema.Classes {
		if class.Class == s.class {
			s.ensured = true
			return nil
		}
	}

	class := &models.Class{
		Class:      s.class,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "chunkId", DataType: []string{"text"}, Description: "Derived chunk identifier"},
			{Name: "text", DataType: []string{"text"}, Description: "Chunk content"},
			{Name: "source", DataType: []string{"text"}, Description: "Storage key of the source document"},
			{Name: "timestamp", DataType: []string{"text"}, Description: "Ingestion time, RFC 3339 UTC"},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create class %s: %w", s.class, err)
	}

	s.ensured = true
	return nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
