package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"certrag/src/core/rag"
)

const DefaultIndex = "cert-embeddings"

type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

// Store persists embedded chunks in a knn-enabled search index and
// serves nearest-neighbor queries over them. Writes are keyed by the
// chunk's derived ID, so re-ingesting a document replaces its records
// instead of appending.
type Store struct {
	es    *elasticsearch.Client
	index string

	mu      sync.Mutex
	ensured bool
}

func NewStore(cfg Config) (*Store, error) {
	if cfg.Index == "" {
		cfg.Index = DefaultIndex
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}

	return &Store{es: es, index: cfg.Index}, nil
}

// Upsert writes one record keyed by its ID. The index is created with a
// knn mapping on first use; the vector dimension is taken from the
// first record seen, never checked locally afterwards.
func (s *Store) Upsert(ctx context.Context, record rag.IndexedRecord) error {
	if err := s.ensureIndex(ctx, len(record.Embedding)); err != nil {
		return err
	}

	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	res, err := s.es.Index(
		s.index,
		bytes.NewReader(body),
		s.es.Index.WithDocumentID(record.ID),
		s.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index record %s: %w", record.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index request for %s returned %s", record.ID, res.Status())
	}

	return nil
}

// Search issues a k-nearest-neighbor query and returns the matched
// texts ranked by the service's similarity score, highest first. Fewer
// than k hits, including none, is returned as-is.
func (s *Store) Search(ctx context.Context, vector []float64, k int) ([]string, error) {
	query := map[string]interface{}{
		"size": k,
		"query": map[string]interface{}{
			"knn": map[string]interface{}{
				"embedding": map[string]interface{}{
					"vector": vector,
					"k":      k,
				},
			},
		},
		"_source": []string{"text"},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search request returned %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	texts := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		texts = append(texts, hit.Source.Text)
	}

	return texts, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				Text string `json:"text"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *Store) ensureIndex(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ensured {
		return nil
	}

	res, err := s.es.Indices.Exists(
		[]string{s.index},
		s.es.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == 200 {
		s.ensured = true
		return nil
	}

	if err := s.createIndex(ctx, dimension); err != nil {
		return err
	}

	s.ensured = true
	return nil
}

func (s *Store) createIndex(ctx context.Context, dimension int) error {
	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"index": map[string]interface{}{
				"knn": true,
			},
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"embedding": map[string]interface{}{
					"type":      "knn_vector",
					"dimension": dimension,
				},
				"text":      map[string]interface{}{"type": "text"},
				"source":    map[string]interface{}{"type": "keyword"},
				"timestamp": map[string]interface{}{"type": "date"},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	req := esapi.IndicesCreateRequest{
		Index: s.index,
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index request returned %s", res.Status())
	}

	return nil
}
