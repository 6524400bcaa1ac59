package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"

	"certrag/src/core/rag"
	"certrag/src/infrastructure/integrations/ollama"
	"certrag/src/storage/opensearch"
	"certrag/src/storage/weaviate"
)

// newOllamaClient builds the embedding/generation client from config.
func newOllamaClient() (*ollama.Client, error) {
	return ollama.NewClient(
		viper.GetString("ollama.url"),
		&http.Client{},
		viper.GetString("ollama.embedding_model"),
		viper.GetString("ollama.generation_model"),
		viper.GetInt("rag.retry_max_attempts"),
	)
}

// newVectorIndex builds the configured vector index backend.
func newVectorIndex() (rag.VectorIndex, error) {
	switch backend := viper.GetString("vector.backend"); backend {
	case "opensearch":
		return opensearch.NewStore(opensearch.Config{
			Addresses: viper.GetStringSlice("opensearch.addresses"),
			Username:  viper.GetString("opensearch.username"),
			Password:  viper.GetString("opensearch.password"),
			Index:     viper.GetString("opensearch.index"),
		})
	case "weaviate":
		wc := weaviateClient.New(weaviateClient.Config{
			Host:   viper.GetString("weaviate.url"),
			Scheme: "http",
		})
		return weaviate.NewStore(wc, viper.GetString("weaviate.class")), nil
	default:
		return nil, fmt.Errorf("unknown vector backend: %s", backend)
	}
}

// newChunker builds the configured chunking strategy.
func newChunker() (rag.Chunker, error) {
	size := viper.GetInt("rag.chunk_size")
	switch strategy := viper.GetString("rag.chunk_strategy"); strategy {
	case "fixed":
		return rag.NewFixedTokenChunker(size), nil
	case "recursive":
		return rag.NewRecursiveChunker(size, viper.GetInt("rag.chunk_overlap")), nil
	default:
		return nil, fmt.Errorf("unknown chunk strategy: %s", strategy)
	}
}
