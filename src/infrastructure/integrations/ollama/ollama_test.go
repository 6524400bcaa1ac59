package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"certrag/src/infrastructure/integrations/ollama"
)

func TestEmbed(t *testing.T) {
	var gotReq struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": []float64{0.1, 0.2, 0.3},
		})
	}))
	defer srv.Close()

	client, err := ollama.NewClient(srv.URL, srv.Client(), "nomic-embed-text", "llama3", 1)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	embedding, err := client.Embed(context.Background(), "some chunk text")
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}

	if len(embedding) != 3 || embedding[0] != 0.1 {
		t.Errorf("got embedding %v, want [0.1 0.2 0.3]", embedding)
	}
	if gotReq.Model != "nomic-embed-text" {
		t.Errorf("got model %q, want %q", gotReq.Model, "nomic-embed-text")
	}
	if gotReq.Prompt != "some chunk text" {
		t.Errorf("got prompt %q, want the input text", gotReq.Prompt)
	}
}

func TestEmbed_MissingVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer srv.Close()

	client, err := ollama.NewClient(srv.URL, srv.Client(), "nomic-embed-text", "llama3", 1)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if _, err := client.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected error when the response has no vector")
	}
}

func TestEmbed_RetriesTransientFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "overloaded"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": []float64{1.0},
		})
	}))
	defer srv.Close()

	client, err := ollama.NewClient(srv.URL, srv.Client(), "nomic-embed-text", "llama3", 3)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	embedding, err := client.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("Embed returned error after retry: %v", err)
	}
	if attempts != 2 {
		t.Errorf("got %d attempts, want 2", attempts)
	}
	if len(embedding) != 1 {
		t.Errorf("got embedding %v, want one element", embedding)
	}
}

func TestGenerate(t *testing.T) {
	var gotReq struct {
		Model   string                 `json:"model"`
		Prompt  string                 `json:"prompt"`
		Stream  *bool                  `json:"stream"`
		Options map[string]interface{} `json:"options"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"model":    "llama3",
			"response": "generated answer",
			"done":     true,
		})
	}))
	defer srv.Close()

	client, err := ollama.NewClient(srv.URL, srv.Client(), "nomic-embed-text", "llama3", 1)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	answer, err := client.Generate(context.Background(), "\n\nctx\n\nQuestion: q\nAnswer:", 200)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if answer != "generated answer" {
		t.Errorf("got answer %q, want %q", answer, "generated answer")
	}
	if gotReq.Model != "llama3" {
		t.Errorf("got model %q, want %q", gotReq.Model, "llama3")
	}
	if gotReq.Stream == nil || *gotReq.Stream {
		t.Errorf("expected stream=false in request")
	}
	if got, ok := gotReq.Options["num_predict"].(float64); !ok || int(got) != 200 {
		t.Errorf("got num_predict %v, want 200", gotReq.Options["num_predict"])
	}
}
