package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeAnswerer struct {
	query  string
	answer string
	err    error
}

func (f *fakeAnswerer) Answer(_ context.Context, query string) (string, error) {
	f.query = query
	return f.answer, f.err
}

func newQueryRouter(svc QueryAnswerer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/query", NewQueryHandler(svc).Query)
	return r
}

func TestQuery_Success(t *testing.T) {
	svc := &fakeAnswerer{answer: "answer"}
	r := newQueryRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query": "hi"}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["answer"] != "answer" {
		t.Errorf(`got answer %q, want "answer"`, body["answer"])
	}
	if svc.query != "hi" {
		t.Errorf("service received query %q, want %q", svc.query, "hi")
	}
}

func TestQuery_InvalidJSON(t *testing.T) {
	r := newQueryRouter(&fakeAnswerer{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("not json"))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["error"] != "Invalid JSON" {
		t.Errorf(`got error %q, want "Invalid JSON"`, body["error"])
	}
}

func TestQuery_MissingQuery(t *testing.T) {
	r := newQueryRouter(&fakeAnswerer{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["error"] != "Missing query" {
		t.Errorf(`got error %q, want "Missing query"`, body["error"])
	}
}

func TestQuery_UpstreamFailure(t *testing.T) {
	r := newQueryRouter(&fakeAnswerer{err: errors.New("embedding endpoint down")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query": "hi"}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("got status %d, want 502", w.Code)
	}
}
