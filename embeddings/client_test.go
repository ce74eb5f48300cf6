package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbedReturnsVector(t *testing.T) {
	var gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		assert.Nil(t, json.NewDecoder(r.Body).Decode(&req))
		gotText = req.Text
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	vector, err := New(server.URL, 3).Embed(context.Background(), "What is the minimum capital requirement?")
	assert.Nil(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	assert.Equal(t, "What is the minimum capital requirement?", gotText)
}

func TestEmbedRejectsWrongDimensionality(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2}})
	}))
	defer server.Close()

	_, err := New(server.URL, 3).Embed(context.Background(), "query")
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "expected 3")
}

func TestEmbedNonSuccessStatusFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(server.URL, 3).Embed(context.Background(), "query")
	assert.NotNil(t, err)
}

func TestNewDefaultsDimension(t *testing.T) {
	assert.Equal(t, DefaultDimension, New("http://localhost:8501/v1/embed", 0).Dimension)
}
