package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGeocode(t *testing.T) {
	// Create a test server that mimics Ollama
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Stream bool   `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.True(t, strings.Contains(req.Prompt, "Peshawar"))
		assert.False(t, req.Stream)

		resp := map[string]interface{}{
			"model":    req.Model,
			"response": "Pakistan.\n",
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	g := NewOllamaGeocoder(server.URL, "llama3.2", 5*time.Second)

	result, err := g.Geocode(context.Background(), "Peshawar")

	require.NoError(t, err)
	assert.Equal(t, "Pakistan", result.Country)
	assert.Equal(t, "Pakistan.\n", result.RawResponse)
}

func TestOllamaGeocodeNetworkError(t *testing.T) {
	g := NewOllamaGeocoder("http://localhost:99999", "llama3.2", time.Second)

	_, err := g.Geocode(context.Background(), "Peshawar")

	assert.Error(t, err)
}

func TestOllamaGeocodeBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	g := NewOllamaGeocoder(server.URL, "llama3.2", time.Second)

	_, err := g.Geocode(context.Background(), "Peshawar")

	assert.Error(t, err)
}

func TestOllamaGeocodeInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	g := NewOllamaGeocoder(server.URL, "llama3.2", time.Second)

	_, err := g.Geocode(context.Background(), "Peshawar")

	assert.Error(t, err)
}
