package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
)

// NewKeywordOllamaServer serves Ollama's /api/embed with vectors derived from
// keyword presence so that related texts land close together. Vectors have
// len(keywords)+1 dimensions; the last component is a constant bias so no
// vector is all zeros.
func NewKeywordOllamaServer(keywords ...string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		text := strings.ToLower(req.Input)
		vec := make([]float32, len(keywords)+1)
		vec[len(keywords)] = 0.1
		for i, kw := range keywords {
			if strings.Contains(text, kw) {
				vec[i] = 1
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{vec}})
	}))
}
