// Package main implements a mock Ollama server for offline testing.
// It serves /api/generate responses from JSON-free text fixture files,
// routing by the "model" field in the request. This eliminates the need for
// a real inference backend during pipeline wiring tests, making them fast,
// deterministic, and offline-capable.
//
// Usage:
//
//	mock-ollama -fixtures /path/to/fixtures -port 11434
//
// Fixture files are plain text named by model (e.g., "gpt-oss:20b" maps to
// "gpt-oss_20b.txt"; colons are replaced with underscores). When no fixture
// matches, a canned analysis response is returned.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const defaultAnalysis = "Análise simulada: nenhuma cláusula de risco identificada (resposta de teste)."

type server struct {
	fixturesDir string
	failModel   string
	calls       atomic.Int64
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}

	n := s.calls.Add(1)
	log.Printf("call %d: model=%q prompt_chars=%d", n, req.Model, len(req.Prompt))

	w.Header().Set("Content-Type", "application/json")

	// A designated model name reports an in-body error, for exercising the
	// consumer's failure path.
	if s.failModel != "" && req.Model == s.failModel {
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "model overloaded"})
		return
	}

	_ = json.NewEncoder(w).Encode(generateResponse{
		Model:    req.Model,
		Response: s.lookupFixture(req.Model),
		Done:     true,
	})
}

func (s *server) lookupFixture(model string) string {
	if s.fixturesDir == "" {
		return defaultAnalysis
	}
	name := strings.ReplaceAll(model, ":", "_") + ".txt"
	data, err := os.ReadFile(filepath.Join(s.fixturesDir, name))
	if err != nil {
		return defaultAnalysis
	}
	return string(data)
}

func main() {
	port := flag.Int("port", 11434, "listen port")
	fixtures := flag.String("fixtures", "", "directory of per-model fixture files")
	failModel := flag.String("fail-model", "", "model name that always reports an error")
	flag.Parse()

	srv := &server{fixturesDir: *fixtures, failModel: *failModel}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", srv.handleGenerate)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("mock-ollama listening on %s (fixtures=%q)", addr, *fixtures)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
