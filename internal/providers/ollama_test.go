package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dshills/codefox/internal/config"
)

// newTestOllama builds an Ollama provider pointed at the default host, with
// requests rewritten to the test server.
func newTestOllama(t *testing.T, h http.Handler, key string, mutate func(*config.File)) Provider {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	f := config.File{
		Provider: ptr("ollama"),
		Model:    &config.ModelFile{Name: ptr("gemma3:12b")},
	}
	if mutate != nil {
		mutate(&f)
	}
	client := &http.Client{
		Transport: &rewriteTransport{
			base:    server.Client().Transport,
			baseURL: server.URL,
		},
	}
	p, err := New(context.Background(), testConfig(t, f, key), Deps{HTTPClient: client})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return p
}

// captured holds a value written by a test server handler.
type captured struct {
	mu sync.Mutex
	v  string
}

func (c *captured) set(v string) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *captured) get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func ollamaHandler(t *testing.T, wantAuth string, lastUser *captured) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != wantAuth {
			t.Errorf("Authorization = %q, want %q", got, wantAuth)
		}
		switch r.URL.Path {
		case "/api/show":
			var req ollamaShowRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Model != "gemma3:12b" {
				w.WriteHeader(404)
				w.Write([]byte(`{"error":"model not found"}`))
				return
			}
			w.Write([]byte(`{"modelfile":""}`))
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"llama3:8b"},{"name":""},{"name":"gemma3:12b"}]}`))
		case "/api/embed":
			var req ollamaEmbedRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Model != "nomic-embed-text" {
				t.Errorf("embedding model = %q", req.Model)
			}
			resp := ollamaEmbedResponse{}
			for i := range req.Input {
				resp.Embeddings = append(resp.Embeddings, []float32{1, float32(i)})
			}
			json.NewEncoder(w).Encode(resp)
		case "/api/chat":
			var req ollamaChatRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Stream {
				t.Error("chat request should not stream")
			}
			if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
				t.Errorf("messages = %+v", req.Messages)
			}
			if lastUser != nil && len(req.Messages) == 2 {
				lastUser.set(req.Messages[1].Content)
			}
			json.NewEncoder(w).Encode(ollamaChatResponse{
				Message:         ollamaMessage{Role: "assistant", Content: "NO BEHAVIORAL CHANGE."},
				PromptEvalCount: 30,
				EvalCount:       12,
			})
		default:
			http.NotFound(w, r)
		}
	}
}

func TestOllama_Review(t *testing.T) {
	var last captured
	p := newTestOllama(t, ollamaHandler(t, "", &last), "null", nil)
	ctx := context.Background()

	if err := p.CheckConnection(ctx); err != nil {
		t.Fatalf("CheckConnection() error: %v", err)
	}
	if _, err := p.UploadContext(ctx, testRepo(t)); err != nil {
		t.Fatalf("UploadContext() error: %v", err)
	}
	resp, err := p.Execute(ctx, "-old\n+new")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	p.RemoveContext(ctx)

	user := last.get()
	if resp.Content != "NO BEHAVIORAL CHANGE." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.TokensUsed != 42 {
		t.Errorf("TokensUsed = %d, want 42", resp.TokensUsed)
	}
	if !strings.Contains(user, "DIFF AUDIT") || !strings.Contains(user, "-old\n+new") {
		t.Errorf("user message is not a diff audit:\n%s", user)
	}
	if !strings.Contains(user, "<file path='util/run.py'>") {
		t.Errorf("retrieved context missing from user message:\n%s", user)
	}
}

func TestOllama_ReviewWithAPIKey(t *testing.T) {
	p := newTestOllama(t, ollamaHandler(t, "Bearer test-ollama-key", nil), "test-ollama-key", nil)
	if _, err := p.Execute(context.Background(), "+x"); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
}

func TestOllama_CheckConnectionUnknownModel(t *testing.T) {
	p := newTestOllama(t, ollamaHandler(t, "", nil), "", func(f *config.File) {
		f.Model.Name = ptr("missing:latest")
	})
	err := p.CheckConnection(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("Expected 404 error, got: %v", err)
	}
}

func TestOllama_Models(t *testing.T) {
	p := newTestOllama(t, ollamaHandler(t, "", nil), "", nil)
	models, err := p.Models(context.Background())
	if err != nil {
		t.Fatalf("Models() error: %v", err)
	}
	if len(models) != 2 {
		t.Errorf("Models() = %v, want empty names dropped", models)
	}
}

func TestOllama_EmptyResponse(t *testing.T) {
	p := newTestOllama(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"role":"assistant","content":""}}`))
	}), "", nil)
	if _, err := p.Execute(context.Background(), "+x"); err == nil {
		t.Error("Expected error for empty content")
	}
}

func TestOllama_BaseURLNormalized(t *testing.T) {
	cfg := testConfig(t, config.File{
		Provider: ptr("ollama"),
		Model:    &config.ModelFile{Name: ptr("llama3"), BaseURL: ptr("http://localhost:11434/api/")},
	}, "")
	p, err := New(context.Background(), cfg, Deps{})
	if err != nil {
		t.Fatal(err)
	}
	if got := p.(*Ollama).api.baseURL; got != "http://localhost:11434" {
		t.Errorf("baseURL = %q", got)
	}
}
