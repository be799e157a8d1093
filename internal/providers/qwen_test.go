package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dshills/codefox/internal/config"
	"github.com/dshills/codefox/internal/contextpack"
)

type qwenServer struct {
	t        *testing.T
	chats    atomic.Int32
	embeds   atomic.Int32
	mu       sync.Mutex
	lastChat openaiRequest
}

func (s *qwenServer) chat() openaiRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastChat
}

func (s *qwenServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer test-key" {
		s.t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
	}
	switch r.URL.Path {
	case "/models":
		w.Write([]byte(`{"data":[{"id":"qwen/qwen3-coder"},{"id":"qwen/qwen3-vl-30b-a3b-thinking"}]}`))
	case "/embeddings":
		s.embeds.Add(1)
		var req openaiEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.t.Errorf("decoding embeddings request: %v", err)
		}
		if req.Model != "text-embedding-3-small" {
			s.t.Errorf("embedding model = %q", req.Model)
		}
		var resp openaiEmbeddings
		resp.Data = make([]struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}, len(req.Input))
		// Reverse order to exercise index sorting.
		for i := range req.Input {
			j := len(req.Input) - 1 - i
			resp.Data[i].Index = j
			resp.Data[i].Embedding = []float32{1, float32(j)}
		}
		json.NewEncoder(w).Encode(resp)
	case "/chat/completions":
		s.chats.Add(1)
		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.t.Errorf("decoding chat request: %v", err)
		}
		s.mu.Lock()
		s.lastChat = req
		s.mu.Unlock()
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Role: "assistant", Content: "No issues found."}}},
			Usage:   openaiUsage{TotalTokens: 42},
		})
	default:
		http.NotFound(w, r)
	}
}

func newTestQwen(t *testing.T, h http.Handler, mutate func(*config.File)) Provider {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	f := config.File{
		Provider: ptr("qwen"),
		Model:    &config.ModelFile{Name: ptr("qwen/qwen3-coder"), BaseURL: ptr(server.URL)},
	}
	if mutate != nil {
		mutate(&f)
	}
	p, err := New(context.Background(), testConfig(t, f, "test-key"), Deps{HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return p
}

func TestQwen_ReviewWithLocalRetrieval(t *testing.T) {
	srv := &qwenServer{t: t}
	p := newTestQwen(t, srv, nil)
	ctx := context.Background()

	if err := p.CheckConnection(ctx); err != nil {
		t.Fatalf("CheckConnection() error: %v", err)
	}
	stats, err := p.UploadContext(ctx, testRepo(t))
	if err != nil {
		t.Fatalf("UploadContext() error: %v", err)
	}
	if stats.Mode != contextpack.ModeLocalRetrieval || stats.Chunks != 2 {
		t.Errorf("stats = %+v, want 2 chunks in local-retrieval", stats)
	}

	resp, err := p.Execute(ctx, "+func main() { run() }")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	p.RemoveContext(ctx)

	if resp.Content != "No issues found." || resp.TokensUsed != 42 {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Sources) != 2 {
		t.Errorf("Sources = %v, want both files", resp.Sources)
	}
	if got := srv.embeds.Load(); got != 2 {
		t.Errorf("embedding calls = %d, want 2 (index + query)", got)
	}

	chat := srv.chat()
	msgs := chat.Messages
	if len(msgs) != 2 || msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Fatalf("messages = %+v", msgs)
	}
	if !strings.Contains(msgs[0].Content[0].Text, "REVIEW POLICY") {
		t.Error("system prompt missing policy block")
	}
	user := msgs[1].Content
	if len(user) != 2 {
		t.Fatalf("user parts = %d, want diff + context", len(user))
	}
	if !strings.HasPrefix(user[0].Text, "Analyze the following git diff") {
		t.Errorf("user[0] = %q", user[0].Text)
	}
	if !strings.Contains(user[1].Text, "<file path='main.go'>") {
		t.Errorf("context part = %q", user[1].Text)
	}
	if strings.Contains(user[1].Text, "node_modules") {
		t.Error("ignored directory leaked into context")
	}
	if chat.MaxTokens != 4000 || chat.Temperature == nil || *chat.Temperature != 0.2 {
		t.Errorf("generation params = %d / %v", chat.MaxTokens, chat.Temperature)
	}
}

func TestQwen_DiffOnlySkipsEmbeddings(t *testing.T) {
	srv := &qwenServer{t: t}
	p := newTestQwen(t, srv, func(f *config.File) { f.Review.DiffOnly = ptr(true) })
	ctx := context.Background()

	if _, err := p.UploadContext(ctx, testRepo(t)); err != nil {
		t.Fatalf("UploadContext() error: %v", err)
	}
	if _, err := p.Execute(ctx, "+x"); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if srv.embeds.Load() != 0 {
		t.Error("diff-only mode should not embed")
	}
	if parts := srv.chat().Messages[1].Content; len(parts) != 1 {
		t.Errorf("user parts = %d, want diff only", len(parts))
	}
}

func TestQwen_Models(t *testing.T) {
	p := newTestQwen(t, &qwenServer{t: t}, nil)
	models, err := p.Models(context.Background())
	if err != nil {
		t.Fatalf("Models() error: %v", err)
	}
	if len(models) != 2 || models[0] != "qwen/qwen3-coder" {
		t.Errorf("Models() = %v", models)
	}
}

func TestQwen_AuthError(t *testing.T) {
	p := newTestQwen(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}), nil)
	err := p.CheckConnection(context.Background())
	if !IsAuthError(err) {
		t.Errorf("Expected auth error, got: %v", err)
	}
}

func TestQwen_ServerErrorRetried(t *testing.T) {
	fastRetry(t)
	var attempts atomic.Int32
	p := newTestQwen(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(500)
			w.Write([]byte(`{"error":"internal server error"}`))
			return
		}
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Content: "ok"}}},
		})
	}), nil)

	resp, err := p.Execute(context.Background(), "+x")
	if err != nil {
		t.Fatalf("Execute should succeed after retries: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q, want %q", resp.Content, "ok")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts (2 retries on 5xx), got %d", attempts.Load())
	}
}

func TestQwen_NoChoices(t *testing.T) {
	p := newTestQwen(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}), nil)
	if _, err := p.Execute(context.Background(), "+x"); err == nil {
		t.Error("Expected error for empty choices")
	}
}

func TestQwen_EmptyContent(t *testing.T) {
	p := newTestQwen(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":""}}]}`))
	}), nil)
	if _, err := p.Execute(context.Background(), "+x"); err == nil {
		t.Error("Expected error for empty content")
	}
}
