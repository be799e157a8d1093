package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dshills/codefox/internal/config"
	"github.com/dshills/codefox/internal/contextpack"
	"github.com/dshills/codefox/internal/prompt"
	"github.com/dshills/codefox/internal/rag"
)

// Ollama talks to the native Ollama API, locally or on ollama.com.
type Ollama struct {
	cfg config.Config
	api *httpAPI
	contextSession
}

func newOllama(_ context.Context, cfg config.Config, deps Deps) (Provider, error) {
	baseURL := strings.TrimRight(cfg.Model.BaseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/api")

	header := http.Header{}
	// Local servers run without auth; "null" is what init writes for them.
	if cfg.APIKey != "" && cfg.APIKey != "null" {
		header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	o := &Ollama{
		cfg: cfg,
		api: &httpAPI{baseURL: baseURL, client: deps.HTTPClient, header: header},
	}
	o.contextSession = contextSession{
		cfg:      cfg,
		log:      deps.Logger,
		progress: deps.Progress,
		embedder: rag.EmbedderFunc(o.embed),
	}
	return o, nil
}

func (o *Ollama) Name() string  { return config.ProviderOllama }
func (o *Ollama) Model() string { return o.cfg.Model.Name }

func (o *Ollama) CheckConnection(ctx context.Context) error {
	if err := o.api.do(ctx, http.MethodPost, "/api/show", ollamaShowRequest{Model: o.cfg.Model.Name}, nil); err != nil {
		return fmt.Errorf("checking model %s: %w", o.cfg.Model.Name, err)
	}
	return nil
}

func (o *Ollama) Models(ctx context.Context) ([]string, error) {
	var result ollamaTags
	if err := o.api.do(ctx, http.MethodGet, "/api/tags", nil, &result); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(result.Models))
	for _, m := range result.Models {
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	return names, nil
}

func (o *Ollama) UploadContext(ctx context.Context, root string) (contextpack.Stats, error) {
	return o.upload(ctx, root)
}

func (o *Ollama) RemoveContext(ctx context.Context) { o.remove(ctx) }

func (o *Ollama) Execute(ctx context.Context, diff string) (Response, error) {
	pl, err := o.payload(ctx, diff)
	if err != nil {
		return Response{}, err
	}
	body := ollamaChatRequest{
		Model: o.cfg.Model.Name,
		Messages: []ollamaMessage{
			{Role: "system", Content: prompt.System(o.cfg.Policy())},
			{Role: "user", Content: prompt.User(prompt.StyleDiffAudit, diff, pl.Text)[0]},
		},
		Stream: false,
		Options: ollamaOptions{
			Temperature: o.cfg.Model.Temperature,
			NumPredict:  o.cfg.Model.MaxTokens,
		},
	}

	ctx, cancel := withModelTimeout(ctx, o.cfg)
	defer cancel()

	var result ollamaChatResponse
	if err := o.api.do(ctx, http.MethodPost, "/api/chat", body, &result); err != nil {
		return Response{}, err
	}
	if result.Message.Content == "" {
		return Response{}, fmt.Errorf("empty text content in API response")
	}
	return Response{
		Content:    result.Message.Content,
		TokensUsed: result.PromptEvalCount + result.EvalCount,
		Sources:    pl.Sources,
	}, nil
}

func (o *Ollama) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var result ollamaEmbedResponse
	body := ollamaEmbedRequest{Model: o.cfg.Model.Embedding, Input: texts}
	if err := o.api.do(ctx, http.MethodPost, "/api/embed", body, &result); err != nil {
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}
	return result.Embeddings, nil
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaChatResponse struct {
	Message         ollamaMessage `json:"message"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type ollamaShowRequest struct {
	Model string `json:"model"`
}

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}
