package providers

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/dshills/codefox/internal/config"
	"github.com/dshills/codefox/internal/contextpack"
	"github.com/dshills/codefox/internal/prompt"
	"github.com/dshills/codefox/internal/rag"
)

// Qwen talks to an OpenAI-compatible endpoint (OpenRouter by default)
// serving Qwen models. Context comes from local retrieval.
type Qwen struct {
	cfg config.Config
	api *httpAPI
	contextSession
}

func newQwen(_ context.Context, cfg config.Config, deps Deps) (Provider, error) {
	q := &Qwen{
		cfg: cfg,
		api: &httpAPI{
			baseURL: cfg.Model.BaseURL,
			client:  deps.HTTPClient,
			header:  http.Header{"Authorization": {"Bearer " + cfg.APIKey}},
		},
	}
	q.contextSession = contextSession{
		cfg:      cfg,
		log:      deps.Logger,
		progress: deps.Progress,
		embedder: rag.EmbedderFunc(q.embed),
	}
	return q, nil
}

func (q *Qwen) Name() string  { return config.ProviderQwen }
func (q *Qwen) Model() string { return q.cfg.Model.Name }

func (q *Qwen) CheckConnection(ctx context.Context) error {
	if _, err := q.Models(ctx); err != nil {
		return fmt.Errorf("connecting to %s: %w", q.api.baseURL, err)
	}
	return nil
}

func (q *Qwen) Models(ctx context.Context) ([]string, error) {
	var result openaiModels
	if err := q.api.do(ctx, http.MethodGet, "/models", nil, &result); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(result.Data))
	for _, m := range result.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (q *Qwen) UploadContext(ctx context.Context, root string) (contextpack.Stats, error) {
	return q.upload(ctx, root)
}

func (q *Qwen) RemoveContext(ctx context.Context) { q.remove(ctx) }

func (q *Qwen) Execute(ctx context.Context, diff string) (Response, error) {
	pl, err := q.payload(ctx, diff)
	if err != nil {
		return Response{}, err
	}

	user := []openaiPart{}
	for _, text := range prompt.User(prompt.StyleAnalyze, diff, pl.Text) {
		user = append(user, openaiPart{Type: "text", Text: text})
	}
	temp := q.cfg.Model.Temperature
	body := openaiRequest{
		Model: q.cfg.Model.Name,
		Messages: []openaiInput{
			{Role: "system", Content: []openaiPart{{Type: "text", Text: prompt.System(q.cfg.Policy())}}},
			{Role: "user", Content: user},
		},
		MaxTokens:   q.cfg.Model.MaxTokens,
		Temperature: &temp,
	}

	ctx, cancel := withModelTimeout(ctx, q.cfg)
	defer cancel()

	var result openaiResponse
	if err := q.api.do(ctx, http.MethodPost, "/chat/completions", body, &result); err != nil {
		return Response{}, err
	}
	if len(result.Choices) == 0 {
		return Response{}, fmt.Errorf("no choices in response")
	}
	if result.Choices[0].Message.Content == "" {
		return Response{}, fmt.Errorf("empty text content in API response")
	}
	return Response{
		Content:    result.Choices[0].Message.Content,
		TokensUsed: result.Usage.TotalTokens,
		Sources:    pl.Sources,
	}, nil
}

func (q *Qwen) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var result openaiEmbeddings
	body := openaiEmbeddingRequest{Model: q.cfg.Model.Embedding, Input: texts}
	if err := q.api.do(ctx, http.MethodPost, "/embeddings", body, &result); err != nil {
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}
	sort.SliceStable(result.Data, func(i, j int) bool { return result.Data[i].Index < result.Data[j].Index })
	vecs := make([][]float32, len(result.Data))
	for i, d := range result.Data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

type openaiRequest struct {
	Model       string        `json:"model"`
	Messages    []openaiInput `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type openaiInput struct {
	Role    string       `json:"role"`
	Content []openaiPart `json:"content"`
}

type openaiPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiUsage struct {
	TotalTokens int `json:"total_tokens"`
}

type openaiEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openaiEmbeddings struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type openaiModels struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}
