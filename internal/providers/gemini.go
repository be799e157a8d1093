package providers

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/dshills/codefox/internal/config"
	"github.com/dshills/codefox/internal/contextpack"
	"github.com/dshills/codefox/internal/prompt"
	"github.com/dshills/codefox/internal/rag"
)

// geminiEmbedBatch is the largest batch sent to EmbedContent.
const geminiEmbedBatch = 100

type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
	All(ctx context.Context) iter.Seq2[*genai.Model, error]
}

// Gemini uses the Gemini API through the genai SDK. Repository context is
// uploaded to the Files API and referenced from the prompt by URI.
type Gemini struct {
	cfg    config.Config
	models geminiModels
	contextSession
}

func newGemini(ctx context.Context, cfg config.Config, deps Deps) (Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  deps.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.Model.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return newGeminiWith(cfg, deps, client.Models, client.Files), nil
}

func newGeminiWith(cfg config.Config, deps Deps, models geminiModels, files geminiFiles) *Gemini {
	g := &Gemini{cfg: cfg, models: models}
	g.contextSession = contextSession{
		cfg:      cfg,
		log:      deps.Logger,
		progress: deps.Progress,
		store:    newFileStore(files),
		embedder: rag.EmbedderFunc(g.embed),
	}
	return g
}

func (g *Gemini) Name() string  { return config.ProviderGemini }
func (g *Gemini) Model() string { return g.cfg.Model.Name }

func (g *Gemini) CheckConnection(ctx context.Context) error {
	if _, err := g.models.Get(ctx, g.cfg.Model.Name, nil); err != nil {
		return fmt.Errorf("checking model %s: %w", g.cfg.Model.Name, classifyGenAI(err))
	}
	return nil
}

func (g *Gemini) Models(ctx context.Context) ([]string, error) {
	var names []string
	for m, err := range g.models.All(ctx) {
		if err != nil {
			return nil, classifyGenAI(err)
		}
		names = append(names, strings.TrimPrefix(m.Name, "models/"))
	}
	return names, nil
}

func (g *Gemini) UploadContext(ctx context.Context, root string) (contextpack.Stats, error) {
	return g.upload(ctx, root)
}

func (g *Gemini) RemoveContext(ctx context.Context) { g.remove(ctx) }

func (g *Gemini) Execute(ctx context.Context, diff string) (Response, error) {
	pl, err := g.payload(ctx, diff)
	if err != nil {
		return Response{}, err
	}

	var parts []*genai.Part
	for _, text := range prompt.User(prompt.StyleAnalyze, diff, pl.Text) {
		parts = append(parts, &genai.Part{Text: text})
	}
	for _, op := range pl.Files {
		parts = append(parts, genai.NewPartFromURI(op.URI, op.MIMEType))
	}

	temp := float32(g.cfg.Model.Temperature)
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: prompt.System(g.cfg.Policy())}}},
		Temperature:       &temp,
		MaxOutputTokens:   int32(g.cfg.Model.MaxTokens),
	}

	ctx, cancel := withModelTimeout(ctx, g.cfg)
	defer cancel()

	var resp *genai.GenerateContentResponse
	err = retryWithBackoff(ctx, maxRetries, func() error {
		r, err := g.models.GenerateContent(ctx, g.cfg.Model.Name,
			[]*genai.Content{{Role: "user", Parts: parts}}, genCfg)
		if err != nil {
			return classifyGenAI(err)
		}
		resp = r
		return nil
	})
	if err != nil {
		return Response{}, err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Response{}, fmt.Errorf("no candidates in response")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		return Response{}, fmt.Errorf("empty text content in API response")
	}
	out := Response{Content: b.String(), Sources: pl.Sources}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

func (g *Gemini) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiEmbedBatch {
		end := min(start+geminiEmbedBatch, len(texts))
		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: t}}})
		}
		resp, err := g.models.EmbedContent(ctx, g.cfg.Model.Embedding, contents, nil)
		if err != nil {
			return nil, fmt.Errorf("embedding texts %d-%d: %w", start, end, classifyGenAI(err))
		}
		for _, e := range resp.Embeddings {
			vecs = append(vecs, e.Values)
		}
	}
	return vecs, nil
}

// classifyGenAI maps SDK errors onto the shared retry and auth errors.
func classifyGenAI(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == 401 || apiErr.Code == 403:
		return &authError{message: apiErr.Message}
	case apiErr.Code == 400 && strings.Contains(apiErr.Message, "API key"):
		return &authError{message: apiErr.Message}
	case apiErr.Code == 429:
		return &rateLimitError{}
	case apiErr.Code >= 500:
		return &serverError{statusCode: apiErr.Code, body: apiErr.Message}
	}
	return err
}
