package providers

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dshills/codefox/internal/config"
	"github.com/dshills/codefox/internal/contextpack"
	"github.com/dshills/codefox/internal/diag"
	"github.com/dshills/codefox/internal/ignore"
	"github.com/dshills/codefox/internal/rag"
	"github.com/dshills/codefox/internal/upload"
)

// Response is the model's answer to one review.
type Response struct {
	Content    string
	TokensUsed int
	// Sources lists the repository files whose content was sent as context.
	Sources []string
}

// Provider runs a review against one model backend.
//
// A session is: CheckConnection, UploadContext, Execute, RemoveContext.
// RemoveContext must be called once UploadContext has been attempted, even if
// it or Execute failed.
type Provider interface {
	Name() string
	Model() string
	CheckConnection(ctx context.Context) error
	UploadContext(ctx context.Context, root string) (contextpack.Stats, error)
	Execute(ctx context.Context, diff string) (Response, error)
	RemoveContext(ctx context.Context)
	// Models lists the model names the backend offers.
	Models(ctx context.Context) ([]string, error)
}

// Deps are the collaborators a provider is built with.
type Deps struct {
	Logger     diag.Logger
	HTTPClient *http.Client
	// Progress receives upload progress in remote-store mode.
	Progress upload.ProgressFunc
}

type constructor func(ctx context.Context, cfg config.Config, deps Deps) (Provider, error)

var registry = map[string]constructor{
	config.ProviderGemini: newGemini,
	config.ProviderQwen:   newQwen,
	config.ProviderOllama: newOllama,
}

// Names returns the registered provider names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New creates the provider selected by cfg.Provider.
func New(ctx context.Context, cfg config.Config, deps Deps) (Provider, error) {
	ctor, ok := registry[strings.ToLower(cfg.Provider)]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{}
	}
	deps.Logger = diag.OrNop(deps.Logger)
	return ctor(ctx, cfg, deps)
}

// ListModels returns the models offered by the configured backend.
func ListModels(ctx context.Context, cfg config.Config, deps Deps) ([]string, error) {
	p, err := New(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}
	models, err := p.Models(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing %s models: %w", p.Name(), err)
	}
	slices.Sort(models)
	return models, nil
}

// contextSession owns the context assembler for one provider session.
type contextSession struct {
	cfg      config.Config
	log      diag.Logger
	progress upload.ProgressFunc
	store    upload.Store
	embedder rag.Embedder

	asm *contextpack.Assembler
}

func (s *contextSession) upload(ctx context.Context, root string) (contextpack.Stats, error) {
	spec, err := ignore.Load(filepath.Join(root, s.cfg.Context.IgnoreFile))
	if err != nil {
		return contextpack.Stats{}, err
	}
	asm, err := contextpack.New(contextpack.Options{
		Mode:       s.cfg.Context.Mode,
		Ignore:     spec,
		Extensions: s.cfg.Context.Extensions,
		Store:      s.store,
		Upload: upload.Options{
			Workers:      s.cfg.Context.UploadWorkers,
			PollInterval: s.cfg.Context.PollInterval,
			Timeout:      s.cfg.Context.UploadTimeout,
			Progress:     s.progress,
			Logger:       s.log,
		},
		Embedder:        s.embedder,
		ChunkSize:       s.cfg.Context.ChunkSize,
		TopK:            s.cfg.Context.TopK,
		InlineCharCap:   s.cfg.Context.InlineCharCap,
		MaxContextChars: s.cfg.Context.MaxContextChars,
		RedactSecrets:   s.cfg.Privacy.RedactSecrets,
		RedactPaths:     s.cfg.Privacy.RedactPaths,
		Logger:          s.log,
	})
	if err != nil {
		return contextpack.Stats{}, err
	}
	s.asm = asm
	return asm.Prepare(ctx, root)
}

// payload assembles context for diff. Without a prepared session the
// review runs on the diff alone.
func (s *contextSession) payload(ctx context.Context, diff string) (contextpack.Payload, error) {
	if s.asm == nil {
		return contextpack.Payload{Mode: contextpack.ModeDiffOnly}, nil
	}
	return s.asm.Assemble(ctx, diff)
}

func (s *contextSession) remove(ctx context.Context) {
	if s.asm != nil {
		s.asm.Release(ctx)
	}
}

// withModelTimeout bounds a model call by the configured timeout.
func withModelTimeout(ctx context.Context, cfg config.Config) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, cfg.Model.Timeout)
}
