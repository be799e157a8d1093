package rag

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"math"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/codefox/internal/collect"
	"github.com/dshills/codefox/internal/diag"
)

var (
	// ErrNoEmbedder is returned when Build is called without an embedder.
	ErrNoEmbedder = errors.New("no embedder configured")
	// ErrDimensionMismatch means the query vector and the index vectors come
	// from different embedding spaces.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder turns texts into vectors. It returns one vector per input, in
// input order, all of the same dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderFunc adapts a function to Embedder.
type EmbedderFunc func(ctx context.Context, texts []string) ([][]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}

// Chunk is one retrievable piece of a file.
type Chunk struct {
	SourcePath string
	Text       string
	Embedding  []float32
}

// BuildOptions tunes Build.
type BuildOptions struct {
	ChunkSize int
	// MemoSize bounds the number of distinct chunk texts remembered while
	// deduplicating the embedding request. Zero means 4096.
	MemoSize int
	Logger   diag.Logger
}

// Index is an exact-vector index. It is read-only once built.
type Index struct {
	chunks []Chunk
	dim    int
	emb    Embedder
	log    diag.Logger
}

// Build chunks every file and embeds all chunks in one call. Identical chunk
// texts are sent once. When the embedder fails or returns nothing the index
// is empty and a warning is logged; Build itself only fails for a missing
// embedder or a cancelled context.
func Build(ctx context.Context, emb Embedder, files []collect.FileRecord, opts BuildOptions) (*Index, error) {
	if emb == nil {
		return nil, ErrNoEmbedder
	}
	log := diag.OrNop(opts.Logger)
	idx := &Index{emb: emb, log: log}

	type pending struct {
		path string
		text string
		slot int
	}
	memoSize := opts.MemoSize
	if memoSize <= 0 {
		memoSize = 4096
	}
	memo, err := lru.New[[32]byte, int](memoSize)
	if err != nil {
		return nil, fmt.Errorf("creating chunk memo: %w", err)
	}

	var (
		items  []pending
		unique []string
	)
	for _, f := range files {
		for _, text := range ChunkText(f.Content, opts.ChunkSize) {
			key := sha256.Sum256([]byte(text))
			slot, ok := memo.Get(key)
			if !ok {
				slot = len(unique)
				unique = append(unique, text)
				memo.Add(key, slot)
			}
			items = append(items, pending{path: f.Path, text: text, slot: slot})
		}
	}
	if len(items) == 0 {
		log.Infof("no chunks to index")
		return idx, nil
	}

	vectors, err := emb.Embed(ctx, unique)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warnf("embedding %d chunks failed, continuing without retrieved context: %v", len(unique), err)
		return idx, nil
	}
	if len(vectors) == 0 {
		log.Warnf("embedding service returned no vectors, continuing without retrieved context")
		return idx, nil
	}
	if len(vectors) != len(unique) {
		log.Warnf("embedding service returned %d vectors for %d chunks, indexing the first %d",
			len(vectors), len(unique), min(len(vectors), len(unique)))
	}

	dropped := 0
	for _, it := range items {
		if it.slot >= len(vectors) {
			dropped++
			continue
		}
		vec := vectors[it.slot]
		if len(vec) == 0 {
			dropped++
			continue
		}
		if idx.dim == 0 {
			idx.dim = len(vec)
		}
		if len(vec) != idx.dim {
			dropped++
			continue
		}
		idx.chunks = append(idx.chunks, Chunk{SourcePath: it.path, Text: it.text, Embedding: vec})
	}
	if dropped > 0 {
		log.Warnf("%d chunks were not indexed (missing or malformed vectors)", dropped)
	}
	log.Infof("indexed %d chunks from %d files", len(idx.chunks), len(files))
	return idx, nil
}

// Len is the number of indexed chunks.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.chunks)
}

// Dim is the vector dimension, or 0 for an empty index.
func (x *Index) Dim() int {
	if x == nil {
		return 0
	}
	return x.dim
}

// Chunks returns the indexed chunks in insertion order.
func (x *Index) Chunks() []Chunk {
	if x == nil {
		return nil
	}
	out := make([]Chunk, len(x.chunks))
	copy(out, x.chunks)
	return out
}

// Result is a scored chunk.
type Result struct {
	Chunk
	Score float64
}

// Search embeds query and returns at most min(k, Len()) chunks ordered by
// descending cosine similarity. The query is embedded on every call.
//
// An empty index or k <= 0 returns no results without calling the embedder.
// A failed query embedding is logged and returns no results. A query vector
// whose dimension differs from the index returns ErrDimensionMismatch.
func (x *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if x.Len() == 0 || k <= 0 {
		return nil, nil
	}
	vecs, err := x.emb.Embed(ctx, []string{query})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		x.log.Warnf("embedding the query failed, continuing without retrieved context: %v", err)
		return nil, nil
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		x.log.Warnf("embedding service returned no query vector, continuing without retrieved context")
		return nil, nil
	}
	q := vecs[0]
	if len(q) != x.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(q), x.dim)
	}

	results := make([]Result, len(x.chunks))
	for i, c := range x.chunks {
		results[i] = Result{Chunk: c, Score: CosineSimilarity(q, c.Embedding)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results[:min(k, len(results))], nil
}

// CosineSimilarity is dot(a,b) / (|a|*|b| + 1e-8). It returns 0 when the
// lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + 1e-8)
}
