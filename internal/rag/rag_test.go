package rag

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codefox/internal/collect"
	"github.com/dshills/codefox/internal/diag"
)

// bigramEmbedder maps text to hashed character-bigram counts.
type bigramEmbedder struct {
	dim   int
	calls atomic.Int32
	batch [][]string
}

func (b *bigramEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	b.calls.Add(1)
	b.batch = append(b.batch, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, b.dim)
		r := []rune(t)
		for j := 0; j+1 < len(r); j++ {
			h := fnv.New32a()
			h.Write([]byte(string(r[j : j+2])))
			v[h.Sum32()%uint32(b.dim)]++
		}
		out[i] = v
	}
	return out, nil
}

func TestSplit_Lengths(t *testing.T) {
	text := strings.Repeat("a", 2000)
	pieces := Split(text, 800)
	require.Len(t, pieces, 3)
	assert.Equal(t, []int{800, 800, 400}, []int{len(pieces[0]), len(pieces[1]), len(pieces[2])})
	assert.Equal(t, pieces, ChunkText(text, 800))
}

func TestSplit_Reconstructs(t *testing.T) {
	texts := []string{
		"",
		"x",
		strings.Repeat("héllo wörld ", 150),
		strings.Repeat("package main\n", 61) + strings.Repeat(" ", 1600) + "func main() {}\n",
	}
	for _, text := range texts {
		for _, size := range []int{1, 7, 800} {
			pieces := Split(text, size)
			n := len([]rune(text))
			assert.Equal(t, (n+size-1)/size, len(pieces))
			assert.Equal(t, text, strings.Join(pieces, ""))

			var nonBlank strings.Builder
			for _, p := range pieces {
				if strings.TrimSpace(p) != "" {
					nonBlank.WriteString(p)
				}
			}
			assert.Equal(t, nonBlank.String(), strings.Join(ChunkText(text, size), ""))
		}
	}
}

func TestChunkText_DropsWhitespaceOnly(t *testing.T) {
	text := strings.Repeat("a", 10) + strings.Repeat(" \n\t", 10) + "b"
	chunks := ChunkText(text, 10)
	// 41 characters: one letter chunk, three blank chunks, then "b".
	require.Len(t, chunks, 2)
	assert.True(t, strings.HasSuffix(chunks[1], "b"))
}

func TestSplit_CountsCodePoints(t *testing.T) {
	text := strings.Repeat("日本語", 300) // 900 code points, 2700 bytes
	pieces := Split(text, 800)
	require.Len(t, pieces, 2)
	assert.Equal(t, 800, len([]rune(pieces[0])))
	assert.Equal(t, 100, len([]rune(pieces[1])))
}

func TestBuild_SingleEmbedCall(t *testing.T) {
	emb := &bigramEmbedder{dim: 128}
	files := []collect.FileRecord{
		{Path: "a.go", Content: strings.Repeat("a", 1700)},
		{Path: "b.go", Content: "package b"},
		{Path: "empty.go", Content: "   \n"},
	}
	idx, err := Build(context.Background(), emb, files, BuildOptions{ChunkSize: 800})
	require.NoError(t, err)

	assert.EqualValues(t, 1, emb.calls.Load())
	// a.go yields three chunks but the first two are identical and sent once.
	assert.Len(t, emb.batch[0], 3)
	assert.Equal(t, 4, idx.Len())
	assert.Equal(t, 128, idx.Dim())

	chunks := idx.Chunks()
	assert.Equal(t, "a.go", chunks[0].SourcePath)
	assert.Equal(t, "b.go", chunks[3].SourcePath)
	assert.Equal(t, chunks[0].Embedding, chunks[1].Embedding)
}

func TestBuild_EmbeddingFailureDegrades(t *testing.T) {
	rec := &diag.Recorder{}
	emb := EmbedderFunc(func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("service unavailable")
	})
	idx, err := Build(context.Background(), emb, []collect.FileRecord{{Path: "a.go", Content: "x"}}, BuildOptions{Logger: rec})
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, 1, rec.Count("warning"))

	res, err := idx.Search(context.Background(), "x", 5)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestBuild_NoVectors(t *testing.T) {
	emb := EmbedderFunc(func(context.Context, []string) ([][]float32, error) {
		return [][]float32{}, nil
	})
	idx, err := Build(context.Background(), emb, []collect.FileRecord{{Path: "a.go", Content: "x"}}, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
}

func TestBuild_ShortVectorListIsZipped(t *testing.T) {
	rec := &diag.Recorder{}
	emb := EmbedderFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	})
	files := []collect.FileRecord{{Path: "a.go", Content: "one"}, {Path: "b.go", Content: "two"}}
	idx, err := Build(context.Background(), emb, files, BuildOptions{Logger: rec})
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())
	assert.Equal(t, "a.go", idx.Chunks()[0].SourcePath)
	assert.GreaterOrEqual(t, rec.Count("warning"), 1)
}

func TestBuild_ZeroChunks(t *testing.T) {
	emb := &bigramEmbedder{dim: 8}
	idx, err := Build(context.Background(), emb, nil, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
	assert.EqualValues(t, 0, emb.calls.Load())
}

func TestBuild_NilEmbedder(t *testing.T) {
	_, err := Build(context.Background(), nil, nil, BuildOptions{})
	assert.ErrorIs(t, err, ErrNoEmbedder)
}

func TestSearch_ExactTextRanksFirst(t *testing.T) {
	emb := &bigramEmbedder{dim: 256}
	files := []collect.FileRecord{
		{Path: "db.go", Content: "func OpenDatabase(dsn string) (*sql.DB, error)"},
		{Path: "http.go", Content: "func ServeHTTP(w http.ResponseWriter, r *http.Request)"},
		{Path: "math.go", Content: "func Sqrt(x float64) float64 { return math.Sqrt(x) }"},
	}
	idx, err := Build(context.Background(), emb, files, BuildOptions{})
	require.NoError(t, err)

	res, err := idx.Search(context.Background(), files[1].Content, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "http.go", res[0].SourcePath)
	assert.InDelta(t, 1.0, res[0].Score, 1e-6)
	assert.Less(t, res[1].Score, res[0].Score)
}

func TestSearch_NoCachingBetweenQueries(t *testing.T) {
	emb := &bigramEmbedder{dim: 32}
	idx, err := Build(context.Background(), emb, []collect.FileRecord{{Path: "a.go", Content: "abc"}}, BuildOptions{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := idx.Search(context.Background(), "abc", 1)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 4, emb.calls.Load())
}

func TestSearch_AtMostMinKSize(t *testing.T) {
	emb := &bigramEmbedder{dim: 64}
	files := []collect.FileRecord{{Path: "a", Content: "alpha"}, {Path: "b", Content: "beta"}}
	idx, err := Build(context.Background(), emb, files, BuildOptions{})
	require.NoError(t, err)

	res, err := idx.Search(context.Background(), "alphabet", 8)
	require.NoError(t, err)
	assert.Len(t, res, 2)

	res, err = idx.Search(context.Background(), "alphabet", 0)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSearch_EmptyIndexSkipsEmbedder(t *testing.T) {
	emb := &bigramEmbedder{dim: 8}
	idx, err := Build(context.Background(), emb, nil, BuildOptions{})
	require.NoError(t, err)
	res, err := idx.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.EqualValues(t, 0, emb.calls.Load())
}

func TestSearch_StableTies(t *testing.T) {
	emb := EmbedderFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 1}
		}
		return out, nil
	})
	files := []collect.FileRecord{{Path: "1", Content: "a"}, {Path: "2", Content: "b"}, {Path: "3", Content: "c"}}
	idx, err := Build(context.Background(), emb, files, BuildOptions{})
	require.NoError(t, err)

	res, err := idx.Search(context.Background(), "q", 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{res[0].SourcePath, res[1].SourcePath, res[2].SourcePath})
}

func TestSearch_DimensionMismatch(t *testing.T) {
	calls := 0
	emb := EmbedderFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 1 {
			return [][]float32{{1, 2, 3}}, nil
		}
		return [][]float32{{1, 2}}, nil
	})
	idx, err := Build(context.Background(), emb, []collect.FileRecord{{Path: "a", Content: "a"}}, BuildOptions{})
	require.NoError(t, err)

	_, err = idx.Search(context.Background(), "q", 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearch_QueryEmbeddingFailure(t *testing.T) {
	rec := &diag.Recorder{}
	calls := 0
	emb := EmbedderFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 1 {
			return [][]float32{{1, 0}}, nil
		}
		return nil, errors.New("timeout")
	})
	idx, err := Build(context.Background(), emb, []collect.FileRecord{{Path: "a", Content: "a"}}, BuildOptions{Logger: rec})
	require.NoError(t, err)

	res, err := idx.Search(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Equal(t, 1, rec.Count("warning"))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			assert.False(t, math.IsNaN(got))
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}
