package workers

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"
)

// Embedder turns text into vectors for similarity search.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// HashEmbedder is a deterministic, model-free embedder. Tokens are
// hashed into a fixed number of buckets and the vector is
// L2-normalized. No semantics, but stable and fast, which keeps
// retrieval working when no embedding model is reachable.
type HashEmbedder struct {
	Dimension int
}

func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &HashEmbedder{Dimension: dimension}
}

func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = h.embed(text)
	}
	return vectors, nil
}

func (h *HashEmbedder) embed(text string) []float32 {
	vec := make([]float32, h.Dimension)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		hs := fnv.New32a()
		hs.Write([]byte(token))
		vec[int(hs.Sum32())%h.Dimension]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// SearchResult pairs a chunk with its similarity to the query.
type SearchResult struct {
	Chunk Chunk
	Score float32
}

// MemoryVectorIndex is an in-process vector index over chunk
// embeddings. One index is built per question document set and cached
// by the RAG worker. Not safe for concurrent mutation.
type MemoryVectorIndex struct {
	chunks  []Chunk
	vectors [][]float32
}

func (ix *MemoryVectorIndex) Add(chunk Chunk, vector []float32) {
	ix.chunks = append(ix.chunks, chunk)
	ix.vectors = append(ix.vectors, vector)
}

func (ix *MemoryVectorIndex) Len() int {
	return len(ix.chunks)
}

// Search returns the topK most similar chunks, best first.
func (ix *MemoryVectorIndex) Search(query []float32, topK int) []SearchResult {
	results := make([]SearchResult, 0, len(ix.chunks))
	for i, chunk := range ix.chunks {
		results = append(results, SearchResult{
			Chunk: chunk,
			Score: cosineSimilarity(query, ix.vectors[i]),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}
