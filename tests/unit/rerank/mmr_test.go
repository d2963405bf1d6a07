package rerank_test

import (
	"testing"

	"github.com/easyops/contextengine-go/pkg/chunk"
	"github.com/easyops/contextengine-go/pkg/rerank"
)

func TestRerank_Empty(t *testing.T) {
	r := rerank.NewMMRReranker()
	if result := r.Rerank(nil); len(result) != 0 {
		t.Errorf("expected empty result, got %d", len(result))
	}
}

func TestRerank_SingleChunk(t *testing.T) {
	r := rerank.NewMMRReranker()

	chunks := []chunk.Chunk{{ID: "only", Vector: []float32{1, 0}, Score: 0.9}}
	result := r.Rerank(chunks)

	if len(result) != 1 || result[0].ID != "only" {
		t.Fatal("single chunk should pass through unchanged")
	}
}

func TestRerank_Permutation(t *testing.T) {
	r := rerank.NewMMRReranker()

	chunks := []chunk.Chunk{
		{ID: "a", Vector: []float32{1, 0}, Score: 0.9},
		{ID: "b", Vector: []float32{0.99, 0.141}, Score: 0.8},
		{ID: "c", Vector: []float32{0, 1}, Score: 0.5},
		{ID: "plain", Score: 0.4},
	}

	result := r.Rerank(chunks)

	// Output must be a permutation: nothing dropped, nothing added
	if len(result) != len(chunks) {
		t.Fatalf("expected %d chunks, got %d", len(chunks), len(result))
	}
	seen := make(map[string]int)
	for _, c := range result {
		seen[c.ID]++
	}
	for _, c := range chunks {
		if seen[c.ID] != 1 {
			t.Errorf("chunk %q appears %d times in output", c.ID, seen[c.ID])
		}
	}
}

func TestRerank_SeedIsHighestScore(t *testing.T) {
	r := rerank.NewMMRReranker()

	chunks := []chunk.Chunk{
		{ID: "low", Vector: []float32{1, 0}, Score: 0.3},
		{ID: "high", Vector: []float32{0, 1}, Score: 0.9},
	}

	result := r.Rerank(chunks)
	if result[0].ID != "high" {
		t.Errorf("expected highest-score chunk first, got %q", result[0].ID)
	}
}

func TestRerank_PureRelevance(t *testing.T) {
	// α = 1: diversity penalty ignored, pure relevance order
	r := rerank.NewMMRReranker(rerank.WithAlpha(1.0))

	chunks := []chunk.Chunk{
		{ID: "c", Vector: []float32{1, 0}, Score: 0.5},
		{ID: "a", Vector: []float32{0.99, 0.141}, Score: 0.9},
		{ID: "b", Vector: []float32{0.98, 0.199}, Score: 0.7},
	}

	result := r.Rerank(chunks)
	if result[0].ID != "a" || result[1].ID != "b" || result[2].ID != "c" {
		t.Errorf("expected relevance order [a, b, c], got [%s, %s, %s]",
			result[0].ID, result[1].ID, result[2].ID)
	}
}

func TestRerank_PureDiversity(t *testing.T) {
	// α = 0: after the seed, relevance is ignored entirely and the
	// candidate least similar to everything already chosen wins.
	r := rerank.NewMMRReranker(rerank.WithAlpha(0))

	chunks := []chunk.Chunk{
		{ID: "seed", Vector: []float32{1, 0}, Score: 0.9},
		{ID: "close-high", Vector: []float32{0.99, 0.141}, Score: 0.85},
		{ID: "far-low", Vector: []float32{0, 1}, Score: 0.2},
	}

	result := r.Rerank(chunks)
	if result[0].ID != "seed" {
		t.Fatalf("expected seed first, got %q", result[0].ID)
	}
	if result[1].ID != "far-low" {
		t.Errorf("expected least-similar chunk second despite its lower score, got %q", result[1].ID)
	}
	if result[2].ID != "close-high" {
		t.Errorf("expected near-duplicate last, got %q", result[2].ID)
	}
}

func TestRerank_DiversityPenalty(t *testing.T) {
	r := rerank.NewMMRReranker(rerank.WithAlpha(0.5))

	// near-dup is nearly identical to the seed; diverse is orthogonal.
	// With α=0.5 the redundant chunk is penalized below the diverse one
	// despite its higher raw score.
	chunks := []chunk.Chunk{
		{ID: "seed", Vector: []float32{1, 0}, Score: 0.9},
		{ID: "near-dup", Vector: []float32{0.995, 0.0999}, Score: 0.85},
		{ID: "diverse", Vector: []float32{0, 1}, Score: 0.5},
	}

	result := r.Rerank(chunks)
	if result[0].ID != "seed" {
		t.Fatalf("expected seed first, got %q", result[0].ID)
	}
	if result[1].ID != "diverse" {
		t.Errorf("expected diverse chunk promoted over near-duplicate, got %q", result[1].ID)
	}
}

func TestRerank_PlainChunksAppended(t *testing.T) {
	r := rerank.NewMMRReranker()

	chunks := []chunk.Chunk{
		{ID: "plain1", Score: 0.95},
		{ID: "a", Vector: []float32{1, 0}, Score: 0.9},
		{ID: "plain2", Score: 0.1},
		{ID: "b", Vector: []float32{0, 1}, Score: 0.8},
	}

	result := r.Rerank(chunks)
	if len(result) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(result))
	}

	// Chunks without vectors stay at the tail in original order
	if result[2].ID != "plain1" || result[3].ID != "plain2" {
		t.Errorf("expected plain chunks appended in order, got [%s, %s]", result[2].ID, result[3].ID)
	}
}

func TestRerank_DoesNotMutateInput(t *testing.T) {
	r := rerank.NewMMRReranker()

	chunks := []chunk.Chunk{
		{ID: "a", Vector: []float32{1, 0}, Score: 0.3},
		{ID: "b", Vector: []float32{0, 1}, Score: 0.9},
	}

	r.Rerank(chunks)
	if chunks[0].ID != "a" || chunks[1].ID != "b" {
		t.Error("Rerank should not mutate the input slice")
	}
}

func TestWithAlpha_Clamped(t *testing.T) {
	low := rerank.NewMMRReranker(rerank.WithAlpha(-0.5))
	if low.Alpha() != 0 {
		t.Errorf("alpha should clamp to 0, got %f", low.Alpha())
	}

	high := rerank.NewMMRReranker(rerank.WithAlpha(1.5))
	if high.Alpha() != 1 {
		t.Errorf("alpha should clamp to 1, got %f", high.Alpha())
	}
}
