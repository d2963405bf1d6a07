package retrieval_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/easyops/contextengine-go/pkg/chunk"
	"github.com/easyops/contextengine-go/pkg/core/errors"
	"github.com/easyops/contextengine-go/pkg/retrieval"
)

// mockBackend is a hand-rolled SearchBackend for failure injection.
type mockBackend struct {
	searchFunc func(ctx context.Context, vector []float32, limit int, scope *retrieval.Scope) ([]retrieval.SearchResult, error)
}

func (m *mockBackend) Add(ctx context.Context, scope *retrieval.Scope, chunks []chunk.Chunk) error {
	return nil
}

func (m *mockBackend) Search(ctx context.Context, vector []float32, limit int, scope *retrieval.Scope) ([]retrieval.SearchResult, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, vector, limit, scope)
	}
	return nil, nil
}

func (m *mockBackend) Delete(ctx context.Context, scope *retrieval.Scope, ids []string) error {
	return nil
}

func (m *mockBackend) Clear(ctx context.Context, scope *retrieval.Scope) error {
	return nil
}

func (m *mockBackend) Close() error {
	return nil
}

func seedBackend(t *testing.T, backend retrieval.SearchBackend, chunks []chunk.Chunk) {
	t.Helper()
	if err := backend.Add(context.Background(), nil, chunks); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
}

func TestPriorityRetriever_BoostedScore(t *testing.T) {
	backend := retrieval.NewInMemoryBackend()
	seedBackend(t, backend, []chunk.Chunk{
		{ID: "primary", Vector: []float32{1, 0}, Metadata: chunk.Metadata{Tier: chunk.TierConfirmedPrimary}},
		{ID: "secondary", Vector: []float32{1, 0}, Metadata: chunk.Metadata{Tier: chunk.TierConfirmedSecondary}},
		{ID: "unconfirmed", Vector: []float32{1, 0}, Metadata: chunk.Metadata{Tier: chunk.TierUnconfirmed}},
	})

	retriever := retrieval.NewPriorityRetriever(backend)
	results, err := retriever.Retrieve(context.Background(), []float32{1, 0}, 10, nil, nil)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// Raw similarity is 1.0 for all three, so boosted_score == multiplier
	expected := map[string]float32{
		"primary":     3.0,
		"secondary":   2.0,
		"unconfirmed": 1.0,
	}
	for _, c := range results {
		if c.BoostedScore != expected[c.ID] {
			t.Errorf("chunk %q boosted_score = %f, want %f", c.ID, c.BoostedScore, expected[c.ID])
		}
	}

	// Sorted descending by boosted_score
	if results[0].ID != "primary" || results[1].ID != "secondary" || results[2].ID != "unconfirmed" {
		t.Errorf("unexpected order: %s, %s, %s", results[0].ID, results[1].ID, results[2].ID)
	}
}

func TestPriorityRetriever_BoostOutranksRawScore(t *testing.T) {
	backend := retrieval.NewInMemoryBackend()
	seedBackend(t, backend, []chunk.Chunk{
		// Raw 0.9 but unconfirmed: boosted 0.9
		{ID: "close-unconfirmed", Vector: []float32{0.9, 0.43589}, Metadata: chunk.Metadata{Tier: chunk.TierUnconfirmed}},
		// Raw ~0.7 but primary: boosted ~2.1
		{ID: "far-primary", Vector: []float32{0.7, 0.714}, Metadata: chunk.Metadata{Tier: chunk.TierConfirmedPrimary}},
	})

	retriever := retrieval.NewPriorityRetriever(backend)
	results, err := retriever.Retrieve(context.Background(), []float32{1, 0}, 10, nil, nil)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].ID != "far-primary" {
		t.Errorf("tier boost should outrank raw similarity, got %q first", results[0].ID)
	}
}

func TestPriorityRetriever_UntaggedIncluded(t *testing.T) {
	backend := retrieval.NewInMemoryBackend()
	seedBackend(t, backend, []chunk.Chunk{
		{ID: "legacy", Vector: []float32{1, 0}},
		{ID: "primary", Vector: []float32{1, 0}, Metadata: chunk.Metadata{Tier: chunk.TierConfirmedPrimary}},
	})

	retriever := retrieval.NewPriorityRetriever(backend)
	results, err := retriever.Retrieve(context.Background(), []float32{1, 0}, 10, nil, nil)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected legacy chunk included, got %d results", len(results))
	}

	for _, c := range results {
		if c.ID == "legacy" && c.BoostedScore != c.Score {
			t.Errorf("untagged chunk should keep multiplier 1.0, got boosted %f for raw %f", c.BoostedScore, c.Score)
		}
	}
}

func TestPriorityRetriever_TopK(t *testing.T) {
	backend := retrieval.NewInMemoryBackend()
	var chunks []chunk.Chunk
	for i := 0; i < 20; i++ {
		chunks = append(chunks, chunk.Chunk{
			ID:       chunk.NewID(),
			Vector:   []float32{1, float32(i) * 0.05},
			Metadata: chunk.Metadata{Tier: chunk.TierUnconfirmed},
		})
	}
	seedBackend(t, backend, chunks)

	retriever := retrieval.NewPriorityRetriever(backend)
	results, err := retriever.Retrieve(context.Background(), []float32{1, 0}, 5, nil, nil)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("expected 5 results, got %d", len(results))
	}
}

func TestPriorityRetriever_ZeroTopK(t *testing.T) {
	retriever := retrieval.NewPriorityRetriever(retrieval.NewInMemoryBackend())
	results, err := retriever.Retrieve(context.Background(), []float32{1, 0}, 0, nil, nil)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for topK 0, got %d", len(results))
	}
}

func TestPriorityRetriever_EmptyVector(t *testing.T) {
	retriever := retrieval.NewPriorityRetriever(retrieval.NewInMemoryBackend())
	_, err := retriever.Retrieve(context.Background(), nil, 10, nil, nil)
	if !stderrors.Is(err, errors.ErrEmptyVector) {
		t.Fatalf("expected ErrEmptyVector, got %v", err)
	}
}

func TestPriorityRetriever_DimensionMismatch(t *testing.T) {
	retriever := retrieval.NewPriorityRetriever(retrieval.NewInMemoryBackend(),
		retrieval.WithDimensions(3),
	)
	_, err := retriever.Retrieve(context.Background(), []float32{1, 0}, 10, nil, nil)
	if !stderrors.Is(err, errors.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestPriorityRetriever_BackendFailureIsolated(t *testing.T) {
	backend := &mockBackend{
		searchFunc: func(ctx context.Context, vector []float32, limit int, scope *retrieval.Scope) ([]retrieval.SearchResult, error) {
			return nil, stderrors.New("backend unavailable")
		},
	}

	retriever := retrieval.NewPriorityRetriever(backend)
	results, err := retriever.Retrieve(context.Background(), []float32{1, 0}, 10, nil, nil)

	// A failing backend never aborts retrieval: empty contribution, no error
	if err != nil {
		t.Fatalf("expected no error on backend failure, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
}

func TestPriorityRetriever_FilterByCategory(t *testing.T) {
	backend := retrieval.NewInMemoryBackend()
	seedBackend(t, backend, []chunk.Chunk{
		{ID: "a", Vector: []float32{1, 0}, Metadata: chunk.Metadata{Tier: chunk.TierUnconfirmed, Category: "design"}},
		{ID: "b", Vector: []float32{1, 0}, Metadata: chunk.Metadata{Tier: chunk.TierUnconfirmed, Category: "code"}},
	})

	retriever := retrieval.NewPriorityRetriever(backend)
	results, err := retriever.Retrieve(context.Background(), []float32{1, 0}, 10,
		&retrieval.Filter{Category: "design"}, nil)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("expected only category 'design', got %d results", len(results))
	}
}

func TestPriorityRetriever_BoostDisabled(t *testing.T) {
	backend := retrieval.NewInMemoryBackend()
	seedBackend(t, backend, []chunk.Chunk{
		{ID: "primary", Vector: []float32{1, 0}, Metadata: chunk.Metadata{Tier: chunk.TierConfirmedPrimary}},
	})

	retriever := retrieval.NewPriorityRetriever(backend, retrieval.WithBoostDisabled())
	results, err := retriever.Retrieve(context.Background(), []float32{1, 0}, 10, nil, nil)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].BoostedScore != results[0].Score {
		t.Errorf("boost disabled: boosted %f should equal raw %f", results[0].BoostedScore, results[0].Score)
	}
}
