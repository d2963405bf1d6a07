package engine_test

import (
	"context"
	"strings"
	"testing"

	"github.com/easyops/contextengine-go/pkg/chunk"
	"github.com/easyops/contextengine-go/pkg/core/config"
	"github.com/easyops/contextengine-go/pkg/engine"
	"github.com/easyops/contextengine-go/pkg/retrieval"
	"github.com/easyops/contextengine-go/pkg/token"
)

func newEngine(t *testing.T, opts ...engine.Option) *engine.Engine {
	t.Helper()
	base := []engine.Option{engine.WithCounter(token.NewEstimatedCounter())}
	e := engine.New(append(base, opts...)...)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNew_Defaults(t *testing.T) {
	e := newEngine(t)

	if e.Backend() == nil {
		t.Error("expected default backend")
	}
	if e.Counter() == nil {
		t.Error("expected counter")
	}
}

func TestEngine_IngestAndRetrieveText(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	scope := &retrieval.Scope{TenantID: "tenant-1"}

	// Chunks without vectors are embedded on ingest
	chunks := []chunk.Chunk{
		{ID: "deploy", Content: "deployment runbook for the billing service",
			Metadata: chunk.Metadata{Tier: chunk.TierConfirmedPrimary, Category: "runbook"}},
		{ID: "style", Content: "code style conventions",
			Metadata: chunk.Metadata{Tier: chunk.TierUnconfirmed, Category: "docs"}},
	}
	if err := e.Ingest(ctx, scope, chunks); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	// The deterministic embedder maps identical text to identical vectors,
	// so querying with the stored text yields similarity 1.0
	results, err := e.RetrieveAndRankText(ctx, "deployment runbook for the billing service", 10, nil, scope)
	if err != nil {
		t.Fatalf("RetrieveAndRankText failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].ID != "deploy" {
		t.Errorf("expected exact-text match first, got %q", results[0].ID)
	}
}

func TestEngine_RetrieveAndRank_DedupApplied(t *testing.T) {
	backend := retrieval.NewInMemoryBackend()
	_ = newEngine(t, engine.WithBackend(backend))
	ctx := context.Background()

	// Two chunks with identical vectors collapse to one after dedup
	err := backend.Add(ctx, nil, []chunk.Chunk{
		{ID: "a", Vector: []float32{1, 0}, Metadata: chunk.Metadata{Tier: chunk.TierUnconfirmed}},
		{ID: "b", Vector: []float32{1, 0}, Metadata: chunk.Metadata{Tier: chunk.TierUnconfirmed}},
		{ID: "c", Vector: []float32{0, 1}, Metadata: chunk.Metadata{Tier: chunk.TierUnconfirmed}},
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	retriever := retrieval.NewPriorityRetriever(backend)
	results, err := engine.New(
		engine.WithCounter(token.NewEstimatedCounter()),
		engine.WithBackend(backend),
		engine.WithRetriever(retriever),
	).RetrieveAndRank(ctx, []float32{1, 0}, 10, nil, nil)
	if err != nil {
		t.Fatalf("RetrieveAndRank failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 chunks after dedup, got %d", len(results))
	}
}

func TestEngine_ScopeIsolation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	tenantA := &retrieval.Scope{TenantID: "tenant-a"}
	tenantB := &retrieval.Scope{TenantID: "tenant-b"}

	if err := e.Ingest(ctx, tenantA, []chunk.Chunk{{ID: "secret", Content: "tenant-a data"}}); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	results, err := e.RetrieveAndRankText(ctx, "tenant-a data", 10, nil, tenantB)
	if err != nil {
		t.Fatalf("RetrieveAndRankText failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("tenant-b should not see tenant-a chunks, got %d", len(results))
	}
}

func TestEngine_Allocate(t *testing.T) {
	e := newEngine(t)

	result := e.Allocate(context.Background(), map[string]interface{}{
		"system_prompt": strings.Repeat("a", 400),
		"task":          strings.Repeat("b", 200),
	})

	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if len(result.Allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(result.Allocations))
	}
	if !result.WithinBudget {
		t.Error("small components should be within budget")
	}
}

func TestEngine_TruncateToolResult(t *testing.T) {
	e := newEngine(t)

	result := e.TruncateToolResult(context.Background(), "vector_search", map[string]interface{}{
		"results": []interface{}{map[string]interface{}{"content": "short"}},
	})
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if _, ok := result["results"]; !ok {
		t.Error("expected results preserved")
	}
}

func TestNewFromConfig_MemoryBackend(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	e, err := engine.NewFromConfig(cfg, engine.WithCounter(token.NewEstimatedCounter()))
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	defer e.Close()

	if _, ok := e.Backend().(*retrieval.InMemoryBackend); !ok {
		t.Errorf("expected in-memory backend from defaults, got %T", e.Backend())
	}
}
