// Package engine 提供上下文组装引擎的统一入口
//
// 将检索、去重、重排、预算分配和工具结果截断组合为一条
// 完整的上下文组装流水线，供上层 Agent/对话层调用。
package engine

import (
	"context"
	"time"

	"github.com/easyops/contextengine-go/pkg/budget"
	"github.com/easyops/contextengine-go/pkg/chunk"
	"github.com/easyops/contextengine-go/pkg/core/config"
	"github.com/easyops/contextengine-go/pkg/dedup"
	"github.com/easyops/contextengine-go/pkg/embedding"
	"github.com/easyops/contextengine-go/pkg/otel"
	"github.com/easyops/contextengine-go/pkg/rerank"
	"github.com/easyops/contextengine-go/pkg/retrieval"
	"github.com/easyops/contextengine-go/pkg/token"
	"github.com/easyops/contextengine-go/pkg/toolout"
)

// Engine 上下文组装引擎
//
// 所有阶段共享同一个 Token 计数器和可观测性组件。
// Engine 本身无可变状态，可被并发调用。
type Engine struct {
	backend       retrieval.SearchBackend
	retriever     retrieval.Retriever
	retrieverOpts []retrieval.PriorityOption
	dedup         *dedup.Deduplicator
	reranker      *rerank.MMRReranker
	budget        *budget.Manager
	truncator     *toolout.Truncator
	embedder      embedding.Embedder
	counter       token.Counter
	logger        otel.Logger
	tracer        otel.Tracer
	metrics       otel.Metrics
}

// Option 配置 Engine。
type Option func(*Engine)

// WithBackend 设置搜索后端（用于构造默认检索器和数据写入）。
func WithBackend(backend retrieval.SearchBackend) Option {
	return func(e *Engine) {
		e.backend = backend
	}
}

// WithRetriever 设置检索器。
func WithRetriever(retriever retrieval.Retriever) Option {
	return func(e *Engine) {
		e.retriever = retriever
	}
}

// WithRetrieverOptions 为默认检索器附加配置选项。
// 显式设置了检索器时忽略。
func WithRetrieverOptions(opts ...retrieval.PriorityOption) Option {
	return func(e *Engine) {
		e.retrieverOpts = append(e.retrieverOpts, opts...)
	}
}

// WithDeduplicator 设置去重器。
func WithDeduplicator(d *dedup.Deduplicator) Option {
	return func(e *Engine) {
		e.dedup = d
	}
}

// WithReranker 设置重排器。
func WithReranker(r *rerank.MMRReranker) Option {
	return func(e *Engine) {
		e.reranker = r
	}
}

// WithBudgetManager 设置预算管理器。
func WithBudgetManager(m *budget.Manager) Option {
	return func(e *Engine) {
		e.budget = m
	}
}

// WithTruncator 设置工具结果截断器。
func WithTruncator(t *toolout.Truncator) Option {
	return func(e *Engine) {
		e.truncator = t
	}
}

// WithEmbedder 设置向量化提供者。
func WithEmbedder(embedder embedding.Embedder) Option {
	return func(e *Engine) {
		e.embedder = embedder
	}
}

// WithCounter 设置 Token 计数器。
func WithCounter(counter token.Counter) Option {
	return func(e *Engine) {
		e.counter = counter
	}
}

// WithLogger 设置日志器。
func WithLogger(logger otel.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTracer 设置追踪器。
func WithTracer(tracer otel.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithMetrics 设置指标收集器。
func WithMetrics(metrics otel.Metrics) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// New 创建上下文组装引擎
//
// 未显式配置的阶段使用默认实现：内存后端、分层加权检索、
// 默认阈值去重、默认 α 的 MMR 重排、默认预算表。
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:  otel.NewNoopLogger(),
		tracer:  otel.NewNoopTracer(),
		metrics: otel.NewNoopMetrics(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.counter == nil {
		e.counter = token.Shared()
	}
	if e.backend == nil {
		e.backend = retrieval.NewInMemoryBackend()
	}
	if e.embedder == nil {
		e.embedder = embedding.NewMockEmbedder(chunk.DefaultDimensions)
	}
	if e.retriever == nil {
		retrieverOpts := append([]retrieval.PriorityOption{
			retrieval.WithDimensions(e.embedder.Dimensions()),
			retrieval.WithLogger(e.logger),
			retrieval.WithMetrics(e.metrics),
		}, e.retrieverOpts...)
		e.retriever = retrieval.NewPriorityRetriever(e.backend, retrieverOpts...)
	}
	if e.dedup == nil {
		e.dedup = dedup.NewDeduplicator()
	}
	if e.reranker == nil {
		e.reranker = rerank.NewMMRReranker()
	}
	if e.budget == nil {
		e.budget = budget.NewManager(budget.WithCounter(e.counter))
	}
	if e.truncator == nil {
		e.truncator = toolout.NewTruncator(
			toolout.WithCounter(e.counter),
			toolout.WithLogger(e.logger),
			toolout.WithMetrics(e.metrics),
		)
	}

	return e
}

// NewFromConfig 按配置创建引擎
func NewFromConfig(cfg *config.Config, opts ...Option) (*Engine, error) {
	backend, err := retrieval.NewBackend(retrieval.BackendConfig{
		Type:             retrieval.BackendType(cfg.Retrieval.Backend),
		SQLitePath:       cfg.Retrieval.SQLitePath,
		QdrantURL:        cfg.Retrieval.QdrantURL,
		QdrantAPIKey:     cfg.Retrieval.QdrantAPIKey,
		QdrantCollection: cfg.Retrieval.QdrantCollection,
		Neo4jURI:         cfg.Retrieval.Neo4jURI,
		Neo4jUsername:    cfg.Retrieval.Neo4jUsername,
		Neo4jPassword:    cfg.Retrieval.Neo4jPassword,
		Neo4jIndex:       cfg.Retrieval.Neo4jIndex,
		Dimensions:       cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, err
	}

	var embedder embedding.Embedder
	switch cfg.Embedding.Provider {
	case config.ProviderOpenAI:
		embedder = embedding.NewOpenAIEmbedder(cfg.Embedding.APIKey,
			embedding.WithEmbeddingModel(cfg.Embedding.Model),
			embedding.WithDimensions(cfg.Embedding.Dimensions),
		)
	default:
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}

	retrieverOpts := []retrieval.PriorityOption{
		retrieval.WithTierTimeout(cfg.Retrieval.TierTimeout),
	}
	if cfg.Retrieval.BoostDisabled {
		retrieverOpts = append(retrieverOpts, retrieval.WithBoostDisabled())
	}

	configured := []Option{
		WithBackend(backend),
		WithEmbedder(embedder),
		WithRetrieverOptions(retrieverOpts...),
	}

	if cfg.Observability.Enabled {
		provider, err := otel.NewProvider(otel.Config{
			Enabled:     true,
			ServiceName: cfg.Observability.ServiceName,
			Tracing: otel.TracingConfig{
				Enabled:    cfg.Observability.TracerEndpoint != "",
				Endpoint:   cfg.Observability.TracerEndpoint,
				Insecure:   true,
				SampleRate: cfg.Observability.SampleRate,
			},
			Metrics: otel.MetricsConfig{
				Enabled:  cfg.Observability.MetricsEndpoint != "",
				Endpoint: cfg.Observability.MetricsEndpoint,
				Insecure: true,
			},
		})
		if err != nil {
			return nil, err
		}
		configured = append(configured,
			WithLogger(provider.Logger()),
			WithTracer(provider.Tracer()),
			WithMetrics(provider.Metrics()),
		)
	}

	configured = append(configured,
		WithDeduplicator(dedup.NewDeduplicator(
			dedup.WithThreshold(float32(cfg.Dedup.Threshold)),
			dedup.WithMaxPerCategory(cfg.Dedup.MaxPerCategory),
		)),
		WithReranker(rerank.NewMMRReranker(
			rerank.WithAlpha(float32(cfg.Rerank.Alpha)),
		)),
		WithBudgetManager(budget.NewManager(
			budget.WithTotalBudget(cfg.Budget.TotalBudget),
			budget.WithResponseReserve(cfg.Budget.ResponseReserve),
			budget.WithSafetyMargin(cfg.Budget.SafetyMargin),
		)),
	)

	return New(append(configured, opts...)...), nil
}

// Ingest 将块写入搜索后端，缺少向量的块先做向量化。
func (e *Engine) Ingest(ctx context.Context, scope *retrieval.Scope, chunks []chunk.Chunk) error {
	ctx, span := e.tracer.Start(ctx, "engine.ingest",
		otel.WithAttributes(otel.ChunkCount(len(chunks))),
	)
	defer span.End()

	var missing []int
	for i := range chunks {
		if !chunks[i].HasVector() {
			missing = append(missing, i)
		}
	}

	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for i, idx := range missing {
			texts[i] = chunks[idx].Content
		}

		vectors, err := e.embedder.Embed(ctx, texts)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otel.StatusError, err.Error())
			return err
		}
		if err := embedding.ValidateDimensions(vectors, e.embedder.Dimensions()); err != nil {
			span.RecordError(err)
			span.SetStatus(otel.StatusError, err.Error())
			return err
		}

		for i, idx := range missing {
			chunks[idx].Vector = vectors[i]
		}
	}

	if err := e.backend.Add(ctx, scope, chunks); err != nil {
		span.RecordError(err)
		span.SetStatus(otel.StatusError, err.Error())
		return err
	}

	span.SetStatus(otel.StatusOK, "")
	return nil
}

// RetrieveAndRank 执行完整的检索流水线：检索 → 去重 → 重排。
func (e *Engine) RetrieveAndRank(ctx context.Context, vector []float32, topK int, filter *retrieval.Filter, scope *retrieval.Scope) ([]chunk.Chunk, error) {
	ctx, span := e.tracer.Start(ctx, "engine.retrieve_and_rank",
		otel.WithAttributes(otel.RetrievalTopK(topK)),
	)
	defer span.End()

	retrieved, err := e.retriever.Retrieve(ctx, vector, topK, filter, scope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otel.StatusError, err.Error())
		return nil, err
	}

	deduped := e.dedup.Dedup(retrieved)
	if removed := len(retrieved) - len(deduped); removed > 0 {
		e.metrics.Counter(otel.MetricDedupRemoved).Add(ctx, int64(removed))
	}

	startTime := time.Now()
	ranked := e.reranker.Rerank(deduped)
	e.metrics.Histogram(otel.MetricRerankDuration).Record(ctx, time.Since(startTime).Seconds()*1000)

	e.metrics.Histogram(otel.MetricRetrievalChunks).Record(ctx, float64(len(ranked)))
	span.SetAttributes(otel.ChunkCount(len(ranked)))
	span.SetStatus(otel.StatusOK, "")
	return ranked, nil
}

// RetrieveAndRankText 先向量化查询文本再执行检索流水线。
func (e *Engine) RetrieveAndRankText(ctx context.Context, query string, topK int, filter *retrieval.Filter, scope *retrieval.Scope) ([]chunk.Chunk, error) {
	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if err := embedding.ValidateDimensions(vectors, e.embedder.Dimensions()); err != nil {
		return nil, err
	}

	return e.RetrieveAndRank(ctx, vectors[0], topK, filter, scope)
}

// Allocate 为各上下文组件分配 Token 预算。
func (e *Engine) Allocate(ctx context.Context, components map[string]interface{}) *budget.Result {
	ctx, span := e.tracer.Start(ctx, "engine.allocate")
	defer span.End()

	result := e.budget.Allocate(components)

	e.metrics.Counter(otel.MetricBudgetAllocations).Add(ctx, 1)
	e.metrics.Histogram(otel.MetricBudgetTokensUsed).Record(ctx, float64(result.TotalUsed))

	truncated := 0
	for _, alloc := range result.Allocations {
		if alloc.Truncated {
			truncated++
		}
	}
	if truncated > 0 {
		e.metrics.Counter(otel.MetricBudgetTruncations).Add(ctx, int64(truncated))
	}

	span.SetStatus(otel.StatusOK, "")
	return result
}

// TruncateToolResult 将工具结果压缩到该工具的 Token 上限内。
func (e *Engine) TruncateToolResult(ctx context.Context, toolName string, payload interface{}) map[string]interface{} {
	return e.truncator.Truncate(ctx, toolName, payload)
}

// Counter 返回引擎共享的 Token 计数器。
func (e *Engine) Counter() token.Counter {
	return e.counter
}

// Backend 返回底层搜索后端。
func (e *Engine) Backend() retrieval.SearchBackend {
	return e.backend
}

// Close 关闭底层搜索后端。
func (e *Engine) Close() error {
	return e.backend.Close()
}
