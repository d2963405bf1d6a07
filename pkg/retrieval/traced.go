package retrieval

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/easyops/contextengine-go/pkg/chunk"
	"github.com/easyops/contextengine-go/pkg/otel"
)

// TracedBackend 为搜索后端添加追踪和指标
type TracedBackend struct {
	backend SearchBackend
	name    string
	tracer  otel.Tracer
	metrics otel.Metrics
}

// TracedBackendOption 配置 TracedBackend
type TracedBackendOption func(*TracedBackend)

// WithTracedBackendTracer 设置追踪器
func WithTracedBackendTracer(tracer otel.Tracer) TracedBackendOption {
	return func(b *TracedBackend) {
		b.tracer = tracer
	}
}

// WithTracedBackendMetrics 设置指标收集器
func WithTracedBackendMetrics(metrics otel.Metrics) TracedBackendOption {
	return func(b *TracedBackend) {
		b.metrics = metrics
	}
}

// NewTracedBackend 创建带追踪的搜索后端包装器
//
// name 用于标识底层后端类型（memory、sqlite、qdrant、neo4j）。
func NewTracedBackend(backend SearchBackend, name string, opts ...TracedBackendOption) *TracedBackend {
	b := &TracedBackend{
		backend: backend,
		name:    name,
		tracer:  otel.NewNoopTracer(),
		metrics: otel.NewNoopMetrics(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Add 写入块并记录追踪
func (b *TracedBackend) Add(ctx context.Context, scope *Scope, chunks []chunk.Chunk) error {
	ctx, span := b.tracer.Start(ctx, "backend.add",
		otel.WithSpanKind(otel.SpanKindClient),
		otel.WithAttributes(
			otel.RetrievalBackend(b.name),
			otel.ChunkCount(len(chunks)),
			attribute.String(otel.AttrTenantID, tenantOf(scope)),
		),
	)
	defer span.End()

	err := b.backend.Add(ctx, scope, chunks)
	b.recordOperation(ctx, "add", err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otel.StatusError, err.Error())
		return err
	}

	span.SetStatus(otel.StatusOK, "")
	return nil
}

// Search 执行相似度搜索并记录追踪
func (b *TracedBackend) Search(ctx context.Context, vector []float32, limit int, scope *Scope) ([]SearchResult, error) {
	ctx, span := b.tracer.Start(ctx, "backend.search",
		otel.WithSpanKind(otel.SpanKindClient),
		otel.WithAttributes(
			otel.RetrievalBackend(b.name),
			otel.RetrievalTopK(limit),
			attribute.String(otel.AttrTenantID, tenantOf(scope)),
		),
	)
	defer span.End()

	startTime := time.Now()
	results, err := b.backend.Search(ctx, vector, limit, scope)
	duration := time.Since(startTime)

	b.recordOperation(ctx, "search", err)
	b.metrics.Histogram(otel.MetricRetrievalSearchDuration).Record(ctx, duration.Seconds()*1000,
		otel.NewAttr("backend", b.name),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otel.StatusError, err.Error())
		return nil, err
	}

	span.SetAttributes(otel.ChunkCount(len(results)))
	span.SetStatus(otel.StatusOK, "")
	return results, nil
}

// Delete 删除块并记录追踪
func (b *TracedBackend) Delete(ctx context.Context, scope *Scope, ids []string) error {
	ctx, span := b.tracer.Start(ctx, "backend.delete",
		otel.WithSpanKind(otel.SpanKindClient),
		otel.WithAttributes(
			otel.RetrievalBackend(b.name),
			attribute.Int("id_count", len(ids)),
		),
	)
	defer span.End()

	err := b.backend.Delete(ctx, scope, ids)
	b.recordOperation(ctx, "delete", err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otel.StatusError, err.Error())
		return err
	}

	span.SetStatus(otel.StatusOK, "")
	return nil
}

// Clear 清空作用域并记录追踪
func (b *TracedBackend) Clear(ctx context.Context, scope *Scope) error {
	ctx, span := b.tracer.Start(ctx, "backend.clear",
		otel.WithSpanKind(otel.SpanKindClient),
		otel.WithAttributes(otel.RetrievalBackend(b.name)),
	)
	defer span.End()

	err := b.backend.Clear(ctx, scope)
	b.recordOperation(ctx, "clear", err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otel.StatusError, err.Error())
		return err
	}

	span.SetStatus(otel.StatusOK, "")
	return nil
}

// Close 关闭底层后端
func (b *TracedBackend) Close() error {
	return b.backend.Close()
}

// tenantOf 返回范围的租户标识，nil 范围返回空串。
func tenantOf(scope *Scope) string {
	if scope == nil {
		return ""
	}
	return scope.TenantID
}

// recordOperation 记录后端操作指标
func (b *TracedBackend) recordOperation(ctx context.Context, operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
		b.metrics.Counter(otel.MetricBackendErrors).Add(ctx, 1,
			otel.NewAttr("backend", b.name),
			otel.NewAttr("operation", operation),
		)
	}

	b.metrics.Counter(otel.MetricBackendOperations).Add(ctx, 1,
		otel.NewAttr("backend", b.name),
		otel.NewAttr("operation", operation),
		otel.NewAttr("status", status),
	)
}

// compile-time interface check
var _ SearchBackend = (*TracedBackend)(nil)
