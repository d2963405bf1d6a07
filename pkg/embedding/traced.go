package embedding

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/easyops/contextengine-go/pkg/otel"
)

// TracedEmbedder 为向量化提供者添加追踪和指标
type TracedEmbedder struct {
	embedder Embedder
	name     string
	tracer   otel.Tracer
	metrics  otel.Metrics
}

// TracedEmbedderOption 配置 TracedEmbedder
type TracedEmbedderOption func(*TracedEmbedder)

// WithTracedEmbedderTracer 设置追踪器
func WithTracedEmbedderTracer(tracer otel.Tracer) TracedEmbedderOption {
	return func(e *TracedEmbedder) {
		e.tracer = tracer
	}
}

// WithTracedEmbedderMetrics 设置指标收集器
func WithTracedEmbedderMetrics(metrics otel.Metrics) TracedEmbedderOption {
	return func(e *TracedEmbedder) {
		e.metrics = metrics
	}
}

// NewTracedEmbedder 创建带追踪的向量化包装器
//
// name 用于标识底层提供者（openai、mock 等）。
func NewTracedEmbedder(embedder Embedder, name string, opts ...TracedEmbedderOption) *TracedEmbedder {
	e := &TracedEmbedder{
		embedder: embedder,
		name:     name,
		tracer:   otel.NewNoopTracer(),
		metrics:  otel.NewNoopMetrics(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Embed 生成向量并记录追踪
func (e *TracedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := e.tracer.Start(ctx, "embedding.embed",
		otel.WithSpanKind(otel.SpanKindClient),
		otel.WithAttributes(
			attribute.String("provider", e.name),
			otel.EmbeddingDimensions(e.embedder.Dimensions()),
			attribute.Int(otel.AttrEmbeddingInputCount, len(texts)),
		),
	)
	defer span.End()

	startTime := time.Now()
	vectors, err := e.embedder.Embed(ctx, texts)
	duration := time.Since(startTime)

	e.metrics.Histogram(otel.MetricEmbeddingDuration).Record(ctx, duration.Seconds()*1000,
		otel.NewAttr("provider", e.name),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otel.StatusError, err.Error())
		e.metrics.Counter(otel.MetricEmbeddingRequests).Add(ctx, 1,
			otel.NewAttr("provider", e.name),
			otel.NewAttr("status", "error"),
		)
		e.metrics.Counter(otel.MetricEmbeddingErrors).Add(ctx, 1,
			otel.NewAttr("provider", e.name),
		)
		return nil, err
	}

	e.metrics.Counter(otel.MetricEmbeddingRequests).Add(ctx, 1,
		otel.NewAttr("provider", e.name),
		otel.NewAttr("status", "success"),
	)
	span.SetAttributes(attribute.Int("output_count", len(vectors)))
	span.SetStatus(otel.StatusOK, "")
	return vectors, nil
}

// Dimensions 返回底层提供者的向量维度
func (e *TracedEmbedder) Dimensions() int {
	return e.embedder.Dimensions()
}

// compile-time interface check
var _ Embedder = (*TracedEmbedder)(nil)
