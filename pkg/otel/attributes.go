package otel

import "go.opentelemetry.io/otel/attribute"

// 预定义的语义属性键
// 遵循 OpenTelemetry 语义约定
const (
	// Retrieval 相关属性
	AttrRetrievalTier    = "retrieval.tier"
	AttrRetrievalTopK    = "retrieval.top_k"
	AttrRetrievalBackend = "retrieval.backend"

	// Chunk 相关属性
	AttrChunkCategory = "chunk.category"
	AttrChunkCount    = "chunk.count"

	// Embedding 相关属性
	AttrEmbeddingModel      = "embedding.model"
	AttrEmbeddingDimensions = "embedding.dimensions"
	AttrEmbeddingInputCount = "embedding.input_count"

	// Scope 相关属性
	AttrTenantID  = "scope.tenant_id"
	AttrProjectID = "scope.project_id"

	// Budget 相关属性
	AttrComponentName   = "budget.component"
	AttrTokensRequested = "budget.tokens.requested"
	AttrTokensAllocated = "budget.tokens.allocated"

	// Tool 相关属性
	AttrToolName = "tool.name"

	// Error 相关属性
	AttrErrorType      = "error.type"
	AttrErrorMessage   = "error.message"
	AttrErrorRetryable = "error.retryable"
)

// RetrievalTier 创建检索层级属性
func RetrievalTier(tier string) attribute.KeyValue {
	return attribute.String(AttrRetrievalTier, tier)
}

// RetrievalTopK 创建检索 TopK 属性
func RetrievalTopK(topK int) attribute.KeyValue {
	return attribute.Int(AttrRetrievalTopK, topK)
}

// RetrievalBackend 创建后端类型属性
func RetrievalBackend(backend string) attribute.KeyValue {
	return attribute.String(AttrRetrievalBackend, backend)
}

// ChunkCategory 创建块类别属性
func ChunkCategory(category string) attribute.KeyValue {
	return attribute.String(AttrChunkCategory, category)
}

// ChunkCount 创建块数量属性
func ChunkCount(count int) attribute.KeyValue {
	return attribute.Int(AttrChunkCount, count)
}

// EmbeddingModel 创建向量化模型属性
func EmbeddingModel(model string) attribute.KeyValue {
	return attribute.String(AttrEmbeddingModel, model)
}

// EmbeddingDimensions 创建向量维度属性
func EmbeddingDimensions(dimensions int) attribute.KeyValue {
	return attribute.Int(AttrEmbeddingDimensions, dimensions)
}

// ComponentName 创建预算组件名属性
func ComponentName(name string) attribute.KeyValue {
	return attribute.String(AttrComponentName, name)
}

// ToolName 创建工具名称属性
func ToolName(name string) attribute.KeyValue {
	return attribute.String(AttrToolName, name)
}

// ErrorAttrs 创建错误属性
func ErrorAttrs(errType, message string, retryable bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, errType),
		attribute.String(AttrErrorMessage, message),
		attribute.Bool(AttrErrorRetryable, retryable),
	}
}
