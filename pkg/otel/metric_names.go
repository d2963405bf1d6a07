package otel

// 预定义的指标名称
// 遵循 OpenTelemetry 语义约定
const (
	// Retrieval 指标
	MetricRetrievalSearches       = "retrieval.searches"        // 计数器: 检索次数
	MetricRetrievalSearchDuration = "retrieval.search.duration" // 直方图: 检索时间(ms)
	MetricRetrievalTierFailures   = "retrieval.tier.failures"   // 计数器: 层级检索失败次数
	MetricRetrievalChunks         = "retrieval.chunks"          // 直方图: 每次检索返回的块数

	// Embedding 指标
	MetricEmbeddingRequests = "embedding.requests"         // 计数器: 向量化请求次数
	MetricEmbeddingDuration = "embedding.request.duration" // 直方图: 向量化请求时间(ms)
	MetricEmbeddingErrors   = "embedding.errors"           // 计数器: 向量化错误次数

	// Backend 指标
	MetricBackendOperations = "backend.operations" // 计数器: 后端操作次数
	MetricBackendErrors     = "backend.errors"     // 计数器: 后端错误次数
	MetricBackendSize       = "backend.size"       // 仪表: 后端存储的块数

	// Dedup 指标
	MetricDedupRemoved = "dedup.removed" // 计数器: 去重移除的块数

	// Rerank 指标
	MetricRerankDuration = "rerank.duration" // 直方图: 重排时间(ms)

	// Budget 指标
	MetricBudgetAllocations = "budget.allocations" // 计数器: 预算分配次数
	MetricBudgetTruncations = "budget.truncations" // 计数器: 被截断的组件数
	MetricBudgetTokensUsed  = "budget.tokens.used" // 直方图: 每次分配使用的 Token 数

	// Tool 输出指标
	MetricToolTruncations = "toolout.truncations" // 计数器: 工具结果截断次数
)

// MetricUnit 指标单位
type MetricUnit string

const (
	UnitNone         MetricUnit = ""
	UnitMilliseconds MetricUnit = "ms"
	UnitSeconds      MetricUnit = "s"
	UnitBytes        MetricUnit = "By"
	UnitCount        MetricUnit = "1"
)

// MetricDescription 指标描述
type MetricDescription struct {
	Name        string
	Description string
	Unit        MetricUnit
	Type        string // counter, histogram, gauge
}

// PredefinedMetrics 预定义指标列表
var PredefinedMetrics = []MetricDescription{
	{MetricRetrievalSearches, "Number of retrieval searches", UnitCount, "counter"},
	{MetricRetrievalSearchDuration, "Duration of retrieval searches", UnitMilliseconds, "histogram"},
	{MetricRetrievalTierFailures, "Number of failed tier searches", UnitCount, "counter"},
	{MetricRetrievalChunks, "Number of chunks returned per search", UnitCount, "histogram"},

	{MetricEmbeddingRequests, "Number of embedding requests", UnitCount, "counter"},
	{MetricEmbeddingDuration, "Duration of embedding requests", UnitMilliseconds, "histogram"},
	{MetricEmbeddingErrors, "Number of embedding errors", UnitCount, "counter"},

	{MetricBackendOperations, "Number of backend operations", UnitCount, "counter"},
	{MetricBackendErrors, "Number of backend errors", UnitCount, "counter"},
	{MetricBackendSize, "Number of chunks stored in the backend", UnitCount, "gauge"},

	{MetricDedupRemoved, "Number of chunks removed by deduplication", UnitCount, "counter"},

	{MetricRerankDuration, "Duration of reranking", UnitMilliseconds, "histogram"},

	{MetricBudgetAllocations, "Number of budget allocations", UnitCount, "counter"},
	{MetricBudgetTruncations, "Number of truncated components", UnitCount, "counter"},
	{MetricBudgetTokensUsed, "Tokens used per allocation", UnitCount, "histogram"},

	{MetricToolTruncations, "Number of tool result truncations", UnitCount, "counter"},
}
