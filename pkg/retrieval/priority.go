package retrieval

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/easyops/contextengine-go/pkg/chunk"
	"github.com/easyops/contextengine-go/pkg/core/errors"
	"github.com/easyops/contextengine-go/pkg/otel"
)

// DefaultTierTimeout 是单层搜索的默认超时。
const DefaultTierTimeout = 5 * time.Second

// overfetchFactor 每层多取候选的倍数，为结果侧过滤留出余量。
const overfetchFactor = 2

// Retriever 检索器接口
type Retriever interface {
	// Retrieve 检索与查询向量相关的候选块，按加权分数降序返回
	Retrieve(ctx context.Context, vector []float32, topK int, filter *Filter, scope *Scope) ([]chunk.Chunk, error)
}

// PriorityRetriever 分层加权检索器
//
// 对每个权威层级独立发起一次相似度搜索（并发扇出），
// 按层级系数加权合并，最后补充一次未标注层级的旧数据搜索。
// 任何一层失败或超时只损失该层的贡献，不中断整体检索。
type PriorityRetriever struct {
	backend     SearchBackend
	dimensions  int
	enableBoost bool
	tierTimeout time.Duration
	logger      otel.Logger
	metrics     otel.Metrics
}

// PriorityOption 配置 PriorityRetriever。
type PriorityOption func(*PriorityRetriever)

// WithDimensions 设置查询向量的期望维度 D（0 表示不校验）。
func WithDimensions(dimensions int) PriorityOption {
	return func(r *PriorityRetriever) {
		r.dimensions = dimensions
	}
}

// WithBoostDisabled 关闭层级加权。
// 关闭后退化为单次最近邻搜索，所有结果系数为 1.0。
func WithBoostDisabled() PriorityOption {
	return func(r *PriorityRetriever) {
		r.enableBoost = false
	}
}

// WithTierTimeout 设置单层搜索的超时。
func WithTierTimeout(timeout time.Duration) PriorityOption {
	return func(r *PriorityRetriever) {
		r.tierTimeout = timeout
	}
}

// WithLogger 设置日志器。
func WithLogger(logger otel.Logger) PriorityOption {
	return func(r *PriorityRetriever) {
		r.logger = logger
	}
}

// WithMetrics 设置指标收集器。
func WithMetrics(metrics otel.Metrics) PriorityOption {
	return func(r *PriorityRetriever) {
		r.metrics = metrics
	}
}

// NewPriorityRetriever 创建分层加权检索器
func NewPriorityRetriever(backend SearchBackend, opts ...PriorityOption) *PriorityRetriever {
	r := &PriorityRetriever{
		backend:     backend,
		enableBoost: true,
		tierTimeout: DefaultTierTimeout,
		logger:      otel.NewNoopLogger(),
		metrics:     otel.NewNoopMetrics(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Retrieve 检索与查询向量相关的候选块
func (r *PriorityRetriever) Retrieve(ctx context.Context, vector []float32, topK int, filter *Filter, scope *Scope) ([]chunk.Chunk, error) {
	if err := chunk.ValidateVector(vector, r.dimensions); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}

	r.metrics.Counter(otel.MetricRetrievalSearches).Add(ctx, 1)

	if !r.enableBoost {
		return r.retrievePlain(ctx, vector, topK, filter, scope)
	}

	tiers := chunk.Tiers()
	// 最后一个槽位留给未标注层级的旧数据搜索
	tierResults := make([][]chunk.Chunk, len(tiers)+1)

	var wg sync.WaitGroup
	for i, tier := range tiers {
		wg.Add(1)
		go func(idx int, tier chunk.AuthorityTier) {
			defer wg.Done()
			tierResults[idx] = r.searchTier(ctx, vector, topK, filter, scope, tier)
		}(i, tier)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		tierResults[len(tiers)] = r.searchTier(ctx, vector, topK, filter, scope, chunk.TierUntagged)
	}()

	wg.Wait()

	// 按 ID 合并：已标注层级优先，旧数据只补充未出现过的块
	seen := make(map[string]struct{})
	merged := make([]chunk.Chunk, 0, topK*overfetchFactor)
	for _, results := range tierResults {
		for _, c := range results {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			merged = append(merged, c)
		}
	}

	sortByBoostedScore(merged)

	if topK < len(merged) {
		merged = merged[:topK]
	}

	return merged, nil
}

// retrievePlain 执行不加权的单次最近邻搜索。
func (r *PriorityRetriever) retrievePlain(ctx context.Context, vector []float32, topK int, filter *Filter, scope *Scope) ([]chunk.Chunk, error) {
	results, err := r.backend.Search(ctx, vector, topK*overfetchFactor, scope)
	if err != nil {
		r.logger.WithContext(ctx).Warn("plain search failed",
			"error", err,
		)
		r.metrics.Counter(otel.MetricRetrievalTierFailures).Add(ctx, 1)
		return nil, nil
	}

	chunks := make([]chunk.Chunk, 0, len(results))
	for _, res := range results {
		c := res.Chunk
		if !filter.Matches(&c) {
			continue
		}
		c.Score = res.Score
		c.BoostedScore = res.Score
		chunks = append(chunks, c)
	}

	if topK < len(chunks) {
		chunks = chunks[:topK]
	}

	return chunks, nil
}

// searchTier 对单个层级执行一次带超时的搜索。
//
// 失败或超时只记录日志和指标，返回空结果。
func (r *PriorityRetriever) searchTier(ctx context.Context, vector []float32, topK int, filter *Filter, scope *Scope, tier chunk.AuthorityTier) []chunk.Chunk {
	tierCtx, cancel := context.WithTimeout(ctx, r.tierTimeout)
	defer cancel()

	results, err := r.backend.Search(tierCtx, vector, topK*overfetchFactor, scope)
	if err != nil {
		r.logger.WithContext(ctx).Warn("tier search failed, contributing empty result",
			"tier", string(tier),
			"error", errors.WrapError(errors.ErrSearchFailed, err.Error()),
		)
		r.metrics.Counter(otel.MetricRetrievalTierFailures).Add(ctx, 1,
			otel.NewAttr(otel.AttrRetrievalTier, string(tier)),
		)
		return nil
	}

	multiplier := tier.Multiplier()
	chunks := make([]chunk.Chunk, 0, len(results))
	for _, res := range results {
		c := res.Chunk
		if c.Metadata.Tier != tier {
			continue
		}
		if !filter.Matches(&c) {
			continue
		}
		c.Score = res.Score
		c.BoostedScore = res.Score * multiplier
		chunks = append(chunks, c)
	}

	return chunks
}

// sortByBoostedScore 按加权分数降序排序，同分按 ID 保证确定性。
func sortByBoostedScore(chunks []chunk.Chunk) {
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].BoostedScore != chunks[j].BoostedScore {
			return chunks[i].BoostedScore > chunks[j].BoostedScore
		}
		return chunks[i].ID < chunks[j].ID
	})
}

// compile-time interface check
var _ Retriever = (*PriorityRetriever)(nil)
