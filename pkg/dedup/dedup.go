// Package dedup 提供基于相似度阈值的候选块去重能力
package dedup

import (
	"github.com/easyops/contextengine-go/pkg/chunk"
)

// DefaultThreshold 是默认的相似度去重阈值。
const DefaultThreshold = 0.85

// DefaultMaxPerCategory 是每个类别默认保留的最大块数。
const DefaultMaxPerCategory = 3

// Deduplicator 近重复去重器
//
// 先按 ID 精确去重，再在类别分组内按余弦相似度贪心去重。
// 相同输入顺序、阈值和上限下输出完全可复现；
// 对自身输出再次去重返回相同结果（幂等）。
type Deduplicator struct {
	threshold      float32
	maxPerCategory int
}

// Option 配置 Deduplicator。
type Option func(*Deduplicator)

// WithThreshold 设置相似度阈值。
func WithThreshold(threshold float32) Option {
	return func(d *Deduplicator) {
		d.threshold = threshold
	}
}

// WithMaxPerCategory 设置每个类别保留的最大块数。
func WithMaxPerCategory(max int) Option {
	return func(d *Deduplicator) {
		d.maxPerCategory = max
	}
}

// NewDeduplicator 创建去重器
func NewDeduplicator(opts ...Option) *Deduplicator {
	d := &Deduplicator{
		threshold:      DefaultThreshold,
		maxPerCategory: DefaultMaxPerCategory,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dedup 对候选块列表去重，保持原始顺序。
func (d *Deduplicator) Dedup(chunks []chunk.Chunk) []chunk.Chunk {
	if len(chunks) == 0 {
		return nil
	}

	// 1. ID 精确去重，保留首次出现
	seen := make(map[string]struct{}, len(chunks))
	unique := make([]chunk.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		unique = append(unique, c)
	}

	// 2. 按类别分组（保持首次出现顺序）
	groupOrder := make([]string, 0)
	groups := make(map[string][]chunk.Chunk)
	for _, c := range unique {
		key := c.Metadata.Category
		if _, ok := groups[key]; !ok {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], c)
	}

	// 3. 组内相似度去重，收集保留的 ID
	kept := make(map[string]struct{}, len(unique))
	for _, key := range groupOrder {
		for _, c := range d.dedupGroup(groups[key]) {
			kept[c.ID] = struct{}{}
		}
	}

	// 4. 按原始顺序重建输出
	result := make([]chunk.Chunk, 0, len(kept))
	for _, c := range unique {
		if _, ok := kept[c.ID]; ok {
			result = append(result, c)
		}
	}

	return result
}

// dedupGroup 对单个类别分组去重。
func (d *Deduplicator) dedupGroup(group []chunk.Chunk) []chunk.Chunk {
	// 单元素分组原样通过
	if len(group) <= 1 {
		return group
	}

	embedded := 0
	for i := range group {
		if group[i].HasVector() {
			embedded++
		}
	}

	// 不足两个带向量的块时无法比较相似度，按原始顺序保留至上限
	if embedded < 2 {
		if d.maxPerCategory > 0 && len(group) > d.maxPerCategory {
			return group[:d.maxPerCategory]
		}
		return group
	}

	// 带向量的块计算全量两两相似度矩阵
	vectorIdx := make(map[int]int, embedded) // 组内下标 → 矩阵下标
	vectorChunks := make([]chunk.Chunk, 0, embedded)
	for i := range group {
		if group[i].HasVector() {
			vectorIdx[i] = len(vectorChunks)
			vectorChunks = append(vectorChunks, group[i])
		}
	}
	matrix := chunk.SimilarityMatrix(vectorChunks)

	// 按原始顺序贪心走查：保留首个；后续块仅当与所有已保留块的
	// 相似度都低于阈值时保留；达到上限即停止。
	// 无向量的块不参与比较，按顺序保留并计入上限。
	result := make([]chunk.Chunk, 0, d.maxPerCategory)
	keptVector := make([]int, 0, embedded)
	for i := range group {
		if d.maxPerCategory > 0 && len(result) >= d.maxPerCategory {
			break
		}

		mi, hasVector := vectorIdx[i]
		if !hasVector {
			result = append(result, group[i])
			continue
		}

		duplicate := false
		for _, kv := range keptVector {
			if matrix[mi][kv] >= d.threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		result = append(result, group[i])
		keptVector = append(keptVector, mi)
	}

	return result
}
