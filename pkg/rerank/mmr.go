// Package rerank 提供最大边际相关性（MMR）多样性重排能力
package rerank

import (
	"github.com/easyops/contextengine-go/pkg/chunk"
)

// DefaultAlpha 是默认的相关性/多样性权衡参数。
const DefaultAlpha = 0.7

// MMRReranker 最大边际相关性重排器
//
// mmr = α × relevance − (1−α) × max(sim(candidate, selected))
//
// relevance 使用原始相似度分数（非层级加权分数）；
// 多样性惩罚取与已选集合的最大相似度（而非平均值），
// 这是既定的排名行为，更改会改变输出，不得"修正"。
type MMRReranker struct {
	alpha float32
}

// Option 配置 MMRReranker。
type Option func(*MMRReranker)

// WithAlpha 设置权衡参数 α ∈ [0,1]。
// α=1 为纯相关性排序，α=0 为纯多样性排序。
func WithAlpha(alpha float32) Option {
	return func(r *MMRReranker) {
		if alpha < 0 {
			alpha = 0
		}
		if alpha > 1 {
			alpha = 1
		}
		r.alpha = alpha
	}
}

// NewMMRReranker 创建 MMR 重排器
func NewMMRReranker(opts ...Option) *MMRReranker {
	r := &MMRReranker{
		alpha: DefaultAlpha,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Rerank 对候选块做完整重排。
//
// 输出是输入的同一多重集的重新排列：不丢弃、不新增。
// 无向量的块不参与 MMR 排序，按原始顺序追加在末尾。
func (r *MMRReranker) Rerank(chunks []chunk.Chunk) []chunk.Chunk {
	if len(chunks) == 0 {
		return nil
	}

	var embedded, plain []chunk.Chunk
	for _, c := range chunks {
		if c.HasVector() {
			embedded = append(embedded, c)
		} else {
			plain = append(plain, c)
		}
	}

	// 0 或 1 个带向量的候选时原样返回
	if len(embedded) <= 1 {
		result := make([]chunk.Chunk, len(chunks))
		copy(result, chunks)
		return result
	}

	matrix := chunk.SimilarityMatrix(embedded)

	// 以原始分数最高的块作为种子（同分取先出现者）
	seedIdx := 0
	for i := 1; i < len(embedded); i++ {
		if embedded[i].Score > embedded[seedIdx].Score {
			seedIdx = i
		}
	}

	n := len(embedded)
	selected := make([]chunk.Chunk, 0, n+len(plain))
	picked := make([]bool, n)
	// maxSim[i] 为候选 i 与已选集合的最大相似度
	maxSim := make([]float32, n)

	pick := func(idx int) {
		picked[idx] = true
		selected = append(selected, embedded[idx])
		for i := 0; i < n; i++ {
			if !picked[i] && matrix[i][idx] > maxSim[i] {
				maxSim[i] = matrix[i][idx]
			}
		}
	}
	pick(seedIdx)

	for len(selected) < n {
		bestIdx := -1
		var bestScore float32
		for i := 0; i < n; i++ {
			if picked[i] {
				continue
			}
			score := r.alpha*embedded[i].Score - (1-r.alpha)*maxSim[i]
			if bestIdx < 0 || score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}
		pick(bestIdx)
	}

	return append(selected, plain...)
}

// Alpha 返回当前的权衡参数。
func (r *MMRReranker) Alpha() float32 {
	return r.alpha
}
