package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/easyops/contextengine-go/pkg/chunk"
)

// MockEmbedder 确定性向量化提供者
//
// 基于 FNV 哈希生成稳定的单位向量，相同文本总是得到相同向量。
// 用于测试和无外部向量化服务的离线场景，不具备语义相似性。
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder 创建确定性向量化提供者
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = chunk.DefaultDimensions
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed 为每个文本生成确定性单位向量
func (e *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embedOne(text)
	}
	return vectors, nil
}

// Dimensions 返回向量维度
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// embedOne 由文本哈希派生归一化向量
func (e *MockEmbedder) embedOne(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vector := make([]float32, e.dimensions)
	var norm float64
	for i := range vector {
		// 简单的 xorshift 序列展开哈希种子
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float64(int64(seed%2000)-1000) / 1000.0
		vector[i] = float32(v)
		norm += v * v
	}

	if norm > 0 {
		scale := float32(1.0 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}
	return vector
}

// compile-time interface check
var _ Embedder = (*MockEmbedder)(nil)
