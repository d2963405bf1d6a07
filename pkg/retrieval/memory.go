package retrieval

import (
	"context"
	"sort"
	"sync"

	"github.com/easyops/contextengine-go/pkg/chunk"
)

// InMemoryBackend 内存搜索后端
//
// 暴力余弦扫描，适用于测试和小规模数据。
type InMemoryBackend struct {
	scopes map[string]map[string]chunk.Chunk
	mu     sync.RWMutex
}

// NewInMemoryBackend 创建内存搜索后端
func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{
		scopes: make(map[string]map[string]chunk.Chunk),
	}
}

// Add 添加候选块
func (b *InMemoryBackend) Add(ctx context.Context, scope *Scope, chunks []chunk.Chunk) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := scopeKey(scope)
	if b.scopes[key] == nil {
		b.scopes[key] = make(map[string]chunk.Chunk)
	}
	for _, c := range chunks {
		if c.ID == "" {
			c.ID = chunk.NewID()
		}
		b.scopes[key][c.ID] = c
	}
	return nil
}

// Search 相似度搜索
func (b *InMemoryBackend) Search(ctx context.Context, vector []float32, limit int, scope *Scope) ([]SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored := b.scopes[scopeKey(scope)]
	scored := make([]SearchResult, 0, len(stored))

	for _, c := range stored {
		if !c.HasVector() {
			continue
		}
		score := chunk.CosineSimilarity(vector, c.Vector)
		c.Score = score
		scored = append(scored, SearchResult{Chunk: c, Score: score})
	}

	// 按分数降序排序，同分按 ID 保证确定性
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})

	if limit > 0 && limit < len(scored) {
		scored = scored[:limit]
	}

	return scored, nil
}

// Delete 按 ID 删除候选块
func (b *InMemoryBackend) Delete(ctx context.Context, scope *Scope, ids []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := b.scopes[scopeKey(scope)]
	for _, id := range ids {
		delete(stored, id)
	}
	return nil
}

// Clear 清空范围内的数据
func (b *InMemoryBackend) Clear(ctx context.Context, scope *Scope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.scopes, scopeKey(scope))
	return nil
}

// Close 关闭连接
func (b *InMemoryBackend) Close() error {
	return nil
}

// Size 返回范围内存储的块数量
func (b *InMemoryBackend) Size(scope *Scope) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.scopes[scopeKey(scope)])
}

// compile-time interface check
var _ SearchBackend = (*InMemoryBackend)(nil)
