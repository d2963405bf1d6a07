// Package retrieval 提供分层加权的向量检索能力
package retrieval

import (
	"context"

	"github.com/easyops/contextengine-go/pkg/chunk"
)

// Scope 检索范围（租户/项目）标识。
type Scope struct {
	// TenantID 租户标识
	TenantID string `json:"tenant_id,omitempty"`
	// ProjectID 项目标识
	ProjectID string `json:"project_id,omitempty"`
}

// SearchResult 向量搜索结果
type SearchResult struct {
	// Chunk 候选块
	Chunk chunk.Chunk `json:"chunk"`
	// Score 相似度分数 (0-1)，降序返回
	Score float32 `json:"score"`
}

// SearchBackend 向量搜索后端接口
//
// 按相似度降序返回至多 limit 条结果。层级匹配和元数据过滤
// 由检索器在结果侧完成，后端只负责范围过滤和最近邻查找。
type SearchBackend interface {
	// Add 添加候选块
	Add(ctx context.Context, scope *Scope, chunks []chunk.Chunk) error

	// Search 相似度搜索
	Search(ctx context.Context, vector []float32, limit int, scope *Scope) ([]SearchResult, error)

	// Delete 按 ID 删除候选块
	Delete(ctx context.Context, scope *Scope, ids []string) error

	// Clear 清空范围内的数据
	Clear(ctx context.Context, scope *Scope) error

	// Close 关闭连接
	Close() error
}

// Filter 结果侧元数据过滤条件。
//
// 零值匹配所有块。
type Filter struct {
	// Category 按类别过滤
	Category string
	// Source 按来源过滤
	Source string
	// Extra 按扩展字段精确匹配
	Extra map[string]interface{}
}

// Matches 返回块是否满足过滤条件。
func (f *Filter) Matches(c *chunk.Chunk) bool {
	if f == nil {
		return true
	}
	if f.Category != "" && c.Metadata.Category != f.Category {
		return false
	}
	if f.Source != "" && c.Metadata.Source != f.Source {
		return false
	}
	for k, want := range f.Extra {
		got, ok := c.Metadata.Extra[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// scopeKey 将范围归一化为存储键。
func scopeKey(scope *Scope) string {
	if scope == nil {
		return "/"
	}
	return scope.TenantID + "/" + scope.ProjectID
}
