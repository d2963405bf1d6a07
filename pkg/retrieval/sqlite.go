package retrieval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/easyops/contextengine-go/pkg/chunk"
)

// SQLiteBackend SQLite 搜索后端
//
// 块数据持久化在 SQLite，搜索时按范围加载后在内存中做余弦扫描。
// 适用于单机部署和中小规模数据。
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend 创建 SQLite 搜索后端
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	backend := &SQLiteBackend{db: db}

	// 初始化表结构
	if err := backend.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return backend, nil
}

// initSchema 初始化表结构
func (b *SQLiteBackend) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT NOT NULL,
		tenant TEXT NOT NULL DEFAULT '',
		project TEXT NOT NULL DEFAULT '',
		content TEXT,
		category TEXT,
		tier TEXT,
		source TEXT,
		vector TEXT,
		extra TEXT,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (tenant, project, id)
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_scope ON chunks(tenant, project);
	CREATE INDEX IF NOT EXISTS idx_chunks_tier ON chunks(tenant, project, tier);
	`

	_, err := b.db.Exec(query)
	return err
}

// Add 添加候选块
func (b *SQLiteBackend) Add(ctx context.Context, scope *Scope, chunks []chunk.Chunk) error {
	tenant, project := scopeColumns(scope)
	now := time.Now().UnixMilli()

	query := `
	INSERT INTO chunks (id, tenant, project, content, category, tier, source, vector, extra, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(tenant, project, id) DO UPDATE SET
		content = excluded.content,
		category = excluded.category,
		tier = excluded.tier,
		source = excluded.source,
		vector = excluded.vector,
		extra = excluded.extra
	`

	for _, c := range chunks {
		if c.ID == "" {
			c.ID = chunk.NewID()
		}

		vector, err := json.Marshal(c.Vector)
		if err != nil {
			return fmt.Errorf("failed to marshal vector: %w", err)
		}
		extra, err := json.Marshal(c.Metadata.Extra)
		if err != nil {
			return fmt.Errorf("failed to marshal extra metadata: %w", err)
		}

		_, err = b.db.ExecContext(ctx, query,
			c.ID, tenant, project, c.Content,
			c.Metadata.Category, string(c.Metadata.Tier), c.Metadata.Source,
			string(vector), string(extra), now,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// Search 相似度搜索
func (b *SQLiteBackend) Search(ctx context.Context, vector []float32, limit int, scope *Scope) ([]SearchResult, error) {
	tenant, project := scopeColumns(scope)

	query := `
	SELECT id, content, category, tier, source, vector, extra
	FROM chunks WHERE tenant = ? AND project = ? AND vector IS NOT NULL AND vector != '' AND vector != 'null'
	`

	rows, err := b.db.QueryContext(ctx, query, tenant, project)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var c chunk.Chunk
		var tier, vectorStr, extraStr string

		if err := rows.Scan(&c.ID, &c.Content, &c.Metadata.Category, &tier, &c.Metadata.Source, &vectorStr, &extraStr); err != nil {
			return nil, err
		}
		c.Metadata.Tier = chunk.AuthorityTier(tier)

		if err := json.Unmarshal([]byte(vectorStr), &c.Vector); err != nil {
			continue // 跳过无效记录
		}
		if extraStr != "" && extraStr != "null" {
			if err := json.Unmarshal([]byte(extraStr), &c.Metadata.Extra); err != nil {
				continue
			}
		}
		if !c.HasVector() {
			continue
		}

		score := chunk.CosineSimilarity(vector, c.Vector)
		c.Score = score
		results = append(results, SearchResult{Chunk: c, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})

	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}

	return results, nil
}

// Delete 按 ID 删除候选块
func (b *SQLiteBackend) Delete(ctx context.Context, scope *Scope, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tenant, project := scopeColumns(scope)

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := fmt.Sprintf("DELETE FROM chunks WHERE tenant = ? AND project = ? AND id IN (%s)", placeholders)

	args := make([]interface{}, 0, len(ids)+2)
	args = append(args, tenant, project)
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := b.db.ExecContext(ctx, query, args...)
	return err
}

// Clear 清空范围内的数据
func (b *SQLiteBackend) Clear(ctx context.Context, scope *Scope) error {
	tenant, project := scopeColumns(scope)
	_, err := b.db.ExecContext(ctx, "DELETE FROM chunks WHERE tenant = ? AND project = ?", tenant, project)
	return err
}

// Close 关闭连接
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// scopeColumns 将范围拆为存储列值。
func scopeColumns(scope *Scope) (string, string) {
	if scope == nil {
		return "", ""
	}
	return scope.TenantID, scope.ProjectID
}

// Compile-time interface check
var _ SearchBackend = (*SQLiteBackend)(nil)
