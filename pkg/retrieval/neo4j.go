package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/easyops/contextengine-go/pkg/chunk"
)

// Neo4jBackend Neo4j 搜索后端
//
// 基于 Neo4j 原生向量索引（db.index.vector.queryNodes）的搜索实现。
type Neo4jBackend struct {
	driver     neo4j.DriverWithContext
	indexName  string
	dimensions int
}

// Neo4jConfig Neo4j 配置
type Neo4jConfig struct {
	URI        string
	Username   string
	Password   string
	IndexName  string
	Dimensions int
}

// NewNeo4jBackend 创建 Neo4j 搜索后端
func NewNeo4jBackend(config Neo4jConfig) (*Neo4jBackend, error) {
	if config.URI == "" {
		config.URI = "bolt://localhost:7687"
	}
	if config.IndexName == "" {
		config.IndexName = "chunk_vector"
	}
	if config.Dimensions <= 0 {
		config.Dimensions = chunk.DefaultDimensions
	}

	auth := neo4j.NoAuth()
	if config.Username != "" && config.Password != "" {
		auth = neo4j.BasicAuth(config.Username, config.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(config.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	// 验证连接
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	backend := &Neo4jBackend{
		driver:     driver,
		indexName:  config.IndexName,
		dimensions: config.Dimensions,
	}

	// 创建向量索引
	if err := backend.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return backend, nil
}

// createIndexes 创建索引
func (b *Neo4jBackend) createIndexes(ctx context.Context) error {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	indexes := []string{
		fmt.Sprintf(`CREATE VECTOR INDEX %s IF NOT EXISTS
			FOR (c:Chunk) ON (c.vector)
			OPTIONS {indexConfig: {
				`+"`vector.dimensions`"+`: %d,
				`+"`vector.similarity_function`"+`: 'cosine'
			}}`, b.indexName, b.dimensions),
		"CREATE INDEX chunk_id IF NOT EXISTS FOR (c:Chunk) ON (c.id)",
		"CREATE INDEX chunk_scope IF NOT EXISTS FOR (c:Chunk) ON (c.tenant, c.project)",
	}

	for _, idx := range indexes {
		_, err := session.Run(ctx, idx, nil)
		if err != nil {
			// 忽略索引已存在的错误
			if !strings.Contains(err.Error(), "already exists") {
				return err
			}
		}
	}

	return nil
}

// Add 添加候选块
func (b *Neo4jBackend) Add(ctx context.Context, scope *Scope, chunks []chunk.Chunk) error {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	tenant, project := scopeColumns(scope)

	query := `
	MERGE (c:Chunk {id: $id, tenant: $tenant, project: $project})
	SET c.content = $content,
		c.category = $category,
		c.tier = $tier,
		c.source = $source,
		c.extra = $extra
	WITH c
	CALL db.create.setNodeVectorProperty(c, 'vector', $vector)
	`

	for _, c := range chunks {
		if c.ID == "" {
			c.ID = chunk.NewID()
		}

		extra, err := json.Marshal(c.Metadata.Extra)
		if err != nil {
			return fmt.Errorf("failed to marshal extra metadata: %w", err)
		}

		params := map[string]interface{}{
			"id":       c.ID,
			"tenant":   tenant,
			"project":  project,
			"content":  c.Content,
			"category": c.Metadata.Category,
			"tier":     string(c.Metadata.Tier),
			"source":   c.Metadata.Source,
			"extra":    string(extra),
			"vector":   toFloat64Slice(c.Vector),
		}

		if _, err := session.Run(ctx, query, params); err != nil {
			return err
		}
	}

	return nil
}

// Search 相似度搜索
func (b *Neo4jBackend) Search(ctx context.Context, vector []float32, limit int, scope *Scope) ([]SearchResult, error) {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	tenant, project := scopeColumns(scope)

	// 索引查询先于范围过滤执行，多取一部分候选补偿过滤损耗
	query := fmt.Sprintf(`
	CALL db.index.vector.queryNodes('%s', $fetch, $vector)
	YIELD node, score
	WHERE node.tenant = $tenant AND node.project = $project
	RETURN node, score
	LIMIT $limit
	`, b.indexName)

	params := map[string]interface{}{
		"fetch":   limit * 4,
		"limit":   limit,
		"vector":  toFloat64Slice(vector),
		"tenant":  tenant,
		"project": project,
	}

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for result.Next(ctx) {
		record := result.Record()
		nodeVal, _ := record.Get("node")
		scoreVal, _ := record.Get("score")

		node, ok := nodeVal.(neo4j.Node)
		if !ok {
			continue
		}
		score, _ := scoreVal.(float64)

		c := b.nodeToChunk(node)
		c.Score = float32(score)
		results = append(results, SearchResult{Chunk: c, Score: float32(score)})
	}

	return results, result.Err()
}

// nodeToChunk 将节点转换为候选块。
func (b *Neo4jBackend) nodeToChunk(node neo4j.Node) chunk.Chunk {
	var c chunk.Chunk

	c.ID, _ = node.Props["id"].(string)
	c.Content, _ = node.Props["content"].(string)
	c.Metadata.Category, _ = node.Props["category"].(string)
	c.Metadata.Source, _ = node.Props["source"].(string)
	if tier, ok := node.Props["tier"].(string); ok {
		c.Metadata.Tier = chunk.AuthorityTier(tier)
	}
	if extra, ok := node.Props["extra"].(string); ok && extra != "" && extra != "null" {
		_ = json.Unmarshal([]byte(extra), &c.Metadata.Extra)
	}
	if vector, ok := node.Props["vector"].([]interface{}); ok {
		c.Vector = make([]float32, 0, len(vector))
		for _, v := range vector {
			if f, ok := v.(float64); ok {
				c.Vector = append(c.Vector, float32(f))
			}
		}
	}

	return c
}

// Delete 按 ID 删除候选块
func (b *Neo4jBackend) Delete(ctx context.Context, scope *Scope, ids []string) error {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	tenant, project := scopeColumns(scope)

	query := `
	MATCH (c:Chunk)
	WHERE c.tenant = $tenant AND c.project = $project AND c.id IN $ids
	DETACH DELETE c
	`

	_, err := session.Run(ctx, query, map[string]interface{}{
		"tenant":  tenant,
		"project": project,
		"ids":     ids,
	})
	return err
}

// Clear 清空范围内的数据
func (b *Neo4jBackend) Clear(ctx context.Context, scope *Scope) error {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	tenant, project := scopeColumns(scope)

	query := `
	MATCH (c:Chunk)
	WHERE c.tenant = $tenant AND c.project = $project
	DETACH DELETE c
	`

	_, err := session.Run(ctx, query, map[string]interface{}{
		"tenant":  tenant,
		"project": project,
	})
	return err
}

// Close 关闭连接
func (b *Neo4jBackend) Close() error {
	return b.driver.Close(context.Background())
}

// toFloat64Slice 转换向量类型（neo4j 驱动要求 float64）。
func toFloat64Slice(vector []float32) []float64 {
	result := make([]float64, len(vector))
	for i, v := range vector {
		result[i] = float64(v)
	}
	return result
}

// Compile-time interface check
var _ SearchBackend = (*Neo4jBackend)(nil)
