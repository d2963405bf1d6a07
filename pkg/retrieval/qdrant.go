package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/easyops/contextengine-go/pkg/chunk"
)

// QdrantBackend Qdrant 搜索后端
//
// 基于 Qdrant REST API 的向量搜索实现。
type QdrantBackend struct {
	baseURL    string
	apiKey     string
	collection string
	httpClient *http.Client
	dimensions int
}

// QdrantConfig Qdrant 配置
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dimensions int
	Timeout    time.Duration
}

// NewQdrantBackend 创建 Qdrant 搜索后端
func NewQdrantBackend(config QdrantConfig) (*QdrantBackend, error) {
	if config.URL == "" {
		config.URL = "http://localhost:6333"
	}
	if config.Collection == "" {
		config.Collection = "chunks"
	}
	if config.Dimensions <= 0 {
		config.Dimensions = chunk.DefaultDimensions
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	backend := &QdrantBackend{
		baseURL:    config.URL,
		apiKey:     config.APIKey,
		collection: config.Collection,
		dimensions: config.Dimensions,
		httpClient: &http.Client{Timeout: config.Timeout},
	}

	return backend, nil
}

// ensureCollection 确保集合存在
func (b *QdrantBackend) ensureCollection(ctx context.Context) error {
	req, err := b.newRequest(ctx, "GET", fmt.Sprintf("/collections/%s", b.collection), nil)
	if err != nil {
		return err
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	defer resp.Body.Close()

	// 集合存在
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	// 创建集合
	createBody := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     b.dimensions,
			"distance": "Cosine",
		},
	}

	req, err = b.newRequest(ctx, "PUT", fmt.Sprintf("/collections/%s", b.collection), createBody)
	if err != nil {
		return err
	}

	resp, err = b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to create collection: %s", string(body))
	}

	return nil
}

// Add 添加候选块
func (b *QdrantBackend) Add(ctx context.Context, scope *Scope, chunks []chunk.Chunk) error {
	if err := b.ensureCollection(ctx); err != nil {
		return err
	}

	points := make([]map[string]interface{}, len(chunks))
	for i, c := range chunks {
		if c.ID == "" {
			c.ID = chunk.NewID()
		}
		points[i] = map[string]interface{}{
			"id":      c.ID,
			"vector":  c.Vector,
			"payload": b.buildPayload(scope, c),
		}
	}

	body := map[string]interface{}{
		"points": points,
	}

	req, err := b.newRequest(ctx, "PUT", fmt.Sprintf("/collections/%s/points", b.collection), body)
	if err != nil {
		return err
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to upsert points: %s", string(respBody))
	}

	return nil
}

// buildPayload 构建 payload
func (b *QdrantBackend) buildPayload(scope *Scope, c chunk.Chunk) map[string]interface{} {
	payload := map[string]interface{}{
		"content":  c.Content,
		"category": c.Metadata.Category,
		"tier":     string(c.Metadata.Tier),
		"source":   c.Metadata.Source,
	}
	if scope != nil {
		payload["tenant"] = scope.TenantID
		payload["project"] = scope.ProjectID
	}
	for k, v := range c.Metadata.Extra {
		payload["extra_"+k] = v
	}
	return payload
}

// Search 相似度搜索
func (b *QdrantBackend) Search(ctx context.Context, vector []float32, limit int, scope *Scope) ([]SearchResult, error) {
	body := map[string]interface{}{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  true,
	}

	if filter := b.buildScopeFilter(scope); filter != nil {
		body["filter"] = filter
	}

	req, err := b.newRequest(ctx, "POST", fmt.Sprintf("/collections/%s/points/search", b.collection), body)
	if err != nil {
		return nil, err
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search failed: %s", string(respBody))
	}

	var result struct {
		Result []struct {
			ID      string                 `json:"id"`
			Score   float32                `json:"score"`
			Vector  []float32              `json:"vector"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]SearchResult, len(result.Result))
	for i, r := range result.Result {
		c := chunk.Chunk{
			ID:     r.ID,
			Vector: r.Vector,
			Score:  r.Score,
		}
		c.Content, _ = r.Payload["content"].(string)
		c.Metadata.Category, _ = r.Payload["category"].(string)
		c.Metadata.Source, _ = r.Payload["source"].(string)
		if tier, ok := r.Payload["tier"].(string); ok {
			c.Metadata.Tier = chunk.AuthorityTier(tier)
		}
		for k, v := range r.Payload {
			if len(k) > 6 && k[:6] == "extra_" {
				if c.Metadata.Extra == nil {
					c.Metadata.Extra = make(map[string]interface{})
				}
				c.Metadata.Extra[k[6:]] = v
			}
		}
		results[i] = SearchResult{Chunk: c, Score: r.Score}
	}

	return results, nil
}

// buildScopeFilter 构建范围过滤器
func (b *QdrantBackend) buildScopeFilter(scope *Scope) map[string]interface{} {
	if scope == nil {
		return nil
	}

	var mustConditions []map[string]interface{}

	if scope.TenantID != "" {
		mustConditions = append(mustConditions, map[string]interface{}{
			"key":   "tenant",
			"match": map[string]interface{}{"value": scope.TenantID},
		})
	}

	if scope.ProjectID != "" {
		mustConditions = append(mustConditions, map[string]interface{}{
			"key":   "project",
			"match": map[string]interface{}{"value": scope.ProjectID},
		})
	}

	if len(mustConditions) == 0 {
		return nil
	}

	return map[string]interface{}{
		"must": mustConditions,
	}
}

// Delete 按 ID 删除候选块
func (b *QdrantBackend) Delete(ctx context.Context, scope *Scope, ids []string) error {
	body := map[string]interface{}{
		"points": ids,
	}

	req, err := b.newRequest(ctx, "POST", fmt.Sprintf("/collections/%s/points/delete", b.collection), body)
	if err != nil {
		return err
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete failed: %s", string(respBody))
	}

	return nil
}

// Clear 清空范围内的数据
func (b *QdrantBackend) Clear(ctx context.Context, scope *Scope) error {
	filter := b.buildScopeFilter(scope)
	if filter == nil {
		// 无范围约束时删除并重建集合
		req, err := b.newRequest(ctx, "DELETE", fmt.Sprintf("/collections/%s", b.collection), nil)
		if err != nil {
			return err
		}

		resp, err := b.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to clear collection: %w", err)
		}
		defer resp.Body.Close()

		// 忽略 404 错误（集合不存在）
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
			respBody, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("clear failed: %s", string(respBody))
		}
		return nil
	}

	body := map[string]interface{}{
		"filter": filter,
	}

	req, err := b.newRequest(ctx, "POST", fmt.Sprintf("/collections/%s/points/delete", b.collection), body)
	if err != nil {
		return err
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to clear scope: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("clear scope failed: %s", string(respBody))
	}

	return nil
}

// Close 关闭连接
func (b *QdrantBackend) Close() error {
	b.httpClient.CloseIdleConnections()
	return nil
}

// newRequest 创建 HTTP 请求
func (b *QdrantBackend) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("api-key", b.apiKey)
	}

	return req, nil
}

// Compile-time interface check
var _ SearchBackend = (*QdrantBackend)(nil)
