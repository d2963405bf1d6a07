package config

import "time"

// RetrievalConfig 检索配置
type RetrievalConfig struct {
	// Backend 后端类型 (memory, sqlite, qdrant, neo4j)
	Backend string `koanf:"backend"`
	// TopK 默认返回块数
	// 默认: 10
	TopK int `koanf:"top_k"`
	// TierTimeout 单层检索超时
	// 默认: 5s
	TierTimeout time.Duration `koanf:"tier_timeout"`
	// BoostDisabled 禁用层级加权
	BoostDisabled bool `koanf:"boost_disabled"`

	// SQLitePath SQLite 数据库路径
	SQLitePath string `koanf:"sqlite_path"`

	// QdrantURL Qdrant 端点
	QdrantURL string `koanf:"qdrant_url"`
	// QdrantAPIKey Qdrant API 密钥
	QdrantAPIKey string `koanf:"qdrant_api_key"`
	// QdrantCollection Qdrant 集合名
	QdrantCollection string `koanf:"qdrant_collection"`

	// Neo4jURI Neo4j 连接地址
	Neo4jURI string `koanf:"neo4j_uri"`
	// Neo4jUsername Neo4j 用户名
	Neo4jUsername string `koanf:"neo4j_username"`
	// Neo4jPassword Neo4j 密码
	Neo4jPassword string `koanf:"neo4j_password"`
	// Neo4jIndex Neo4j 向量索引名
	Neo4jIndex string `koanf:"neo4j_index"`
}

// Validate 验证检索配置
func (c *RetrievalConfig) Validate() error {
	switch c.Backend {
	case "", "memory", "sqlite", "qdrant", "neo4j":
	default:
		return ErrInvalidBackendType
	}
	if c.TopK < 1 {
		return ErrInvalidTopK
	}
	if c.TierTimeout < 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// WithDefaults 返回带默认值的配置
func (c RetrievalConfig) WithDefaults() RetrievalConfig {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.TopK == 0 {
		c.TopK = 10
	}
	if c.TierTimeout == 0 {
		c.TierTimeout = 5 * time.Second
	}
	return c
}

// DedupConfig 去重配置
type DedupConfig struct {
	// Threshold 相似度阈值
	// 默认: 0.85, 范围: [0, 1]
	Threshold float64 `koanf:"threshold"`
	// MaxPerCategory 每类别保留的最大块数
	// 默认: 3
	MaxPerCategory int `koanf:"max_per_category"`
}

// Validate 验证去重配置
func (c *DedupConfig) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return ErrInvalidThreshold
	}
	if c.MaxPerCategory < 1 {
		return ErrInvalidMaxPerCategory
	}
	return nil
}

// WithDefaults 返回带默认值的配置
func (c DedupConfig) WithDefaults() DedupConfig {
	if c.Threshold == 0 {
		c.Threshold = 0.85
	}
	if c.MaxPerCategory == 0 {
		c.MaxPerCategory = 3
	}
	return c
}

// RerankConfig 重排配置
type RerankConfig struct {
	// Alpha MMR 相关性/多样性权衡参数
	// 默认: 0.7, 范围: [0, 1]
	Alpha float64 `koanf:"alpha"`
}

// Validate 验证重排配置
func (c *RerankConfig) Validate() error {
	if c.Alpha < 0 || c.Alpha > 1 {
		return ErrInvalidAlpha
	}
	return nil
}

// WithDefaults 返回带默认值的配置
func (c RerankConfig) WithDefaults() RerankConfig {
	if c.Alpha == 0 {
		c.Alpha = 0.7
	}
	return c
}

// BudgetConfig 预算配置
type BudgetConfig struct {
	// TotalBudget 总 Token 预算
	// 默认: 16000
	TotalBudget int `koanf:"total_budget"`
	// ResponseReserve 响应预留量
	// 默认: 2000
	ResponseReserve int `koanf:"response_reserve"`
	// SafetyMargin 安全余量
	// 默认: 500
	SafetyMargin int `koanf:"safety_margin"`
}

// Validate 验证预算配置
func (c *BudgetConfig) Validate() error {
	if c.TotalBudget < 1 {
		return ErrInvalidBudget
	}
	if c.ResponseReserve < 0 || c.SafetyMargin < 0 ||
		c.ResponseReserve+c.SafetyMargin >= c.TotalBudget {
		return ErrInvalidReserve
	}
	return nil
}

// WithDefaults 返回带默认值的配置
func (c BudgetConfig) WithDefaults() BudgetConfig {
	if c.TotalBudget == 0 {
		c.TotalBudget = 16000
	}
	if c.ResponseReserve == 0 {
		c.ResponseReserve = 2000
	}
	if c.SafetyMargin == 0 {
		c.SafetyMargin = 500
	}
	return c
}
