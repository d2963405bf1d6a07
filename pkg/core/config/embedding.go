package config

import "time"

// Provider 向量化提供商类型
type Provider string

const (
	// ProviderOpenAI OpenAI 提供商
	ProviderOpenAI Provider = "openai"
	// ProviderMock 内置的确定性提供商（测试和离线场景）
	ProviderMock Provider = "mock"
)

// IsValid 检查提供商是否有效
func (p Provider) IsValid() bool {
	switch p {
	case ProviderOpenAI, ProviderMock:
		return true
	default:
		return false
	}
}

// EmbeddingConfig 向量化配置
type EmbeddingConfig struct {
	// Provider 提供商
	Provider Provider `koanf:"provider"`
	// Model 模型名称
	Model string `koanf:"model"`
	// APIKey API 密钥
	APIKey string `koanf:"api_key"`
	// BaseURL 自定义 API 端点
	BaseURL string `koanf:"base_url"`
	// Dimensions 向量维度
	// 默认: 1536
	Dimensions int `koanf:"dimensions"`
	// Timeout 请求超时时间
	// 默认: 30s, 最大: 5m
	Timeout time.Duration `koanf:"timeout"`
}

// Validate 验证向量化配置
func (c *EmbeddingConfig) Validate() error {
	if c.Provider == ProviderOpenAI && c.APIKey == "" {
		return ErrAPIKeyRequired
	}
	if c.Dimensions < 1 {
		return ErrInvalidDimensions
	}
	if c.Timeout < 0 || c.Timeout > 5*time.Minute {
		return ErrInvalidTimeout
	}
	return nil
}

// WithDefaults 返回带默认值的配置
func (c EmbeddingConfig) WithDefaults() EmbeddingConfig {
	if c.Provider == "" {
		c.Provider = ProviderMock
	}
	if c.Model == "" {
		c.Model = "text-embedding-3-small"
	}
	if c.Dimensions == 0 {
		c.Dimensions = 1536
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}
