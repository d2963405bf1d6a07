package config

import "errors"

// 配置验证相关错误
var (
	// ErrInvalidThreshold 相似度阈值无效
	ErrInvalidThreshold = errors.New("similarity threshold must be between 0 and 1")
	// ErrInvalidAlpha MMR 权衡参数无效
	ErrInvalidAlpha = errors.New("mmr alpha must be between 0 and 1")
	// ErrInvalidMaxPerCategory 类别上限无效
	ErrInvalidMaxPerCategory = errors.New("max per category must be positive")
	// ErrInvalidTopK TopK 无效
	ErrInvalidTopK = errors.New("top k must be positive")
	// ErrInvalidBudget 总预算无效
	ErrInvalidBudget = errors.New("total budget must be positive")
	// ErrInvalidReserve 预留量无效
	ErrInvalidReserve = errors.New("response reserve and safety margin must fit within the total budget")
	// ErrInvalidDimensions 向量维度无效
	ErrInvalidDimensions = errors.New("dimensions must be positive")
	// ErrInvalidTimeout 超时时间无效
	ErrInvalidTimeout = errors.New("invalid timeout value")
	// ErrAPIKeyRequired API 密钥必填
	ErrAPIKeyRequired = errors.New("api key is required")
	// ErrInvalidBackendType 后端类型无效
	ErrInvalidBackendType = errors.New("unsupported backend type")
)
