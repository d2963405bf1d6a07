// Package errors 定义引擎的通用错误类型
package errors

import (
	"errors"
	"fmt"
)

// 通用错误
var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrContextCanceled 上下文被取消
	ErrContextCanceled = errors.New("context canceled")
)

// 输入契约错误（唯一允许向调用方传播的错误类别）
var (
	// ErrEmptyVector 向量为空
	ErrEmptyVector = errors.New("empty embedding vector")
	// ErrDimensionMismatch 向量维度不匹配
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrInvalidEmbedding 嵌入向量无效
	ErrInvalidEmbedding = errors.New("invalid embedding")
)

// 检索相关错误（在检索器内部被吸收，不向上传播）
var (
	// ErrSearchFailed 向量搜索失败
	ErrSearchFailed = errors.New("vector search failed")
	// ErrTierTimeout 单层搜索超时
	ErrTierTimeout = errors.New("tier search timeout")
	// ErrBackendUnavailable 搜索后端不可用
	ErrBackendUnavailable = errors.New("search backend unavailable")
)

// 嵌入相关错误
var (
	// ErrEmbeddingFailed 嵌入生成失败
	ErrEmbeddingFailed = errors.New("embedding failed")
)

// 截断相关错误（内部降级处理，不向上传播）
var (
	// ErrSerializationFailed 序列化失败
	ErrSerializationFailed = errors.New("serialization failed")
)

// WrapError 包装错误并添加上下文信息
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// IsInputError 判断错误是否为输入契约错误
//
// 只有此类错误允许穿透引擎边界；其余错误应在组件内部吸收。
func IsInputError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrEmptyVector) ||
		errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrInvalidEmbedding)
}

// IsRecoverable 判断错误是否为可恢复的后端/环境错误
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrSearchFailed) ||
		errors.Is(err, ErrTierTimeout) ||
		errors.Is(err, ErrBackendUnavailable)
}
