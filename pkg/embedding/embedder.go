// Package embedding 提供文本嵌入能力
package embedding

import (
	"context"

	"github.com/easyops/contextengine-go/pkg/core/errors"
)

// Embedder 嵌入器接口
type Embedder interface {
	// Embed 生成文本嵌入向量
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions 返回输出向量的维度 D
	Dimensions() int
}

// ValidateDimensions 校验嵌入结果的维度。
//
// 任何长度不等于 dimensions 的返回向量都视为输入契约错误并立即上报。
func ValidateDimensions(vectors [][]float32, dimensions int) error {
	for _, v := range vectors {
		if len(v) == 0 {
			return errors.ErrEmptyVector
		}
		if len(v) != dimensions {
			return errors.WrapError(errors.ErrDimensionMismatch, "embedding result")
		}
	}
	return nil
}
