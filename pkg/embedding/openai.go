package embedding

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/easyops/contextengine-go/pkg/chunk"
	"github.com/easyops/contextengine-go/pkg/core/errors"
)

// OpenAIEmbedder OpenAI 嵌入实现
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// OpenAIOption 配置 OpenAIEmbedder。
type OpenAIOption func(*OpenAIEmbedder)

// WithEmbeddingModel 设置嵌入模型。
func WithEmbeddingModel(model string) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		e.model = model
	}
}

// WithDimensions 设置期望的向量维度。
func WithDimensions(dimensions int) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		e.dimensions = dimensions
	}
}

// WithBaseURL 设置 API 基础地址（用于兼容端点）。
func WithBaseURL(apiKey, baseURL string) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		cfg := openai.DefaultConfig(apiKey)
		cfg.BaseURL = baseURL
		e.client = openai.NewClientWithConfig(cfg)
	}
}

// NewOpenAIEmbedder 创建 OpenAI 嵌入器
func NewOpenAIEmbedder(apiKey string, opts ...OpenAIOption) *OpenAIEmbedder {
	e := &OpenAIEmbedder{
		client:     openai.NewClient(apiKey),
		model:      "text-embedding-3-small",
		dimensions: chunk.DefaultDimensions,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Embed 将文本转换为向量
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, errors.WrapError(errors.ErrEmbeddingFailed, err.Error())
	}

	result := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		result[i] = data.Embedding
	}

	if err := ValidateDimensions(result, e.dimensions); err != nil {
		return nil, err
	}

	return result, nil
}

// Dimensions 返回输出向量的维度 D
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// compile-time interface check
var _ Embedder = (*OpenAIEmbedder)(nil)
