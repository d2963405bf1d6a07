// Package token 提供 Token 计数与截断能力。
//
// 所有其他组件的预算计算都依赖本包的统一编码。
package token

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter 定义 Token 计数接口。
type Counter interface {
	// Count 返回给定文本的 Token 数量。
	Count(text string) int

	// CountValue 返回任意结构化负载的 Token 数量，
	// 通过规范化 JSON 序列化进行估算。
	CountValue(v interface{}) int
}

// Codec 定义可逆的 Token 编解码接口。
//
// 实现了 Codec 的计数器支持精确的按 Token 截断。
type Codec interface {
	// Encode 将文本编码为 Token 序列。
	Encode(text string) []int

	// Decode 将 Token 序列解码回文本。
	Decode(tokens []int) string
}

// TiktokenCounter 使用 tiktoken 实现精确的 Token 计数。
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
}

// TiktokenOption 配置 TiktokenCounter。
type TiktokenOption func(*TiktokenCounter)

// WithModel 设置 Token 编码使用的模型。
// 支持的模型：gpt-4、gpt-4o、gpt-3.5-turbo 等。
func WithModel(model string) TiktokenOption {
	return func(c *TiktokenCounter) {
		c.model = model
	}
}

// NewTiktokenCounter 创建新的 TiktokenCounter。
// 默认使用 cl100k_base 编码（GPT-4、GPT-4o 等使用）。
func NewTiktokenCounter(opts ...TiktokenOption) (*TiktokenCounter, error) {
	c := &TiktokenCounter{
		model: "gpt-4o",
	}

	for _, opt := range opts {
		opt(c)
	}

	// 尝试获取模型对应的编码
	encoding, err := tiktoken.EncodingForModel(c.model)
	if err != nil {
		// 降级到 cl100k_base 编码
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	c.encoding = encoding
	return c, nil
}

// Count 返回给定文本的 Token 数量。
func (c *TiktokenCounter) Count(text string) int {
	if c.encoding == nil {
		return estimateTokens(text)
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// CountValue 返回结构化负载的 Token 数量。
func (c *TiktokenCounter) CountValue(v interface{}) int {
	return c.Count(canonicalize(v))
}

// Encode 将文本编码为 Token 序列。
func (c *TiktokenCounter) Encode(text string) []int {
	if c.encoding == nil {
		return nil
	}
	return c.encoding.Encode(text, nil, nil)
}

// Decode 将 Token 序列解码回文本。
func (c *TiktokenCounter) Decode(tokens []int) string {
	if c.encoding == nil {
		return ""
	}
	return c.encoding.Decode(tokens)
}

// EstimatedCounter 使用字符估算实现 Token 计数。
// 这是当 tiktoken 不可用时的降级方案。
type EstimatedCounter struct {
	// CharsPerToken 是每个 Token 的平均字符数。
	// 默认值为 4，这是英文文本的合理估计。
	CharsPerToken float64
}

// NewEstimatedCounter 创建新的 EstimatedCounter。
func NewEstimatedCounter() *EstimatedCounter {
	return &EstimatedCounter{
		CharsPerToken: 4.0,
	}
}

// Count 返回估算的 Token 数量。
//
// 只读方法，可被并发调用方安全共享。
func (c *EstimatedCounter) Count(text string) int {
	charsPerToken := c.CharsPerToken
	if charsPerToken <= 0 {
		charsPerToken = 4.0
	}
	return int(float64(len(text)) / charsPerToken)
}

// CountValue 返回结构化负载的估算 Token 数量。
func (c *EstimatedCounter) CountValue(v interface{}) int {
	return c.Count(canonicalize(v))
}

// estimateTokens 提供简单的 Token 估算降级方案。
func estimateTokens(text string) int {
	// 粗略估算：英文 1 token ≈ 4 字符，
	// 但中文/日文字符通常每个 1-2 个 token
	charCount := len(text)
	wordCount := len(strings.Fields(text))

	if wordCount == 0 {
		return charCount / 4
	}

	// 取字符估算和词估算的平均值
	charBasedTokens := charCount / 4
	wordBasedTokens := int(float64(wordCount) * 1.3)

	return (charBasedTokens + wordBasedTokens) / 2
}

// canonicalize 将任意负载规范化为 JSON 文本。
//
// encoding/json 对 map 键进行排序，因此相同负载产生相同文本。
func canonicalize(v interface{}) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

var (
	sharedOnce    sync.Once
	sharedCounter Counter
)

// Shared 返回进程级共享的 Counter。
//
// 首次调用时惰性初始化，之后只读，可安全地被并发调用方共享。
// 优先使用 TiktokenCounter，如果不可用则降级到 EstimatedCounter。
func Shared() Counter {
	sharedOnce.Do(func() {
		counter, err := NewTiktokenCounter()
		if err != nil {
			sharedCounter = NewEstimatedCounter()
			return
		}
		sharedCounter = counter
	})
	return sharedCounter
}

// 编译时接口检查
var _ Counter = (*TiktokenCounter)(nil)
var _ Counter = (*EstimatedCounter)(nil)
var _ Codec = (*TiktokenCounter)(nil)
