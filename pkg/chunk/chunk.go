// Package chunk 定义上下文装配引擎的候选块数据模型
package chunk

import (
	"github.com/google/uuid"

	"github.com/easyops/contextengine-go/pkg/core/errors"
)

// DefaultDimensions 是系统共享的默认向量维度。
// 对应 text-embedding-3-small 的输出维度。
const DefaultDimensions = 1536

// AuthorityTier 表示块的权威/确认层级。
type AuthorityTier string

const (
	// TierConfirmedPrimary 已确认的一手来源（最高层级）
	TierConfirmedPrimary AuthorityTier = "confirmed_primary"
	// TierConfirmedSecondary 已确认的二手来源
	TierConfirmedSecondary AuthorityTier = "confirmed_secondary"
	// TierUnconfirmed 未确认来源
	TierUnconfirmed AuthorityTier = "unconfirmed"
	// TierUntagged 未标注层级（旧数据）
	TierUntagged AuthorityTier = ""
)

// Multiplier 返回层级对应的分数加权系数。
func (t AuthorityTier) Multiplier() float32 {
	switch t {
	case TierConfirmedPrimary:
		return 3.0
	case TierConfirmedSecondary:
		return 2.0
	default:
		return 1.0
	}
}

// Tiers 返回全部已标注层级，按权重降序。
func Tiers() []AuthorityTier {
	return []AuthorityTier{
		TierConfirmedPrimary,
		TierConfirmedSecondary,
		TierUnconfirmed,
	}
}

// Metadata 块的结构化元数据。
//
// 已知字段为显式成员；Extra 仅用于向前兼容的透传，
// 核心逻辑不依赖其中的内容。
type Metadata struct {
	// Category 类别/分组键（如章节类型）
	Category string `json:"category,omitempty"`
	// Tier 权威层级
	Tier AuthorityTier `json:"tier,omitempty"`
	// Source 来源（文件路径、URL 等）
	Source string `json:"source,omitempty"`
	// Extra 开放扩展字段
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// Chunk 表示一个候选上下文块。
//
// 请求级不可变值对象：每次调用新建，装配完成后丢弃。
type Chunk struct {
	// ID 块唯一标识
	ID string `json:"id"`
	// Content 文本内容
	Content string `json:"content"`
	// Vector 嵌入向量（维度 D；可为空，空向量的块不参与相似度计算）
	Vector []float32 `json:"vector,omitempty"`
	// Score 原始相关性分数（余弦相似度，0-1）
	Score float32 `json:"score"`
	// BoostedScore 层级加权后的分数 = Score × Tier.Multiplier()
	BoostedScore float32 `json:"boosted_score"`
	// Metadata 元数据
	Metadata Metadata `json:"metadata"`
}

// HasVector 返回块是否携带嵌入向量。
func (c *Chunk) HasVector() bool {
	return len(c.Vector) > 0
}

// Boost 按层级系数计算加权分数。
func (c *Chunk) Boost() {
	c.BoostedScore = c.Score * c.Metadata.Tier.Multiplier()
}

// NewID 生成块唯一标识。
func NewID() string {
	return uuid.New().String()
}

// ValidateVector 校验向量维度。
//
// 空向量和维度不等于 dimensions 的向量均视为输入契约错误。
func ValidateVector(vector []float32, dimensions int) error {
	if len(vector) == 0 {
		return errors.ErrEmptyVector
	}
	if dimensions > 0 && len(vector) != dimensions {
		return errors.WrapError(errors.ErrDimensionMismatch, "validate vector")
	}
	return nil
}
