package toolout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/easyops/contextengine-go/pkg/otel"
	"github.com/easyops/contextengine-go/pkg/token"
)

// Truncator 工具结果截断器
//
// 按工具配置将任意形状的结果负载压缩到 Token 上限内，
// 逐级降级直至兜底。对任何输入（包括 nil 和深度嵌套的
// 畸形结构）都不报错，始终返回 map。
type Truncator struct {
	counter  token.Counter
	profiles map[string]Profile
	fallback Profile
	logger   otel.Logger
	metrics  otel.Metrics
}

// Option 配置 Truncator。
type Option func(*Truncator)

// WithCounter 设置 Token 计数器。
func WithCounter(counter token.Counter) Option {
	return func(t *Truncator) {
		t.counter = counter
	}
}

// WithProfile 设置指定工具的截断配置。
func WithProfile(toolName string, profile Profile) Option {
	return func(t *Truncator) {
		t.profiles[toolName] = profile
	}
}

// WithFallbackProfile 设置未配置工具的兜底配置。
func WithFallbackProfile(profile Profile) Option {
	return func(t *Truncator) {
		t.fallback = profile
	}
}

// WithLogger 设置日志器。
func WithLogger(logger otel.Logger) Option {
	return func(t *Truncator) {
		t.logger = logger
	}
}

// WithMetrics 设置指标收集器。
func WithMetrics(metrics otel.Metrics) Option {
	return func(t *Truncator) {
		t.metrics = metrics
	}
}

// NewTruncator 创建工具结果截断器
func NewTruncator(opts ...Option) *Truncator {
	t := &Truncator{
		profiles: DefaultProfiles(),
		fallback: DefaultProfile(),
		logger:   otel.NewNoopLogger(),
		metrics:  otel.NewNoopMetrics(),
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.counter == nil {
		t.counter = token.Shared()
	}

	return t
}

// Truncate 将工具结果压缩到该工具的 Token 上限内。
//
// 非 map 的负载（列表、标量、nil）包装为 {"result": payload}。
// 超限时按配置逐级降级：
//  1. 主列表字段截断到 MaxItems，原始数量记入 _original_count
//  2. 列表项和顶层的文本字段按字符上限裁剪
//  3. 溢出字段（警告等）截断到固定小上限
//  4. 所有列表字段（含一层嵌套）截断到 3 个元素
//  5. 整体序列化后硬截断并尝试重新解析，失败则返回描述性兜底对象
//
// 入参不会被修改，返回的 map 为独立拷贝。
func (t *Truncator) Truncate(ctx context.Context, toolName string, payload interface{}) map[string]interface{} {
	profile := t.profileFor(toolName)
	result := normalize(payload)

	originalTokens := t.counter.CountValue(result)
	if originalTokens <= profile.MaxTokens {
		return result
	}

	t.metrics.Counter(otel.MetricToolTruncations).Add(ctx, 1,
		otel.NewAttr(otel.AttrToolName, toolName))

	var notes []string

	// 第 1 级：主列表字段截断到 MaxItems
	if profile.ListField != "" && profile.MaxItems > 0 {
		if list, ok := result[profile.ListField].([]interface{}); ok && len(list) > profile.MaxItems {
			result[MetaOriginalCount] = len(list)
			result[profile.ListField] = list[:profile.MaxItems]
			notes = append(notes, fmt.Sprintf("%s: %d -> %d items", profile.ListField, len(list), profile.MaxItems))
		}
	}

	// 第 2 级：裁剪列表项与顶层的长文本字段
	if profile.TextCharLimit > 0 && len(profile.TextFields) > 0 {
		if list, ok := result[profile.ListField].([]interface{}); ok {
			for _, item := range list {
				if m, ok := item.(map[string]interface{}); ok {
					clipTextFields(m, profile.TextFields, profile.TextCharLimit)
				}
			}
		}
		clipTextFields(result, profile.TextFields, profile.TextCharLimit)
	}

	// 第 3 级：溢出字段截断到固定上限
	for _, field := range profile.OverflowFields {
		if list, ok := result[field].([]interface{}); ok && len(list) > overflowItemCap {
			notes = append(notes, fmt.Sprintf("%s: %d -> %d items", field, len(list), overflowItemCap))
			result[field] = list[:overflowItemCap]
		}
	}

	if t.counter.CountValue(result) <= profile.MaxTokens {
		return t.attachMeta(result, notes)
	}

	// 第 4 级：所有列表字段（含一层嵌套）截断到固定元素数
	capNestedLists(result, 2, &notes)

	if t.counter.CountValue(result) <= profile.MaxTokens {
		return t.attachMeta(result, notes)
	}

	// 第 5 级：序列化硬截断 + 重新解析
	t.logger.WithContext(ctx).Debug("tool result requires hard truncation",
		"tool", toolName,
		"original_tokens", originalTokens,
		"max_tokens", profile.MaxTokens)

	raw, err := json.Marshal(result)
	if err != nil {
		return t.stub(toolName, originalTokens, profile.MaxTokens)
	}

	// 不追加截断标记，保留重新解析成功的可能性
	clipped := token.ClipText(t.counter, string(raw), profile.MaxTokens)
	var reparsed map[string]interface{}
	if err := json.Unmarshal([]byte(clipped), &reparsed); err != nil {
		return t.stub(toolName, originalTokens, profile.MaxTokens)
	}

	return t.attachMeta(reparsed, append(notes, "hard truncated"))
}

// profileFor 返回工具名对应的截断配置。
func (t *Truncator) profileFor(toolName string) Profile {
	if profile, ok := t.profiles[toolName]; ok {
		return profile
	}
	return t.fallback
}

// attachMeta 附加截断元数据。
func (t *Truncator) attachMeta(result map[string]interface{}, notes []string) map[string]interface{} {
	result[MetaTruncated] = true
	if len(notes) > 0 {
		result[MetaNote] = strings.Join(notes, "; ")
	}
	return result
}

// stub 构造无法结构化截断时的兜底对象。
func (t *Truncator) stub(toolName string, originalTokens, maxTokens int) map[string]interface{} {
	return map[string]interface{}{
		MetaTruncated:     true,
		MetaNote:          "payload could not be truncated structurally",
		"tool":            toolName,
		"original_tokens": originalTokens,
		"max_tokens":      maxTokens,
	}
}

// normalize 将任意负载规范化为独立拷贝的 map。
func normalize(payload interface{}) map[string]interface{} {
	if m, ok := payload.(map[string]interface{}); ok {
		copied := deepCopyValue(m).(map[string]interface{})
		return copied
	}
	return map[string]interface{}{"result": deepCopyValue(payload)}
}

// deepCopyValue 深拷贝 map 和 slice，标量原样返回。
func deepCopyValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		copied := make(map[string]interface{}, len(v))
		for key, val := range v {
			copied[key] = deepCopyValue(val)
		}
		return copied
	case []interface{}:
		copied := make([]interface{}, len(v))
		for i, val := range v {
			copied[i] = deepCopyValue(val)
		}
		return copied
	default:
		return value
	}
}

// clipTextFields 按字符上限裁剪 map 中的文本字段。
func clipTextFields(m map[string]interface{}, fields []string, limit int) {
	for _, field := range fields {
		s, ok := m[field].(string)
		if !ok {
			continue
		}
		runes := []rune(s)
		if len(runes) > limit {
			m[field] = string(runes[:limit]) + "..."
		}
	}
}

// capNestedLists 将 map 中所有列表字段截断到固定元素数，
// depth 控制递归深度（顶层加一层嵌套）。
func capNestedLists(m map[string]interface{}, depth int, notes *[]string) {
	if depth <= 0 {
		return
	}
	for key, value := range m {
		switch v := value.(type) {
		case []interface{}:
			if len(v) > nestedListCap {
				*notes = append(*notes, fmt.Sprintf("%s: %d -> %d items", key, len(v), nestedListCap))
				v = v[:nestedListCap]
				m[key] = v
			}
			for _, item := range v {
				if nested, ok := item.(map[string]interface{}); ok {
					capNestedLists(nested, depth-1, notes)
				}
			}
		case map[string]interface{}:
			capNestedLists(v, depth-1, notes)
		}
	}
}
