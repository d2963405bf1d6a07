// Package toolout 提供工具调用结果的多级截断能力
package toolout

// 默认截断参数
const (
	// DefaultMaxTokens 默认的工具结果 Token 上限
	DefaultMaxTokens = 2000
	// DefaultMaxItems 默认的主列表字段元素上限
	DefaultMaxItems = 10
	// DefaultTextCharLimit 默认的文本字段字符上限
	DefaultTextCharLimit = 500
	// overflowItemCap 溢出字段保留的固定元素数
	overflowItemCap = 3
	// nestedListCap 深度降级时每个列表字段保留的元素数
	nestedListCap = 3
)

// 截断元数据键
const (
	// MetaTruncated 标记结果已被截断
	MetaTruncated = "_truncated"
	// MetaOriginalCount 记录主列表字段截断前的元素数
	MetaOriginalCount = "_original_count"
	// MetaNote 记录截断过程的说明
	MetaNote = "_truncation_note"
)

// Profile 单个工具的截断配置。
type Profile struct {
	// MaxTokens 结果 Token 上限
	MaxTokens int `json:"max_tokens"`
	// MaxItems 主列表字段的元素上限
	MaxItems int `json:"max_items"`
	// ListField 主列表字段名
	ListField string `json:"list_field"`
	// TextFields 需要按字符上限裁剪的文本字段名
	TextFields []string `json:"text_fields"`
	// TextCharLimit 文本字段字符上限
	TextCharLimit int `json:"text_char_limit"`
	// OverflowFields 容易膨胀的附加列表字段名（警告、阻塞项等）
	OverflowFields []string `json:"overflow_fields"`
}

// defaultProfiles 内置的工具截断配置表。
var defaultProfiles = map[string]Profile{
	"vector_search": {
		MaxTokens:      2000,
		MaxItems:       8,
		ListField:      "results",
		TextFields:     []string{"content", "snippet"},
		TextCharLimit:  400,
		OverflowFields: []string{"warnings"},
	},
	"web_search": {
		MaxTokens:      1500,
		MaxItems:       5,
		ListField:      "results",
		TextFields:     []string{"snippet", "content"},
		TextCharLimit:  300,
		OverflowFields: nil,
	},
	"read_file": {
		MaxTokens:      3000,
		MaxItems:       0,
		ListField:      "",
		TextFields:     []string{"content"},
		TextCharLimit:  8000,
		OverflowFields: nil,
	},
	"execute_command": {
		MaxTokens:      1500,
		MaxItems:       0,
		ListField:      "",
		TextFields:     []string{"stdout", "stderr"},
		TextCharLimit:  3000,
		OverflowFields: nil,
	},
	"task_analysis": {
		MaxTokens:      2000,
		MaxItems:       10,
		ListField:      "findings",
		TextFields:     []string{"detail", "summary"},
		TextCharLimit:  400,
		OverflowFields: []string{"warnings", "blockers"},
	},
}

// DefaultProfile 未配置工具名的兜底配置。
func DefaultProfile() Profile {
	return Profile{
		MaxTokens:      DefaultMaxTokens,
		MaxItems:       DefaultMaxItems,
		ListField:      "results",
		TextFields:     []string{"content", "text", "output"},
		TextCharLimit:  DefaultTextCharLimit,
		OverflowFields: []string{"warnings"},
	}
}

// DefaultProfiles 返回内置配置表的拷贝。
func DefaultProfiles() map[string]Profile {
	result := make(map[string]Profile, len(defaultProfiles))
	for k, v := range defaultProfiles {
		result[k] = v
	}
	return result
}
