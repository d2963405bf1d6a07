package token

import (
	"encoding/json"
)

// TruncationMarker 是文本截断后追加的标记。
const TruncationMarker = "... (内容已截断)"

// TruncateText 将文本截断到不超过 maxTokens 个 Token。
//
// 已在预算内的文本原样返回。截断时预留标记自身的 Token 数量，
// 保证返回文本重新编码后的长度 ≤ maxTokens。
func TruncateText(c Counter, text string, maxTokens int) string {
	if maxTokens < 1 {
		return ""
	}
	if c.Count(text) <= maxTokens {
		return text
	}

	if codec, ok := c.(Codec); ok {
		return truncateByTokens(c, codec, text, maxTokens)
	}
	return truncateByChars(c, text, maxTokens)
}

// truncateByTokens 通过编码-切片-解码进行精确截断。
func truncateByTokens(c Counter, codec Codec, text string, maxTokens int) string {
	tokens := codec.Encode(text)
	markerLen := len(codec.Encode(TruncationMarker))

	keep := maxTokens - markerLen
	if keep < 1 {
		// 预算容不下标记，只保留内容本身
		return ClipText(c, text, maxTokens)
	}

	truncated := codec.Decode(tokens[:keep]) + TruncationMarker

	// 解码-再编码在多字节边界上可能产生额外 Token，逐步回退
	for c.Count(truncated) > maxTokens && keep > 1 {
		keep--
		truncated = codec.Decode(tokens[:keep]) + TruncationMarker
	}
	if c.Count(truncated) > maxTokens {
		return ClipText(c, text, maxTokens)
	}

	return truncated
}

// truncateByChars 针对无编解码能力的计数器按字符截断。
func truncateByChars(c Counter, text string, maxTokens int) string {
	runes := []rune(text)
	// 二分查找最大可保留前缀
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if c.Count(string(runes[:mid])+TruncationMarker) <= maxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	if lo == 0 {
		return ""
	}
	return string(runes[:lo]) + TruncationMarker
}

// ClipText 将文本硬截断到不超过 maxTokens 个 Token，不追加标记。
//
// 用于截断后还需要重新解析的序列化负载，
// 返回文本是原文的纯前缀。
func ClipText(c Counter, text string, maxTokens int) string {
	if maxTokens < 1 {
		return ""
	}
	if c.Count(text) <= maxTokens {
		return text
	}

	if codec, ok := c.(Codec); ok {
		tokens := codec.Encode(text)
		keep := maxTokens
		if keep > len(tokens) {
			keep = len(tokens)
		}
		clipped := codec.Decode(tokens[:keep])
		for c.Count(clipped) > maxTokens && keep > 0 {
			keep--
			clipped = codec.Decode(tokens[:keep])
		}
		return clipped
	}

	runes := []rune(text)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if c.Count(string(runes[:mid])) <= maxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo])
}

// TruncateList 将列表截断到 maxItems 个元素并满足 maxTokens 预算。
//
// 先按 maxItems 截断；如果序列化后仍超出预算，从尾部逐个删除元素，
// 直到大小符合或只剩一个元素为止。
func TruncateList(c Counter, items []interface{}, maxItems, maxTokens int) []interface{} {
	if len(items) == 0 {
		return items
	}

	result := items
	if maxItems > 0 && len(result) > maxItems {
		result = result[:maxItems]
	}

	for len(result) > 1 && listTokens(c, result) > maxTokens {
		result = result[:len(result)-1]
	}

	return result
}

// listTokens 返回列表序列化后的 Token 数量。
func listTokens(c Counter, items []interface{}) int {
	data, err := json.Marshal(items)
	if err != nil {
		return 0
	}
	return c.Count(string(data))
}
