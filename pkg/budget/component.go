// Package budget 提供上下文组件的 Token 预算分配能力
package budget

// ComponentKind 表示上下文组件的类型。
//
// 闭合枚举：未识别的组件名映射到 ComponentDefault。
type ComponentKind string

const (
	// ComponentSystemPrompt 系统提示（最高优先级）
	ComponentSystemPrompt ComponentKind = "system_prompt"
	// ComponentTask 当前用户任务/查询
	ComponentTask ComponentKind = "task"
	// ComponentTaskState 任务状态与结论
	ComponentTaskState ComponentKind = "task_state"
	// ComponentRetrievedContext 检索到的候选块
	ComponentRetrievedContext ComponentKind = "retrieved_context"
	// ComponentToolResults 工具调用结果
	ComponentToolResults ComponentKind = "tool_results"
	// ComponentHistory 对话历史
	ComponentHistory ComponentKind = "conversation_history"
	// ComponentWorkingNotes 工作笔记/草稿
	ComponentWorkingNotes ComponentKind = "working_notes"
	// ComponentDefault 未识别组件的兜底类型
	ComponentDefault ComponentKind = "default"
)

// Descriptor 组件预算描述符。
type Descriptor struct {
	// MinTokens 最低保障 Token 数
	MinTokens int `json:"min_tokens"`
	// TargetTokens 目标 Token 数
	TargetTokens int `json:"target_tokens"`
	// MaxTokens 最大 Token 数
	MaxTokens int `json:"max_tokens"`
	// Priority 优先级序号（越小越先分配）
	Priority int `json:"priority"`
}

// defaultDescriptors 各组件类型的默认描述符。
var defaultDescriptors = map[ComponentKind]Descriptor{
	ComponentSystemPrompt:     {MinTokens: 200, TargetTokens: 1500, MaxTokens: 3000, Priority: 0},
	ComponentTask:             {MinTokens: 50, TargetTokens: 500, MaxTokens: 2000, Priority: 1},
	ComponentTaskState:        {MinTokens: 0, TargetTokens: 800, MaxTokens: 2000, Priority: 2},
	ComponentRetrievedContext: {MinTokens: 0, TargetTokens: 4000, MaxTokens: 8000, Priority: 3},
	ComponentToolResults:      {MinTokens: 0, TargetTokens: 2000, MaxTokens: 6000, Priority: 4},
	ComponentHistory:          {MinTokens: 0, TargetTokens: 3000, MaxTokens: 8000, Priority: 5},
	ComponentWorkingNotes:     {MinTokens: 0, TargetTokens: 1000, MaxTokens: 3000, Priority: 6},
	ComponentDefault:          {MinTokens: 0, TargetTokens: 500, MaxTokens: 2000, Priority: 100},
}

// Kind 将组件名归一化为组件类型。
func Kind(name string) ComponentKind {
	kind := ComponentKind(name)
	if _, ok := defaultDescriptors[kind]; ok {
		return kind
	}
	return ComponentDefault
}

// DefaultDescriptors 返回默认描述符表的拷贝。
func DefaultDescriptors() map[ComponentKind]Descriptor {
	result := make(map[ComponentKind]Descriptor, len(defaultDescriptors))
	for k, v := range defaultDescriptors {
		result[k] = v
	}
	return result
}
