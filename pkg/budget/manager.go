package budget

import (
	"sort"

	"github.com/easyops/contextengine-go/pkg/token"
)

// 默认预算常量
const (
	// DefaultTotalBudget 默认总 Token 预算
	DefaultTotalBudget = 16000
	// DefaultResponseReserve 为 LLM 响应预留的 Token 数
	DefaultResponseReserve = 2000
	// DefaultSafetyMargin 安全余量
	DefaultSafetyMargin = 500
)

// Allocation 单个组件的 Token 分配。
type Allocation struct {
	// Component 组件名
	Component string `json:"component"`
	// Requested 请求的 Token 数
	Requested int `json:"requested"`
	// Allocated 实际分配的 Token 数
	Allocated int `json:"allocated"`
	// Truncated 是否被截断（Allocated < Requested）
	Truncated bool `json:"truncated"`
}

// Result 预算分配结果。
type Result struct {
	// Allocations 按优先级排序的分配列表
	Allocations []Allocation `json:"allocations"`
	// TotalUsed 已分配 Token 总数
	TotalUsed int `json:"total_used"`
	// TotalBudget 总预算
	TotalBudget int `json:"total_budget"`
	// Remaining 剩余可分配 Token 数
	Remaining int `json:"remaining"`
	// WithinBudget 分配总量是否在可用预算内
	//
	// 经过分配器的调用按构造必为 true；显式保留该字段
	// 供绕过分配器自行拼装上下文的调用方做健全性检查。
	WithinBudget bool `json:"within_budget"`
}

// Manager Token 预算管理器
//
// 将固定总预算按优先级分配给各命名组件，超出部分标记截断。
// 无共享可变状态，可安全地被并发调用方复用。
type Manager struct {
	counter         token.Counter
	totalBudget     int
	responseReserve int
	safetyMargin    int
	descriptors     map[ComponentKind]Descriptor
}

// ManagerOption 配置 Manager。
type ManagerOption func(*Manager)

// WithCounter 设置 Token 计数器。
func WithCounter(counter token.Counter) ManagerOption {
	return func(m *Manager) {
		m.counter = counter
	}
}

// WithTotalBudget 设置总预算。
func WithTotalBudget(total int) ManagerOption {
	return func(m *Manager) {
		m.totalBudget = total
	}
}

// WithResponseReserve 设置响应预留量。
func WithResponseReserve(reserve int) ManagerOption {
	return func(m *Manager) {
		m.responseReserve = reserve
	}
}

// WithSafetyMargin 设置安全余量。
func WithSafetyMargin(margin int) ManagerOption {
	return func(m *Manager) {
		m.safetyMargin = margin
	}
}

// WithDescriptor 覆盖指定组件类型的描述符。
func WithDescriptor(kind ComponentKind, desc Descriptor) ManagerOption {
	return func(m *Manager) {
		m.descriptors[kind] = desc
	}
}

// NewManager 创建预算管理器
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		totalBudget:     DefaultTotalBudget,
		responseReserve: DefaultResponseReserve,
		safetyMargin:    DefaultSafetyMargin,
		descriptors:     DefaultDescriptors(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.counter == nil {
		m.counter = token.Shared()
	}

	return m
}

// Available 返回扣除预留和余量后的可分配预算。
func (m *Manager) Available() int {
	available := m.totalBudget - m.responseReserve - m.safetyMargin
	if available < 0 {
		return 0
	}
	return available
}

// Allocate 为各组件分配 Token 预算。
//
// content 可以是纯文本，也可以是按规范化 JSON 序列化估算的
// 结构化负载。病态超大的组件会被钳制到其 MaxTokens，不会被拒绝；
// 本方法不返回错误。
func (m *Manager) Allocate(components map[string]interface{}) *Result {
	available := m.Available()

	// 按优先级升序排序组件名（未识别的组件归入兜底优先级），
	// 同优先级按名称排序保证确定性
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		pi := m.descriptorFor(names[i]).Priority
		pj := m.descriptorFor(names[j]).Priority
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})

	result := &Result{
		Allocations: make([]Allocation, 0, len(names)),
		TotalBudget: m.totalBudget,
	}

	runningTotal := 0
	for _, name := range names {
		desc := m.descriptorFor(name)
		requested := m.counter.CountValue(components[name])

		allocated := requested
		if allocated > desc.MaxTokens {
			allocated = desc.MaxTokens
		}
		if remaining := available - runningTotal; allocated > remaining {
			allocated = remaining
		}
		if allocated < 0 {
			allocated = 0
		}

		runningTotal += allocated
		result.Allocations = append(result.Allocations, Allocation{
			Component: name,
			Requested: requested,
			Allocated: allocated,
			Truncated: requested > allocated,
		})
	}

	result.TotalUsed = runningTotal
	result.Remaining = available - runningTotal
	result.WithinBudget = runningTotal <= available

	return result
}

// TruncateText 将文本截断到不超过 maxTokens 个 Token。
func (m *Manager) TruncateText(text string, maxTokens int) string {
	return token.TruncateText(m.counter, text, maxTokens)
}

// TruncateList 将列表截断到 maxItems 个元素并满足 maxTokens 预算。
func (m *Manager) TruncateList(items []interface{}, maxItems, maxTokens int) []interface{} {
	return token.TruncateList(m.counter, items, maxItems, maxTokens)
}

// descriptorFor 返回组件名对应的描述符。
func (m *Manager) descriptorFor(name string) Descriptor {
	if desc, ok := m.descriptors[ComponentKind(name)]; ok {
		return desc
	}
	return m.descriptors[ComponentDefault]
}
