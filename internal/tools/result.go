// Package tools 实现了基于本地数据集的结构化数据工具。
package tools

// ResultStatus 区分工具调用的三种结局：命中、确认未命中、数据源不可用。
// 未命中与不可用必须可区分，提示词对两者的措辞不同。
type ResultStatus string

const (
	StatusFound       ResultStatus = "found"
	StatusNotFound    ResultStatus = "not_found"
	StatusUnavailable ResultStatus = "unavailable"
)

// Result 是一次工具调用的结构化结果。
type Result struct {
	ToolName string       `json:"toolName"`
	Status   ResultStatus `json:"status"`
	// Title 是结果的简短标题，进入提示词的资料列表。
	Title string `json:"title,omitempty"`
	// Content 是供大模型阅读的事实陈述文本。
	Content string `json:"content,omitempty"`
}

// Found 构造一个命中结果。
func Found(toolName, title, content string) Result {
	return Result{ToolName: toolName, Status: StatusFound, Title: title, Content: content}
}

// NotFound 构造一个确认未命中的结果。
func NotFound(toolName, content string) Result {
	return Result{ToolName: toolName, Status: StatusNotFound, Content: content}
}

// Unavailable 构造一个数据源不可用的结果。
func Unavailable(toolName string) Result {
	return Result{ToolName: toolName, Status: StatusUnavailable, Content: "数据源当前不可用"}
}
