package service

import (
	"fmt"
	"strings"

	"deptkb-go/internal/model"
	"deptkb-go/internal/tools"
	"deptkb-go/pkg/llm"
)

// maxHistoryMessages 限制注入提示词的历史消息条数，截断时丢弃最旧的。
const maxHistoryMessages = 6

// PromptService 把系统提示词、检索资料与对话历史组装为模型输入。
type PromptService interface {
	Build(systemPrompt, query string, retrieved *RetrievedContext, history []model.ChatMessage) []llm.Message
}

type promptService struct{}

// NewPromptService 创建一个新的 PromptService 实例。
func NewPromptService() PromptService {
	return &promptService{}
}

// Build 组装完整的消息序列：system(提示词+资料) -> 历史(旧到新) -> 当前问题。
func (s *promptService) Build(systemPrompt, query string, retrieved *RetrievedContext, history []model.ChatMessage) []llm.Message {
	var sb strings.Builder
	sb.WriteString(systemPrompt)

	if retrieved != nil && (len(retrieved.Chunks) > 0 || len(retrieved.ToolResults) > 0) {
		sb.WriteString("\n\n以下是与问题相关的资料：\n")
		n := 0
		for _, chunk := range retrieved.Chunks {
			n++
			sb.WriteString(fmt.Sprintf("\n【资料%d】(%s)\n%s\n", n, chunk.Title, chunk.TextContent))
		}
		for _, res := range retrieved.ToolResults {
			n++
			sb.WriteString(fmt.Sprintf("\n【资料%d】%s\n", n, describeToolResult(res)))
		}
	} else {
		sb.WriteString("\n\n没有检索到与问题相关的资料。")
	}

	if retrieved != nil && retrieved.Degraded {
		sb.WriteString("\n注意：文档检索暂时不可用，以上资料可能不完整，请在回答中说明这一点。")
	}

	messages := []llm.Message{{Role: "system", Content: sb.String()}}

	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}

	messages = append(messages, llm.Message{Role: "user", Content: query})
	return messages
}

// describeToolResult 把工具结果转成模型可读的陈述。
// 未命中与数据源不可用的措辞必须可区分。
func describeToolResult(res tools.Result) string {
	switch res.Status {
	case tools.StatusFound:
		return res.Content
	case tools.StatusNotFound:
		return fmt.Sprintf("数据查询确认：%s。这是确定的否定结论，不是数据缺失。", res.Content)
	default:
		return fmt.Sprintf("工具 %s 的数据源当前不可用，无法确认相关信息。", res.ToolName)
	}
}
