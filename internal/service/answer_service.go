package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"deptkb-go/internal/access"
	"deptkb-go/internal/model"
	"deptkb-go/internal/repository"
	"deptkb-go/internal/settings"
	"deptkb-go/internal/tools"
	"deptkb-go/pkg/llm"
	"deptkb-go/pkg/log"
)

// citationPattern 匹配回答中的下载引用标记 [说明](download:文件标题)。
var citationPattern = regexp.MustCompile(`\[([^\]]+)\]\(download:([^)]+)\)`)

// URLSigner 为存储对象生成带签名的下载链接。
type URLSigner interface {
	Sign(objectName string) (string, error)
}

// AnswerResult 是一次问答的最终产出。
type AnswerResult struct {
	Answer   string               `json:"answer"`
	Sources  []model.AnswerSource `json:"sources"`
	Degraded bool                 `json:"degraded"`
}

// AnswerService 定义了问答服务的接口。
type AnswerService interface {
	Answer(ctx context.Context, sessionID, query string, requester tools.Requester) (*AnswerResult, error)
	// StreamAnswer 把模型输出分块写入 writer，结束后返回引用核验完成的最终结果。
	StreamAnswer(ctx context.Context, sessionID, query string, requester tools.Requester, writer llm.MessageWriter) (*AnswerResult, error)
}

type answerService struct {
	retrieval RetrievalService
	prompt    PromptService
	llmClient llm.Client
	cache     *settings.ConfigCache
	docs      repository.DocumentRepository
	conv      repository.ConversationRepository
	signer    URLSigner
}

// NewAnswerService 创建一个新的 AnswerService 实例。
func NewAnswerService(
	retrieval RetrievalService,
	prompt PromptService,
	llmClient llm.Client,
	cache *settings.ConfigCache,
	docs repository.DocumentRepository,
	conv repository.ConversationRepository,
	signer URLSigner,
) AnswerService {
	return &answerService{
		retrieval: retrieval,
		prompt:    prompt,
		llmClient: llmClient,
		cache:     cache,
		docs:      docs,
		conv:      conv,
		signer:    signer,
	}
}

// Answer 执行完整的问答链路：检索、组装提示词、生成、引用核验、落历史。
func (s *answerService) Answer(ctx context.Context, sessionID, query string, requester tools.Requester) (*AnswerResult, error) {
	messages, retrieved, modelName, err := s.prepare(ctx, sessionID, query, requester)
	if err != nil {
		return nil, err
	}

	raw, err := s.llmClient.Complete(ctx, messages, modelName)
	if err != nil {
		return nil, fmt.Errorf("模型调用失败: %w", err)
	}

	return s.finish(ctx, sessionID, query, raw, requester, retrieved), nil
}

// StreamAnswer 与 Answer 链路一致，但把模型输出实时转发给 writer，
// 边转发边累积全文，流结束后再做引用核验与历史落盘。
func (s *answerService) StreamAnswer(ctx context.Context, sessionID, query string, requester tools.Requester, writer llm.MessageWriter) (*AnswerResult, error) {
	messages, retrieved, modelName, err := s.prepare(ctx, sessionID, query, requester)
	if err != nil {
		return nil, err
	}

	collector := &collectingWriter{inner: writer}
	if err := s.llmClient.StreamChatMessages(ctx, messages, modelName, nil, collector); err != nil {
		return nil, fmt.Errorf("模型调用失败: %w", err)
	}

	return s.finish(ctx, sessionID, query, collector.buf.String(), requester, retrieved), nil
}

func (s *answerService) prepare(ctx context.Context, sessionID, query string, requester tools.Requester) ([]llm.Message, *RetrievedContext, string, error) {
	history, err := s.conv.GetHistory(ctx, sessionID)
	if err != nil {
		log.Warnf("[Answer] 读取对话历史失败, session: %s, error: %v", sessionID, err)
		history = nil
	}

	retrieved, err := s.retrieval.Retrieve(ctx, query, requester)
	if err != nil {
		return nil, nil, "", fmt.Errorf("检索失败: %w", err)
	}

	systemPrompt, err := s.cache.SystemPrompt()
	if err != nil {
		return nil, nil, "", fmt.Errorf("读取系统提示词失败: %w", err)
	}

	modelName := ""
	if mc, err := s.cache.ActiveModel(); err == nil {
		modelName = mc.ModelName
	} else {
		log.Warnf("[Answer] 读取激活模型失败，使用配置兜底: %v", err)
	}

	return s.prompt.Build(systemPrompt, query, retrieved, history), retrieved, modelName, nil
}

func (s *answerService) finish(ctx context.Context, sessionID, query, raw string, requester tools.Requester, retrieved *RetrievedContext) *AnswerResult {
	answer, sources := s.resolveCitations(raw, requester.Role)

	// 问答对一经写入不再修改
	now := time.Now()
	if err := s.conv.Append(ctx, sessionID, model.ChatMessage{
		Role: "user", Content: query, Timestamp: now,
	}); err != nil {
		log.Warnf("[Answer] 写入用户消息失败, session: %s, error: %v", sessionID, err)
	}
	if err := s.conv.Append(ctx, sessionID, model.ChatMessage{
		Role: "assistant", Content: answer, Sources: sources, Timestamp: now,
	}); err != nil {
		log.Warnf("[Answer] 写入回答消息失败, session: %s, error: %v", sessionID, err)
	}

	return &AnswerResult{Answer: answer, Sources: sources, Degraded: retrieved.Degraded}
}

// collectingWriter 在转发分块的同时累积完整回答。
type collectingWriter struct {
	inner llm.MessageWriter
	buf   strings.Builder
}

func (w *collectingWriter) WriteMessage(messageType int, data []byte) error {
	w.buf.Write(data)
	return w.inner.WriteMessage(messageType, data)
}

// resolveCitations 核验回答中的全部下载引用。引用的文件必须真实存在
// 且对请求角色可见，才会被替换为可用链接；否则只保留说明文字，
// 不留下任何可点击的痕迹。
func (s *answerService) resolveCitations(raw string, requester model.Role) (string, []model.AnswerSource) {
	var sources []model.AnswerSource
	seen := make(map[string]bool)

	answer := citationPattern.ReplaceAllStringFunc(raw, func(match string) string {
		m := citationPattern.FindStringSubmatch(match)
		text, title := m[1], strings.TrimSpace(m[2])

		objectName, accessLevel, ok := s.lookupCited(title)
		if !ok {
			log.Warnf("[Answer] 引用的文件不存在，已移除链接: %q", title)
			return text
		}
		if !access.CanAccessDocument(accessLevel, requester) {
			log.Warnf("[Answer] 引用的文件对角色 %s 不可见，已移除链接: %q", requester, title)
			return text
		}

		url, err := s.signer.Sign(objectName)
		if err != nil {
			log.Errorf("[Answer] 生成下载链接失败: %q, error: %v", title, err)
			return text
		}
		if !seen[title] {
			seen[title] = true
			sources = append(sources, model.AnswerSource{
				Title:       title,
				SourceType:  model.SourceTypeDocument,
				DownloadURL: url,
			})
		}
		return fmt.Sprintf("[%s](%s)", text, url)
	})

	return answer, sources
}

// lookupCited 按标题在已入库文档和资料库条目中查找被引用的文件。
func (s *answerService) lookupCited(title string) (objectName string, accessLevel model.Role, ok bool) {
	if doc, err := s.docs.FindByOriginalName(title); err == nil {
		return doc.FileName, doc.AccessLevel, true
	}
	if entry, err := s.docs.FindLibraryByTitle(title); err == nil {
		return entry.FileName, entry.AccessLevel, true
	}
	return "", "", false
}
