package service

import (
	"context"
	"sync"
	"testing"

	"deptkb-go/internal/model"
	"deptkb-go/internal/repository"
	"deptkb-go/internal/settings"
	"deptkb-go/internal/tools"
	"deptkb-go/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDocRepo 只实现引用核验需要的查找方法，其余方法不会被调用。
type stubDocRepo struct {
	repository.DocumentRepository
	docs    map[string]*model.Document
	library map[string]*model.DocumentLibraryEntry
}

func (s *stubDocRepo) FindByOriginalName(name string) (*model.Document, error) {
	if doc, ok := s.docs[name]; ok {
		return doc, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubDocRepo) FindLibraryByTitle(title string) (*model.DocumentLibraryEntry, error) {
	if entry, ok := s.library[title]; ok {
		return entry, nil
	}
	return nil, repository.ErrNotFound
}

// memConvRepo 是内存版对话仓储。
type memConvRepo struct {
	mu       sync.Mutex
	sessions map[string][]model.ChatMessage
}

func newMemConvRepo() *memConvRepo {
	return &memConvRepo{sessions: make(map[string][]model.ChatMessage)}
}

func (m *memConvRepo) Append(ctx context.Context, sessionID string, msg model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], msg)
	return nil
}

func (m *memConvRepo) GetHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ChatMessage(nil), m.sessions[sessionID]...), nil
}

func (m *memConvRepo) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// stubRetrieval 返回预置的检索结果。
type stubRetrieval struct {
	result *RetrievedContext
}

func (s *stubRetrieval) Retrieve(ctx context.Context, query string, requester tools.Requester) (*RetrievedContext, error) {
	return s.result, nil
}

// stubLLM 返回固定回答。
type stubLLM struct {
	answer string
}

func (s *stubLLM) Complete(ctx context.Context, messages []llm.Message, modelName string) (string, error) {
	return s.answer, nil
}

func (s *stubLLM) StreamChatMessages(ctx context.Context, messages []llm.Message, modelName string, gen *llm.GenerationParams, writer llm.MessageWriter) error {
	return nil
}

// stubSigner 生成可断言的假链接。
type stubSigner struct{}

func (stubSigner) Sign(objectName string) (string, error) {
	return "https://files.example.edu/" + objectName + "?sig=test", nil
}

// stubSettingsRepo 为缓存提供固定的提示词与模型。
type stubSettingsRepo struct {
	repository.SettingsRepository
}

func (stubSettingsRepo) GetPromptByName(name string) (*model.SystemPrompt, error) {
	return &model.SystemPrompt{Name: name, Content: "只依据资料回答"}, nil
}

func (stubSettingsRepo) GetActiveModel() (*model.ModelConfig, error) {
	return &model.ModelConfig{ModelName: "qwen-plus", IsActive: true}, nil
}

func newTestAnswerService(t *testing.T, rawAnswer string, docs *stubDocRepo) (AnswerService, *memConvRepo) {
	t.Helper()
	conv := newMemConvRepo()
	svc := NewAnswerService(
		&stubRetrieval{result: &RetrievedContext{}},
		NewPromptService(),
		&stubLLM{answer: rawAnswer},
		settings.NewConfigCache(stubSettingsRepo{}),
		docs,
		conv,
		stubSigner{},
	)
	return svc, conv
}

func TestAnswerResolvesValidCitation(t *testing.T) {
	docs := &stubDocRepo{docs: map[string]*model.Document{
		"研究生培养方案.pdf": {
			ID: 1, FileName: "a1b2.pdf", OriginalName: "研究生培养方案.pdf",
			AccessLevel: model.RoleStudent, Status: model.DocStatusProcessed,
		},
	}}
	svc, _ := newTestAnswerService(t,
		"培养方案要求见 [培养方案](download:研究生培养方案.pdf)。", docs)

	res, err := svc.Answer(context.Background(), "s1", "培养方案要求是什么",
		tools.Requester{Role: model.RoleStudent})
	require.NoError(t, err)

	assert.Contains(t, res.Answer, "[培养方案](https://files.example.edu/a1b2.pdf?sig=test)")
	assert.NotContains(t, res.Answer, "download:")
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "研究生培养方案.pdf", res.Sources[0].Title)
	assert.Contains(t, res.Sources[0].DownloadURL, "a1b2.pdf")
}

func TestAnswerDropsHallucinatedCitation(t *testing.T) {
	svc, _ := newTestAnswerService(t,
		"详见 [不存在的文件](download:虚构文件.pdf)。",
		&stubDocRepo{docs: map[string]*model.Document{}})

	res, err := svc.Answer(context.Background(), "s1", "问题",
		tools.Requester{Role: model.RoleChairperson})
	require.NoError(t, err)

	// 幻觉引用只留下说明文字，不留任何链接痕迹
	assert.Equal(t, "详见 不存在的文件。", res.Answer)
	assert.Empty(t, res.Sources)
}

func TestAnswerDropsCitationAboveRequesterLevel(t *testing.T) {
	docs := &stubDocRepo{docs: map[string]*model.Document{
		"经费分配表.xlsx": {
			ID: 2, FileName: "c3d4.xlsx", OriginalName: "经费分配表.xlsx",
			AccessLevel: model.RoleChairperson, Status: model.DocStatusProcessed,
		},
	}}
	svc, _ := newTestAnswerService(t,
		"数据见 [经费分配表](download:经费分配表.xlsx)。", docs)

	// 学生无权下载主任级文档，即使模型引用了它
	res, err := svc.Answer(context.Background(), "s1", "经费怎么分配",
		tools.Requester{Role: model.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, "数据见 经费分配表。", res.Answer)
	assert.Empty(t, res.Sources)

	// 主任可以拿到链接
	res, err = svc.Answer(context.Background(), "s2", "经费怎么分配",
		tools.Requester{Role: model.RoleChairperson})
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "https://files.example.edu/c3d4.xlsx")
	require.Len(t, res.Sources, 1)
}

func TestAnswerResolvesLibraryCitation(t *testing.T) {
	docs := &stubDocRepo{
		docs: map[string]*model.Document{},
		library: map[string]*model.DocumentLibraryEntry{
			"报销单模板": {ID: 3, Title: "报销单模板", FileName: "tpl.docx", AccessLevel: model.RoleStudent},
		},
	}
	svc, _ := newTestAnswerService(t, "请下载 [报销单模板](download:报销单模板) 填写。", docs)

	res, err := svc.Answer(context.Background(), "s1", "报销单在哪下载",
		tools.Requester{Role: model.RoleMember})
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "https://files.example.edu/tpl.docx")
}

func TestAnswerPersistsImmutableConversationPair(t *testing.T) {
	svc, conv := newTestAnswerService(t, "这是回答。",
		&stubDocRepo{docs: map[string]*model.Document{}})

	_, err := svc.Answer(context.Background(), "s1", "问题一",
		tools.Requester{Role: model.RoleStudent})
	require.NoError(t, err)

	history, err := conv.GetHistory(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "问题一", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, "这是回答。", history[1].Content)
}
