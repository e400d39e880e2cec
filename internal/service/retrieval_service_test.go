package service

import (
	"context"
	"errors"
	"testing"

	"deptkb-go/internal/config"
	"deptkb-go/internal/model"
	"deptkb-go/internal/repository"
	"deptkb-go/internal/settings"
	"deptkb-go/internal/tools"
	"deptkb-go/internal/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memIndex 是内存版向量索引，按过滤条件返回预置命中。
type memIndex struct {
	records []model.VectorRecord
	failing bool
}

func (m *memIndex) Upsert(ctx context.Context, records []model.VectorRecord) error {
	m.records = append(m.records, records...)
	return nil
}

func (m *memIndex) Query(ctx context.Context, vector []float32, topK int, filter vectorindex.Filter) ([]model.ChunkHit, error) {
	if m.failing {
		return nil, errors.New("index unavailable")
	}
	allowedDoc := make(map[model.Role]bool)
	for _, lv := range filter.DocumentLevels {
		allowedDoc[lv] = true
	}
	var hits []model.ChunkHit
	for i, rec := range m.records {
		visible := false
		switch rec.SourceType {
		case model.SourceTypeDocument:
			visible = len(rec.AccessLevels) > 0 && allowedDoc[rec.AccessLevels[0]]
		case model.SourceTypeNote:
			visible = filter.NoteRole != "" && rec.AccessLevels.Contains(filter.NoteRole)
		}
		if !visible {
			continue
		}
		hits = append(hits, model.ChunkHit{
			VectorID: rec.ID, SourceID: rec.SourceID, SourceType: rec.SourceType,
			AccessLevels: rec.AccessLevels, Title: rec.Title,
			TextContent: rec.TextContent, ChunkIndex: rec.ChunkIndex,
			Score: 1.0 - float64(i)*0.01,
		})
	}
	return hits, nil
}

func (m *memIndex) DeleteByIDs(ctx context.Context, vectorIDs []string) error { return nil }
func (m *memIndex) DeleteBySource(ctx context.Context, sourceType, sourceID string) error {
	return nil
}
func (m *memIndex) FetchIDs(ctx context.Context, vectorIDs []string) ([]string, error) {
	return nil, nil
}
func (m *memIndex) FetchBySource(ctx context.Context, sourceType, sourceID string) ([]string, error) {
	return nil, nil
}

// stubEmbedder 返回固定向量。
type stubEmbedder struct {
	failing bool
}

func (s *stubEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if s.failing {
		return nil, errors.New("embedding api down")
	}
	return []float32{0.5, 0.5}, nil
}

// openPermRepo 不限制任何工具。
type openPermRepo struct {
	repository.SettingsRepository
}

func (openPermRepo) GetToolPermission(toolName string) (*model.ToolPermission, error) {
	return nil, repository.ErrNotFound
}

func emptyRegistry() *tools.Registry {
	cfg := config.DatasetsConfig{}
	cache := settings.NewConfigCache(openPermRepo{})
	return tools.NewRegistry(cache, tools.NewJournalTool(cfg), tools.NewStaffTool(cfg), tools.NewResearchTool(cfg))
}

func docRecord(id, title string, level model.Role) model.VectorRecord {
	return model.VectorRecord{
		ID: id + "-chunk-0", SourceID: id, SourceType: model.SourceTypeDocument,
		AccessLevels: model.RoleList{level}, Title: title, TextContent: title + " 的内容",
	}
}

func TestRetrieveFiltersByRole(t *testing.T) {
	index := &memIndex{records: []model.VectorRecord{
		docRecord("1", "学生手册", model.RoleStudent),
		docRecord("2", "教职工制度", model.RoleMember),
		docRecord("3", "经费分配", model.RoleChairperson),
		{
			ID: "knowledge-note-1", SourceID: "1", SourceType: model.SourceTypeNote,
			AccessLevels: model.RoleList{model.RoleStudent, model.RoleChairperson},
			Title:        "选课答疑", TextContent: "选课相关说明",
		},
	}}
	svc := NewRetrievalService(index, &stubEmbedder{}, emptyRegistry())

	// 学生：student 级文档 + 列表含 student 的条目
	res, err := svc.Retrieve(context.Background(), "选课要求", tools.Requester{Role: model.RoleStudent})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)
	titles := []string{res.Chunks[0].Title, res.Chunks[1].Title}
	assert.Contains(t, titles, "学生手册")
	assert.Contains(t, titles, "选课答疑")

	// member：student/member 级文档，但条目列表不含 member，层级不适用于条目
	res, err = svc.Retrieve(context.Background(), "制度", tools.Requester{Role: model.RoleMember})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)
	for _, c := range res.Chunks {
		assert.NotEqual(t, "选课答疑", c.Title)
		assert.NotEqual(t, "经费分配", c.Title)
	}

	// chairperson 全量可见
	res, err = svc.Retrieve(context.Background(), "制度", tools.Requester{Role: model.RoleChairperson})
	require.NoError(t, err)
	assert.Len(t, res.Chunks, 4)
}

func TestRetrievePublicSeesNothing(t *testing.T) {
	index := &memIndex{records: []model.VectorRecord{
		docRecord("1", "学生手册", model.RoleStudent),
	}}
	svc := NewRetrievalService(index, &stubEmbedder{}, emptyRegistry())

	res, err := svc.Retrieve(context.Background(), "手册", tools.Requester{Role: model.RolePublic})
	require.NoError(t, err)
	assert.Empty(t, res.Chunks)
	assert.False(t, res.Degraded)
}

func TestRetrieveDegradesOnIndexFailure(t *testing.T) {
	index := &memIndex{failing: true}
	svc := NewRetrievalService(index, &stubEmbedder{}, emptyRegistry())

	res, err := svc.Retrieve(context.Background(), "问题", tools.Requester{Role: model.RoleStudent})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Empty(t, res.Chunks)
}

func TestRetrieveDegradesOnEmbeddingFailure(t *testing.T) {
	svc := NewRetrievalService(&memIndex{}, &stubEmbedder{failing: true}, emptyRegistry())

	res, err := svc.Retrieve(context.Background(), "问题", tools.Requester{Role: model.RoleStudent})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
}

func TestDedupeBySourceKeepsBestChunk(t *testing.T) {
	hits := []model.ChunkHit{
		{SourceType: "document", SourceID: "1", ChunkIndex: 0, Score: 0.7},
		{SourceType: "document", SourceID: "1", ChunkIndex: 3, Score: 0.9},
		{SourceType: "document", SourceID: "2", ChunkIndex: 1, Score: 0.8},
	}
	out := dedupeBySource(hits, 8)
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0].SourceID)
	assert.Equal(t, 3, out[0].ChunkIndex)
	assert.Equal(t, "2", out[1].SourceID)
}

func TestDedupeBySourceEnforcesLimit(t *testing.T) {
	var hits []model.ChunkHit
	for i := 0; i < 20; i++ {
		hits = append(hits, model.ChunkHit{
			SourceType: "document", SourceID: string(rune('a' + i)), Score: float64(i),
		})
	}
	out := dedupeBySource(hits, maxContextSnippets)
	assert.Len(t, out, maxContextSnippets)
	// 保留的是得分最高的来源
	assert.Equal(t, 19.0, out[0].Score)
}
