// Package service 实现了应用的业务逻辑层。
package service

import (
	"context"
	"sort"

	"deptkb-go/internal/access"
	"deptkb-go/internal/model"
	"deptkb-go/internal/tools"
	"deptkb-go/internal/vectorindex"
	"deptkb-go/pkg/embedding"
	"deptkb-go/pkg/log"
)

const (
	// DefaultTopK 是向量检索的候选数量。
	DefaultTopK = 10
	// maxContextSnippets 限制进入提示词的资料条数。
	maxContextSnippets = 8
)

// RetrievedContext 是一次检索的全部产出。
// Degraded 表示向量检索失败后的降级：工具结果仍然可用，但缺少文档资料。
type RetrievedContext struct {
	Chunks      []model.ChunkHit
	ToolResults []tools.Result
	Degraded    bool
}

// RetrievalService 定义了检索服务的接口。
type RetrievalService interface {
	Retrieve(ctx context.Context, query string, requester tools.Requester) (*RetrievedContext, error)
}

type retrievalService struct {
	index    vectorindex.Index
	embedder embedding.Client
	registry *tools.Registry
}

// NewRetrievalService 创建一个新的 RetrievalService 实例。
func NewRetrievalService(index vectorindex.Index, embedder embedding.Client, registry *tools.Registry) RetrievalService {
	return &retrievalService{index: index, embedder: embedder, registry: registry}
}

// Retrieve 执行角色过滤的向量检索并触发结构化数据工具。
// 向量链路失败只降级不报错，结构化工具的结果不受影响。
func (s *retrievalService) Retrieve(ctx context.Context, query string, requester tools.Requester) (*RetrievedContext, error) {
	result := &RetrievedContext{
		ToolResults: s.registry.Execute(query, requester),
	}

	filter := vectorindex.Filter{
		DocumentLevels: access.AllowedDocumentLevels(requester.Role),
		NoteRole:       requester.Role,
	}
	if filter.Empty() {
		return result, nil
	}

	vector, err := s.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		log.Warnf("[Retrieval] 查询嵌入失败，降级为无文档资料: %v", err)
		result.Degraded = true
		return result, nil
	}

	hits, err := s.index.Query(ctx, vector, DefaultTopK, filter)
	if err != nil {
		log.Warnf("[Retrieval] 向量检索失败，降级为无文档资料: %v", err)
		result.Degraded = true
		return result, nil
	}

	result.Chunks = dedupeBySource(hits, maxContextSnippets)
	return result, nil
}

// dedupeBySource 同一来源只保留得分最高的分块，并裁剪到条数上限。
func dedupeBySource(hits []model.ChunkHit, limit int) []model.ChunkHit {
	best := make(map[string]model.ChunkHit)
	for _, h := range hits {
		key := h.SourceType + ":" + h.SourceID
		if cur, ok := best[key]; !ok || h.Score > cur.Score {
			best[key] = h
		}
	}
	out := make([]model.ChunkHit, 0, len(best))
	for _, h := range best {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
