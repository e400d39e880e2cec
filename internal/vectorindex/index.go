// Package vectorindex 定义了向量索引的抽象及其 Elasticsearch 实现。
package vectorindex

import (
	"context"

	"deptkb-go/internal/model"
)

// Filter 约束一次向量检索的可见范围。过滤在索引侧执行，
// 越权的分块根本不会出现在候选集中。文档与知识条目的访问语义不同：
// 文档按层级展开后的级别集合匹配，条目按请求角色的列表成员关系匹配。
type Filter struct {
	// DocumentLevels 是请求角色可见的文档访问级别集合，为空表示文档不可见。
	DocumentLevels []model.Role
	// NoteRole 是用于条目列表匹配的请求角色，为空表示条目不可见。
	NoteRole model.Role
}

// Empty 报告过滤条件是否排除了一切来源。
func (f Filter) Empty() bool {
	return len(f.DocumentLevels) == 0 && f.NoteRole == ""
}

// Index 是向量索引的抽象。实现必须满足：
//   - Upsert 以 vector_id 幂等，重复写入覆盖旧值；
//   - Query 只返回过滤条件内的记录；
//   - 删除操作幂等，目标不存在不算错误。
type Index interface {
	Upsert(ctx context.Context, records []model.VectorRecord) error
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]model.ChunkHit, error)
	DeleteByIDs(ctx context.Context, vectorIDs []string) error
	DeleteBySource(ctx context.Context, sourceType, sourceID string) error
	// FetchIDs 返回给定 vector_id 中仍存在于索引的那些，供对账使用。
	FetchIDs(ctx context.Context, vectorIDs []string) ([]string, error)
	// FetchBySource 返回某个来源在索引中现存的全部 vector_id。
	// 关系库侧没有记录向量引用时（如入库中途失败），对账靠它发现残留。
	FetchBySource(ctx context.Context, sourceType, sourceID string) ([]string, error)
}
