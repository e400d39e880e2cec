package pipeline

import (
	"context"
	"strconv"

	"deptkb-go/internal/model"
	"deptkb-go/internal/repository"
	"deptkb-go/internal/vectorindex"
	"deptkb-go/pkg/log"
)

// 对账发现的不一致类别。
const (
	// OrphanReasonDeleted 来源已软删除，索引侧仍有残留向量或引用未清空。
	OrphanReasonDeleted = "deleted"
	// OrphanReasonFailed 入库失败，索引侧残留了部分写入的向量。
	OrphanReasonFailed = "ingest-failed"
	// OrphanReasonMissing 文档标记为已处理，但抽样的向量在索引侧查不到。
	// 这类需要重新入库而不是清理，Purge 只报告不处理。
	OrphanReasonMissing = "missing-vectors"
)

// Orphan 是一条对账发现的不一致记录。
type Orphan struct {
	SourceType string   `json:"sourceType"`
	SourceID   string   `json:"sourceId"`
	Reason     string   `json:"reason"`
	VectorIDs  []string `json:"vectorIds"`
}

// Reconciler 对账关系库与向量索引。检测只报告不删除；
// 清理操作幂等，重复执行结果一致。
type Reconciler struct {
	docs  repository.DocumentRepository
	notes repository.NoteRepository
	index vectorindex.Index
}

// NewReconciler 创建一个新的 Reconciler 实例。
func NewReconciler(docs repository.DocumentRepository, notes repository.NoteRepository, index vectorindex.Index) *Reconciler {
	return &Reconciler{docs: docs, notes: notes, index: index}
}

// FindOrphans 找出三类不一致：
//  1. 已软删除但向量引用仍未清空的来源；
//  2. 入库失败但索引侧残留向量的文档；
//  3. 已处理完成但抽样向量在索引侧缺失的文档。
//
// 引用的向量可能已经被索引侧删除，以索引实际存在的为准。
func (r *Reconciler) FindOrphans(ctx context.Context) ([]Orphan, error) {
	var orphans []Orphan

	docs, err := r.docs.FindDeletedWithVectors()
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		remaining, err := r.index.FetchIDs(ctx, []string(doc.VectorIDs))
		if err != nil {
			return nil, err
		}
		orphans = append(orphans, Orphan{
			SourceType: model.SourceTypeDocument,
			SourceID:   strconv.FormatUint(uint64(doc.ID), 10),
			Reason:     OrphanReasonDeleted,
			VectorIDs:  remaining,
		})
	}

	failed, err := r.docs.FindFailed()
	if err != nil {
		return nil, err
	}
	for _, doc := range failed {
		// 失败的文档通常没有记录向量引用，残留只能到索引侧按来源查
		sourceID := strconv.FormatUint(uint64(doc.ID), 10)
		residue, err := r.index.FetchBySource(ctx, model.SourceTypeDocument, sourceID)
		if err != nil {
			return nil, err
		}
		if len(residue) == 0 && len(doc.VectorIDs) == 0 {
			continue
		}
		orphans = append(orphans, Orphan{
			SourceType: model.SourceTypeDocument,
			SourceID:   sourceID,
			Reason:     OrphanReasonFailed,
			VectorIDs:  residue,
		})
	}

	processed, err := r.docs.FindProcessedWithVectors()
	if err != nil {
		return nil, err
	}
	for _, doc := range processed {
		if len(doc.VectorIDs) == 0 {
			continue
		}
		sample, err := r.index.FetchIDs(ctx, []string{doc.VectorIDs[0]})
		if err != nil {
			return nil, err
		}
		if len(sample) > 0 {
			continue
		}
		orphans = append(orphans, Orphan{
			SourceType: model.SourceTypeDocument,
			SourceID:   strconv.FormatUint(uint64(doc.ID), 10),
			Reason:     OrphanReasonMissing,
		})
	}

	notes, err := r.notes.FindDeletedWithVector()
	if err != nil {
		return nil, err
	}
	for _, note := range notes {
		remaining, err := r.index.FetchIDs(ctx, []string{note.VectorID})
		if err != nil {
			return nil, err
		}
		orphans = append(orphans, Orphan{
			SourceType: model.SourceTypeNote,
			SourceID:   strconv.FormatUint(uint64(note.ID), 10),
			Reason:     OrphanReasonDeleted,
			VectorIDs:  remaining,
		})
	}

	return orphans, nil
}

// Purge 清理残留向量并清空对应的向量引用，返回处理的来源数量。
// 向量缺失的已处理文档不在清理范围内，需要重新入库修复。
func (r *Reconciler) Purge(ctx context.Context) (int, error) {
	orphans, err := r.FindOrphans(ctx)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, o := range orphans {
		if o.Reason == OrphanReasonMissing {
			log.Warnf("[Reconcile] 文档向量缺失, source: %s/%s, 需要重新入库", o.SourceType, o.SourceID)
			continue
		}
		if err := r.index.DeleteBySource(ctx, o.SourceType, o.SourceID); err != nil {
			return purged, err
		}
		id, err := strconv.ParseUint(o.SourceID, 10, 64)
		if err != nil {
			continue
		}
		switch o.SourceType {
		case model.SourceTypeDocument:
			err = r.docs.ClearVectorIDs(uint(id))
		case model.SourceTypeNote:
			err = r.notes.ClearVectorID(uint(id))
		}
		if err != nil {
			return purged, err
		}
		purged++
		log.Infof("[Reconcile] 已清理残留向量, source: %s/%s", o.SourceType, o.SourceID)
	}
	return purged, nil
}
