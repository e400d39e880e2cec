package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"deptkb-go/internal/model"
	"deptkb-go/internal/repository"
	"deptkb-go/internal/vectorindex"
	"deptkb-go/pkg/embedding"
	"deptkb-go/pkg/log"
	"deptkb-go/pkg/tasks"
)

// ObjectFetcher 从对象存储读取文件内容。
type ObjectFetcher interface {
	Fetch(ctx context.Context, objectName string) (io.ReadCloser, error)
}

// TextExtractor 从文件内容提取纯文本。
type TextExtractor interface {
	ExtractText(r io.Reader, fileName string) (string, error)
}

// Processor 消费 Kafka 任务，执行文档入库与向量清理。
// 同一文档上的入库与清理按 ID 串行，避免交错产生孤儿向量。
type Processor struct {
	docs      repository.DocumentRepository
	notes     repository.NoteRepository
	index     vectorindex.Index
	embedder  embedding.Client
	fetcher   ObjectFetcher
	extractor TextExtractor
	locks     *keyedLocks
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	docs repository.DocumentRepository,
	notes repository.NoteRepository,
	index vectorindex.Index,
	embedder embedding.Client,
	fetcher ObjectFetcher,
	extractor TextExtractor,
) *Processor {
	return &Processor{
		docs:      docs,
		notes:     notes,
		index:     index,
		embedder:  embedder,
		fetcher:   fetcher,
		extractor: extractor,
		locks:     newKeyedLocks(),
	}
}

// DocumentVectorID 返回文档某个分块的向量 ID。ID 由来源决定，
// 重试产生的重复写入会覆盖同一条记录。
func DocumentVectorID(documentID uint, chunkIndex int) string {
	return fmt.Sprintf("document-%d-chunk-%d", documentID, chunkIndex)
}

// NoteVectorID 返回知识条目的向量 ID。
func NoteVectorID(noteID uint) string {
	return fmt.Sprintf("knowledge-note-%d", noteID)
}

// ProcessDocument 执行一次文档入库：下载、抽取、切块、嵌入、写索引。
// 所有向量写入成功后才把状态置为 processed，两阶段顺序不可颠倒。
func (p *Processor) ProcessDocument(ctx context.Context, task tasks.DocumentProcessingTask) error {
	unlock := p.locks.Lock(sourceKey(model.SourceTypeDocument, task.DocumentID))
	defer unlock()

	log.Infof("[Pipeline] 开始处理文档, id: %d, file: %s", task.DocumentID, task.FileName)

	doc, err := p.docs.FindByID(task.DocumentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// 文档在任务执行前已被删除，任务作废
			log.Warnf("[Pipeline] 文档不存在或已删除，跳过处理, id: %d", task.DocumentID)
			return nil
		}
		return err
	}

	records, err := p.buildRecords(ctx, doc)
	if err != nil {
		log.Errorf("[Pipeline] 文档处理失败, id: %d, error: %v", task.DocumentID, err)
		if markErr := p.docs.MarkFailed(doc.ID); markErr != nil {
			log.Errorf("[Pipeline] 标记文档失败状态出错, id: %d, error: %v", doc.ID, markErr)
		}
		return err
	}

	if err := p.index.Upsert(ctx, records); err != nil {
		log.Errorf("[Pipeline] 向量写入失败, id: %d, error: %v", doc.ID, err)
		if markErr := p.docs.MarkFailed(doc.ID); markErr != nil {
			log.Errorf("[Pipeline] 标记文档失败状态出错, id: %d, error: %v", doc.ID, markErr)
		}
		return err
	}

	vectorIDs := make(model.StringList, 0, len(records))
	for _, rec := range records {
		vectorIDs = append(vectorIDs, rec.ID)
	}
	if err := p.docs.MarkProcessed(doc.ID, len(records), vectorIDs); err != nil {
		return err
	}

	log.Infof("[Pipeline] 文档处理完成, id: %d, chunks: %d", doc.ID, len(records))
	return nil
}

func (p *Processor) buildRecords(ctx context.Context, doc *model.Document) ([]model.VectorRecord, error) {
	reader, err := p.fetcher.Fetch(ctx, doc.FileName)
	if err != nil {
		return nil, fmt.Errorf("下载文件失败: %w", err)
	}
	defer reader.Close()

	text, err := p.extractor.ExtractText(reader, doc.OriginalName)
	if err != nil {
		return nil, fmt.Errorf("提取文本失败: %w", err)
	}

	chunks := splitText(text, chunkSize, chunkOverlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("文档没有可用文本内容")
	}

	records := make([]model.VectorRecord, 0, len(chunks))
	for i, chunk := range chunks {
		vector, err := p.embedder.CreateEmbedding(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("第 %d 块嵌入失败: %w", i, err)
		}
		records = append(records, model.VectorRecord{
			ID:           DocumentVectorID(doc.ID, i),
			SourceID:     strconv.FormatUint(uint64(doc.ID), 10),
			SourceType:   model.SourceTypeDocument,
			AccessLevels: model.RoleList{doc.AccessLevel},
			FileName:     doc.FileName,
			Title:        doc.OriginalName,
			ChunkIndex:   i,
			TextContent:  chunk,
		})
		records[len(records)-1].Embedding = vector
	}
	return records, nil
}

// PurgeSource 清理某个来源在索引中的全部向量，并清空关系库中的向量引用。
// 删除幂等，重复执行的任务不会出错。
func (p *Processor) PurgeSource(ctx context.Context, task tasks.VectorPurgeTask) error {
	unlock := p.locks.Lock(task.SourceType + ":" + task.SourceID)
	defer unlock()

	log.Infof("[Pipeline] 开始清理向量, source: %s/%s", task.SourceType, task.SourceID)

	if err := p.index.DeleteBySource(ctx, task.SourceType, task.SourceID); err != nil {
		return err
	}

	id, err := strconv.ParseUint(task.SourceID, 10, 64)
	if err != nil {
		log.Warnf("[Pipeline] 无法解析来源 ID: %s", task.SourceID)
		return nil
	}
	switch task.SourceType {
	case model.SourceTypeDocument:
		if err := p.docs.ClearVectorIDs(uint(id)); err != nil {
			return err
		}
	case model.SourceTypeNote:
		if err := p.notes.ClearVectorID(uint(id)); err != nil {
			return err
		}
	}

	log.Infof("[Pipeline] 向量清理完成, source: %s/%s", task.SourceType, task.SourceID)
	return nil
}

func sourceKey(sourceType string, id uint) string {
	return fmt.Sprintf("%s:%d", sourceType, id)
}
