package service

import (
	"context"
	"fmt"
	"strconv"

	"deptkb-go/internal/model"
	"deptkb-go/internal/pipeline"
	"deptkb-go/internal/repository"
	"deptkb-go/internal/vectorindex"
	"deptkb-go/pkg/embedding"
	"deptkb-go/pkg/kafka"
	"deptkb-go/pkg/log"
	"deptkb-go/pkg/tasks"
)

// NoteService 定义了知识条目管理的接口。
// 条目内容短，嵌入同步完成，不走 Kafka 流水线。
type NoteService interface {
	Create(ctx context.Context, note *model.KnowledgeNote) error
	Update(ctx context.Context, note *model.KnowledgeNote) error
	Delete(id uint) error
	ListForRole(role model.Role) ([]model.KnowledgeNote, error)
	ListAll() ([]model.KnowledgeNote, error)
}

type noteService struct {
	notes    repository.NoteRepository
	index    vectorindex.Index
	embedder embedding.Client
}

// NewNoteService 创建一个新的 NoteService 实例。
func NewNoteService(notes repository.NoteRepository, index vectorindex.Index, embedder embedding.Client) NoteService {
	return &noteService{notes: notes, index: index, embedder: embedder}
}

// Create 持久化条目并写入向量索引。先落库拿到 ID，再写向量并回填引用，
// 中途失败留下的是无向量引用的条目，不会产生孤儿向量。
func (s *noteService) Create(ctx context.Context, note *model.KnowledgeNote) error {
	if err := s.notes.Create(note); err != nil {
		return err
	}
	return s.reindex(ctx, note)
}

// Update 更新条目并重建向量。旧记录被同 ID 覆盖，不会残留。
func (s *noteService) Update(ctx context.Context, note *model.KnowledgeNote) error {
	if err := s.notes.Update(note); err != nil {
		return err
	}
	return s.reindex(ctx, note)
}

func (s *noteService) reindex(ctx context.Context, note *model.KnowledgeNote) error {
	vector, err := s.embedder.CreateEmbedding(ctx, note.Title+"\n"+note.Content)
	if err != nil {
		return fmt.Errorf("条目嵌入失败: %w", err)
	}

	vectorID := pipeline.NoteVectorID(note.ID)
	record := model.VectorRecord{
		ID:           vectorID,
		SourceID:     strconv.FormatUint(uint64(note.ID), 10),
		SourceType:   model.SourceTypeNote,
		AccessLevels: note.AccessLevels,
		Title:        note.Title,
		TextContent:  note.Content,
		Embedding:    vector,
	}
	if err := s.index.Upsert(ctx, []model.VectorRecord{record}); err != nil {
		return fmt.Errorf("条目向量写入失败: %w", err)
	}
	return s.notes.UpdateVectorID(note.ID, vectorID)
}

// Delete 软删除条目并投递异步清理任务。
func (s *noteService) Delete(id uint) error {
	if err := s.notes.SoftDelete(id); err != nil {
		return err
	}
	if err := kafka.ProducePurgeTask(tasks.VectorPurgeTask{
		SourceID:   strconv.FormatUint(uint64(id), 10),
		SourceType: model.SourceTypeNote,
	}); err != nil {
		log.Errorf("[Note] 投递清理任务失败, id: %d, error: %v", id, err)
	}
	return nil
}

func (s *noteService) ListForRole(role model.Role) ([]model.KnowledgeNote, error) {
	return s.notes.ListForRole(role)
}

func (s *noteService) ListAll() ([]model.KnowledgeNote, error) {
	return s.notes.ListAll()
}
