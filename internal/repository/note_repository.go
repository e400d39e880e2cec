package repository

import (
	"errors"

	"deptkb-go/internal/model"
	"deptkb-go/pkg/log"

	"gorm.io/gorm"
)

// NoteRepository 定义了知识条目数据访问的接口。
// 读出的记录已完成 metadata 解析，调用方只使用 Meta 字段。
type NoteRepository interface {
	Create(note *model.KnowledgeNote) error
	Update(note *model.KnowledgeNote) error
	FindByID(id uint) (*model.KnowledgeNote, error)
	ListForRole(role model.Role) ([]model.KnowledgeNote, error)
	ListAll() ([]model.KnowledgeNote, error)
	SoftDelete(id uint) error
	UpdateVectorID(id uint, vectorID string) error
	FindDeletedWithVector() ([]model.KnowledgeNote, error)
	ClearVectorID(id uint) error
}

type noteRepository struct {
	db *gorm.DB
}

// NewNoteRepository 创建一个新的 NoteRepository 实例。
func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &noteRepository{db: db}
}

func (r *noteRepository) Create(note *model.KnowledgeNote) error {
	if err := note.EncodeMetadata(); err != nil {
		return err
	}
	return r.db.Create(note).Error
}

func (r *noteRepository) Update(note *model.KnowledgeNote) error {
	if err := note.EncodeMetadata(); err != nil {
		return err
	}
	return r.db.Save(note).Error
}

func (r *noteRepository) FindByID(id uint) (*model.KnowledgeNote, error) {
	var note model.KnowledgeNote
	if err := r.db.First(&note, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	decodeNote(&note)
	return &note, nil
}

// ListForRole 返回访问列表包含给定角色的全部条目。列表语义在内存中判断，
// 列是逗号串，SQL LIKE 无法区分前缀角色名。
func (r *noteRepository) ListForRole(role model.Role) ([]model.KnowledgeNote, error) {
	all, err := r.ListAll()
	if err != nil {
		return nil, err
	}
	var visible []model.KnowledgeNote
	for _, note := range all {
		if note.AccessLevels.Contains(role) {
			visible = append(visible, note)
		}
	}
	return visible, nil
}

func (r *noteRepository) ListAll() ([]model.KnowledgeNote, error) {
	var notes []model.KnowledgeNote
	if err := r.db.Order("updated_at DESC").Find(&notes).Error; err != nil {
		return nil, err
	}
	for i := range notes {
		decodeNote(&notes[i])
	}
	return notes, nil
}

func (r *noteRepository) SoftDelete(id uint) error {
	return r.db.Delete(&model.KnowledgeNote{}, id).Error
}

func (r *noteRepository) UpdateVectorID(id uint, vectorID string) error {
	return r.db.Model(&model.KnowledgeNote{}).Where("id = ?", id).
		Update("vector_id", vectorID).Error
}

// FindDeletedWithVector 查出已软删除但 vector_id 仍非空的条目，供对账使用。
func (r *noteRepository) FindDeletedWithVector() ([]model.KnowledgeNote, error) {
	var notes []model.KnowledgeNote
	err := r.db.Unscoped().
		Where("deleted_at IS NOT NULL").
		Where("vector_id IS NOT NULL AND vector_id != ''").
		Find(&notes).Error
	return notes, err
}

func (r *noteRepository) ClearVectorID(id uint) error {
	return r.db.Unscoped().Model(&model.KnowledgeNote{}).Where("id = ?", id).
		Update("vector_id", "").Error
}

// decodeNote 在仓储边界解析 metadata，解析失败只记日志并保留零值 Meta，
// 单条脏数据不应使整个列表不可用。
func decodeNote(note *model.KnowledgeNote) {
	if err := note.DecodeMetadata(); err != nil {
		log.Warnf("知识条目 metadata 解析失败, id: %d, error: %v", note.ID, err)
		note.Meta = model.NoteMetadata{}
	}
}
