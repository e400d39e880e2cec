// Package repository 包含了数据访问层的实现。
package repository

import (
	"errors"

	"deptkb-go/internal/model"

	"gorm.io/gorm"
)

// ErrNotFound 表示目标记录不存在。
var ErrNotFound = errors.New("记录不存在")

// DocumentRepository 定义了文档数据访问的接口。
type DocumentRepository interface {
	Create(doc *model.Document) error
	FindByID(id uint) (*model.Document, error)
	FindByFileName(fileName string) (*model.Document, error)
	FindByOriginalName(name string) (*model.Document, error)
	ListByAccessLevels(levels []model.Role) ([]model.Document, error)
	MarkProcessed(id uint, chunkCount int, vectorIDs model.StringList) error
	MarkFailed(id uint) error
	SoftDelete(id uint) error
	FindDeletedWithVectors() ([]model.Document, error)
	FindFailed() ([]model.Document, error)
	FindProcessedWithVectors() ([]model.Document, error)
	FindByIDUnscoped(id uint) (*model.Document, error)
	ClearVectorIDs(id uint) error

	CreateLibraryEntry(entry *model.DocumentLibraryEntry) error
	ListLibraryByLevels(levels []model.Role) ([]model.DocumentLibraryEntry, error)
	FindLibraryByTitle(title string) (*model.DocumentLibraryEntry, error)
	DeleteLibraryEntry(id uint) error
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

func (r *documentRepository) FindByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindByFileName(fileName string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("file_name = ?", fileName).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindByOriginalName(name string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("original_name = ?", name).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) ListByAccessLevels(levels []model.Role) ([]model.Document, error) {
	var docs []model.Document
	if len(levels) == 0 {
		return docs, nil
	}
	err := r.db.Where("access_level IN ?", levels).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

// MarkProcessed 把文档标记为处理完成。调用方必须保证向量已全部写入索引，
// 状态切换是两阶段入库的最后一步。
func (r *documentRepository) MarkProcessed(id uint, chunkCount int, vectorIDs model.StringList) error {
	return r.db.Model(&model.Document{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":      model.DocStatusProcessed,
		"chunk_count": chunkCount,
		"vector_ids":  vectorIDs,
	}).Error
}

func (r *documentRepository) MarkFailed(id uint) error {
	return r.db.Model(&model.Document{}).Where("id = ?", id).
		Update("status", model.DocStatusFailed).Error
}

func (r *documentRepository) SoftDelete(id uint) error {
	return r.db.Delete(&model.Document{}, id).Error
}

// FindDeletedWithVectors 查出已软删除但 vector_ids 仍非空的文档，供对账使用。
func (r *documentRepository) FindDeletedWithVectors() ([]model.Document, error) {
	var docs []model.Document
	err := r.db.Unscoped().
		Where("deleted_at IS NOT NULL").
		Where("vector_ids IS NOT NULL AND vector_ids != '' AND vector_ids != '[]'").
		Find(&docs).Error
	return docs, err
}

// FindFailed 查出入库失败的文档。失败时可能已有部分向量写入索引，
// 对账需要逐个到索引侧确认残留。处理中的文档由消费者重试收敛，不在此列。
func (r *documentRepository) FindFailed() ([]model.Document, error) {
	var docs []model.Document
	err := r.db.Where("status = ?", model.DocStatusFailed).Find(&docs).Error
	return docs, err
}

// FindProcessedWithVectors 查出已处理完成且记录了向量引用的文档，
// 供对账抽样核验索引侧向量是否仍然存在。
func (r *documentRepository) FindProcessedWithVectors() ([]model.Document, error) {
	var docs []model.Document
	err := r.db.Where("status = ?", model.DocStatusProcessed).
		Where("vector_ids IS NOT NULL AND vector_ids != '' AND vector_ids != '[]'").
		Find(&docs).Error
	return docs, err
}

func (r *documentRepository) FindByIDUnscoped(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Unscoped().First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// ClearVectorIDs 在索引侧确认删除后清空记录的向量引用，使对账幂等。
func (r *documentRepository) ClearVectorIDs(id uint) error {
	return r.db.Unscoped().Model(&model.Document{}).Where("id = ?", id).
		Update("vector_ids", model.StringList{}).Error
}

func (r *documentRepository) CreateLibraryEntry(entry *model.DocumentLibraryEntry) error {
	return r.db.Create(entry).Error
}

func (r *documentRepository) ListLibraryByLevels(levels []model.Role) ([]model.DocumentLibraryEntry, error) {
	var entries []model.DocumentLibraryEntry
	if len(levels) == 0 {
		return entries, nil
	}
	err := r.db.Where("access_level IN ?", levels).
		Order("category, title").
		Find(&entries).Error
	return entries, err
}

func (r *documentRepository) FindLibraryByTitle(title string) (*model.DocumentLibraryEntry, error) {
	var entry model.DocumentLibraryEntry
	if err := r.db.Where("title = ?", title).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *documentRepository) DeleteLibraryEntry(id uint) error {
	return r.db.Delete(&model.DocumentLibraryEntry{}, id).Error
}
