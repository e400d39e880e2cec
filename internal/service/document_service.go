package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"deptkb-go/internal/access"
	"deptkb-go/internal/config"
	"deptkb-go/internal/model"
	"deptkb-go/internal/repository"
	"deptkb-go/pkg/kafka"
	"deptkb-go/pkg/log"
	"deptkb-go/pkg/storage"
	"deptkb-go/pkg/tasks"

	"github.com/minio/minio-go/v7"
)

// ErrForbidden 表示请求角色对目标资源不可见。
var ErrForbidden = errors.New("没有访问该资源的权限")

// 下载链接的有效期。
const downloadURLExpiry = time.Hour

// DocumentService 定义了文档生命周期管理的接口。
type DocumentService interface {
	Upload(ctx context.Context, uploaderID uint, originalName string, size int64, reader io.Reader, accessLevel model.Role) (*model.Document, error)
	List(requester model.Role) ([]model.Document, error)
	Delete(id uint) error
	DownloadURL(id uint, requester model.Role) (string, error)
	ListLibrary(requester model.Role) ([]model.DocumentLibraryEntry, error)
	CreateLibraryEntry(entry *model.DocumentLibraryEntry) error
	DeleteLibraryEntry(id uint) error
}

type documentService struct {
	docs   repository.DocumentRepository
	bucket string
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(docs repository.DocumentRepository, minioCfg config.MinIOConfig) DocumentService {
	return &documentService{docs: docs, bucket: minioCfg.BucketName}
}

// Upload 接收上传文件：写入对象存储、登记 processing 状态的记录、
// 投递入库任务。切块与嵌入由消费者异步完成。
func (s *documentService) Upload(ctx context.Context, uploaderID uint, originalName string, size int64, reader io.Reader, accessLevel model.Role) (*model.Document, error) {
	objectName, err := newObjectName(originalName)
	if err != nil {
		return nil, err
	}

	_, err = storage.MinioClient.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("写入对象存储失败: %w", err)
	}

	doc := &model.Document{
		FileName:     objectName,
		OriginalName: originalName,
		AccessLevel:  accessLevel,
		Status:       model.DocStatusProcessing,
		FilePath:     s.bucket + "/" + objectName,
		FileSize:     size,
		UploadedBy:   uploaderID,
	}
	if err := s.docs.Create(doc); err != nil {
		return nil, fmt.Errorf("登记文档记录失败: %w", err)
	}

	if err := kafka.ProduceDocumentTask(tasks.DocumentProcessingTask{
		DocumentID:  doc.ID,
		FileName:    doc.FileName,
		Title:       doc.OriginalName,
		FilePath:    doc.FilePath,
		AccessLevel: string(doc.AccessLevel),
	}); err != nil {
		// 任务投递失败时记录保持 processing，依赖管理端重新触发或对账发现
		log.Errorf("[Document] 投递入库任务失败, id: %d, error: %v", doc.ID, err)
		return nil, fmt.Errorf("投递入库任务失败: %w", err)
	}

	log.Infof("[Document] 上传完成并已投递入库任务, id: %d, file: %s", doc.ID, originalName)
	return doc, nil
}

func (s *documentService) List(requester model.Role) ([]model.Document, error) {
	return s.docs.ListByAccessLevels(access.AllowedDocumentLevels(requester))
}

// Delete 软删除文档并投递异步清理任务。删除立即对检索不可见的保证
// 由引用核验兜底：残余向量即使被召回，引用也无法通过存在性检查。
func (s *documentService) Delete(id uint) error {
	doc, err := s.docs.FindByID(id)
	if err != nil {
		return err
	}
	if err := s.docs.SoftDelete(id); err != nil {
		return err
	}
	if err := kafka.ProducePurgeTask(tasks.VectorPurgeTask{
		SourceID:   strconv.FormatUint(uint64(doc.ID), 10),
		SourceType: model.SourceTypeDocument,
	}); err != nil {
		// 清理任务投递失败由对账兜底
		log.Errorf("[Document] 投递清理任务失败, id: %d, error: %v", id, err)
	}
	return nil
}

func (s *documentService) DownloadURL(id uint, requester model.Role) (string, error) {
	doc, err := s.docs.FindByID(id)
	if err != nil {
		return "", err
	}
	if !access.CanAccessDocument(doc.AccessLevel, requester) {
		return "", ErrForbidden
	}
	return storage.GetPresignedURL(s.bucket, doc.FileName, downloadURLExpiry)
}

func (s *documentService) ListLibrary(requester model.Role) ([]model.DocumentLibraryEntry, error) {
	return s.docs.ListLibraryByLevels(access.AllowedDocumentLevels(requester))
}

func (s *documentService) CreateLibraryEntry(entry *model.DocumentLibraryEntry) error {
	return s.docs.CreateLibraryEntry(entry)
}

func (s *documentService) DeleteLibraryEntry(id uint) error {
	return s.docs.DeleteLibraryEntry(id)
}

// newObjectName 生成随机存储键，保留原始扩展名。
func newObjectName(originalName string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf) + filepath.Ext(originalName), nil
}

// minioSigner 是基于 MinIO 预签名 URL 的 URLSigner 实现。
type minioSigner struct {
	bucket string
}

// NewMinioSigner 创建一个基于 MinIO 的 URLSigner。
func NewMinioSigner(bucket string) URLSigner {
	return &minioSigner{bucket: bucket}
}

func (s *minioSigner) Sign(objectName string) (string, error) {
	return storage.GetPresignedURL(s.bucket, objectName, downloadURLExpiry)
}
