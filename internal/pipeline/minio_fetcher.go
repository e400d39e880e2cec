package pipeline

import (
	"context"
	"io"

	"deptkb-go/pkg/storage"

	"github.com/minio/minio-go/v7"
)

// minioFetcher 从 MinIO 存储桶读取对象。
type minioFetcher struct {
	bucket string
}

// NewMinioFetcher 创建一个基于 MinIO 的 ObjectFetcher。
func NewMinioFetcher(bucket string) ObjectFetcher {
	return &minioFetcher{bucket: bucket}
}

func (f *minioFetcher) Fetch(ctx context.Context, objectName string) (io.ReadCloser, error) {
	obj, err := storage.MinioClient.GetObject(ctx, f.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}
