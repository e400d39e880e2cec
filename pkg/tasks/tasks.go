// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// DocumentProcessingTask represents the data structure for a document ingestion job.
type DocumentProcessingTask struct {
	DocumentID  uint   `json:"document_id"`
	FileName    string `json:"file_name"`
	Title       string `json:"title"`
	FilePath    string `json:"file_path"`
	AccessLevel string `json:"access_level"`
}

// VectorPurgeTask 表示一次异步的向量清理任务（软删除后触发）。
type VectorPurgeTask struct {
	SourceID   string `json:"source_id"`
	SourceType string `json:"source_type"`
}
