package model

// SourceType 标识向量记录的来源类型。
const (
	SourceTypeDocument = "document"
	SourceTypeNote     = "knowledge-note"
)

// VectorRecord 代表存储在 Elasticsearch 中的一条分块向量。
// access_level 为多值 keyword：文档记录恰有一个值，
// 知识条目记录携带其完整访问列表，两种语义由检索过滤区分。
// 记录从不原地修改：重嵌入意味着删除旧记录后重建。
type VectorRecord struct {
	ID           string    `json:"vector_id"`
	SourceID     string    `json:"source_id"`
	SourceType   string    `json:"source_type"`
	AccessLevels RoleList  `json:"access_level"`
	FileName     string    `json:"file_name"`
	Title        string    `json:"title"`
	ChunkIndex   int       `json:"chunk_index"`
	TextContent  string    `json:"text_content"`
	Embedding    []float32 `json:"vector"`
}

// ChunkHit 是一次向量检索命中的结果（不携带向量本身）。
type ChunkHit struct {
	VectorID     string   `json:"vectorId"`
	SourceID     string   `json:"sourceId"`
	SourceType   string   `json:"sourceType"`
	AccessLevels RoleList `json:"accessLevels"`
	FileName     string   `json:"fileName"`
	Title        string   `json:"title"`
	ChunkIndex   int      `json:"chunkIndex"`
	TextContent  string   `json:"textContent"`
	Score        float64  `json:"score"`
}
